package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthorized   = errors.New("user doesn't have sufficient rights for this action")
	ErrUserNotFound   = errors.New("user with given username not found")
	ErrTenderNotFound = errors.New("tender not found")
	ErrBidNotFound    = errors.New("bid not found")

	ErrBoqItemNotFound    = errors.New("boq item doesn't belong to the tender")
	ErrExtractionNotFound = errors.New("extraction not found")
	ErrDocumentNotFound   = errors.New("document not found")

	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUnknownCreditPack   = errors.New("unknown credit pack")

	ErrExternalProviderFailure = errors.New("ai provider failed")
	ErrStorageFailure          = errors.New("file storage failed")
	ErrUnsupportedFile         = errors.New("unsupported file type, expected pdf or xlsx (re-save legacy .xls as .xlsx)")

	ErrTenderNotPublished   = errors.New("tender is not published")
	ErrTenderAlreadyAwarded = errors.New("tender is already awarded")
	ErrDeadlinePassed       = errors.New("tender deadline has passed")
	ErrBidNotOpen           = errors.New("bid is no longer editable")
	ErrConflict             = errors.New("operation conflicts with the current state")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of one input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	var builder strings.Builder
	builder.WriteString("validation failed")
	for i, f := range e.Fields {
		if i == 0 {
			builder.WriteString(": ")
		} else {
			builder.WriteString("; ")
		}
		fmt.Fprintf(&builder, "'%s': %s", f.Field, f.Message)
	}

	return builder.String()
}

func (e *ValidationError) add(field string, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}

	return e
}

// PermanentError marks a failure that no retry can fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
