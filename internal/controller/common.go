package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/logger"
	"tender-marketplace-api/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo"
)

const (
	defaultLimit  = 20
	defaultOffset = 0
	actorKey      = "actor"
	uploadField   = "file"
)

type errorResponse struct {
	Reason string               `json:"reason"`
	Errors []service.FieldError `json:"errors,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// requireActor resolves the `username` query parameter into the caller.
func requireActor(users service.Users) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := users.ResolveActor(c.Request().Context(), c.QueryParam("username"))
			if err != nil {
				return respondError(c, err)
			}
			c.Set(actorKey, actor)

			return next(c)
		}
	}
}

func actorFrom(c echo.Context) *entity.Actor {
	actor, _ := c.Get(actorKey).(*entity.Actor)
	return actor
}

func pathId(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, &service.ValidationError{Fields: []service.FieldError{{Field: name, Message: "should be a valid uuid"}}}
	}

	return id, nil
}

// bindAndValidate binds the request into input and runs its validate tags.
func bindAndValidate(c echo.Context, v *validator.Validate, input interface{}) error {
	if err := c.Bind(input); err != nil {
		return errBadInput
	}
	if err := v.Struct(input); err != nil {
		return &service.ValidationError{Fields: service.FieldErrors(err, "")}
	}

	return nil
}

var errBadInput = errors.New("Input data is not formed correctly")

// formFile reads the uploaded file, a missing field yields nil.
func formFile(c echo.Context, field string) (*entity.UploadedFile, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}

		return nil, errBadInput
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	return &entity.UploadedFile{
		OriginalName: header.Filename,
		MimeType:     header.Header.Get(echo.HeaderContentType),
		Data:         data,
	}, nil
}

func statusOf(err error) int {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadInput),
		errors.Is(err, service.ErrUnsupportedFile),
		errors.Is(err, service.ErrUnknownCreditPack):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrTenderNotFound),
		errors.Is(err, service.ErrBidNotFound),
		errors.Is(err, service.ErrBoqItemNotFound),
		errors.Is(err, service.ErrExtractionNotFound),
		errors.Is(err, service.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrTenderNotPublished),
		errors.Is(err, service.ErrTenderAlreadyAwarded),
		errors.Is(err, service.ErrDeadlinePassed),
		errors.Is(err, service.ErrBidNotOpen):
		return http.StatusConflict
	case errors.Is(err, service.ErrExternalProviderFailure):
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

func respondError(c echo.Context, err error) error {
	status := statusOf(err)
	body := errorResponse{Reason: err.Error()}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		body.Errors = verr.Fields
	}
	if status == http.StatusInternalServerError {
		log := logger.Get()
		log.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("Request failed")
		body.Reason = "Internal server error"
	}

	return c.JSON(status, body)
}

func respond(c echo.Context, status int, out interface{}, err error) error {
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(status, out)
}
