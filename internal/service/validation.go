package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"tender-marketplace-api/internal/entity"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewValidator returns the validator shared by services and controllers.
// Decimals are compared as numbers and fields are named after their json tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}

		return nil
	}, decimal.Decimal{})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if id, ok := field.Interface().(uuid.UUID); ok && id != uuid.Nil {
			return id.String()
		}

		return ""
	}, uuid.UUID{})

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}

		return name
	})

	return v
}

// FieldErrors converts validator output into field errors, prefixing every
// field name.
func FieldErrors(err error, prefix string) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: strings.TrimSuffix(prefix, "."), Message: err.Error()}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: prefix + fe.Field(), Message: getMessage(fe)})
	}

	return fields
}

func getMessage(fe validator.FieldError) string {
	switch fe.Kind() {
	case reflect.String:
		return getMessageForString(fe)
	case reflect.Int, reflect.Int32, reflect.Int64, reflect.Float64:
		return getMessageForNumber(fe)
	}

	if fe.Tag() == "required" {
		return "this field is required"
	}

	return "incorrect value passed"
}

func getMessageForNumber(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "lte", "max":
		return "should be less or equal than " + fe.Param()
	case "gte", "min":
		return "should be greater or equal than " + fe.Param()
	}

	return "incorrect value passed"
}

func getMessageForString(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "lte", "max":
		return "length should be less or equal than " + fe.Param()
	case "gte", "min":
		return "length should be greater or equal than " + fe.Param()
	case "oneof":
		return "should have value in: " + fe.Param()
	case "uuid":
		return "should be a valid uuid"
	}

	return "incorrect value passed"
}

// validateBoqItems checks every catalog line, reporting the offending index.
func validateBoqItems(v *validator.Validate, items []entity.BoqItemInput) error {
	verr := &ValidationError{}
	for i := range items {
		item := items[i]
		item.Description = strings.TrimSpace(item.Description)
		item.Unit = strings.TrimSpace(item.Unit)
		if err := v.Struct(item); err != nil {
			verr.Fields = append(verr.Fields, FieldErrors(err, fmt.Sprintf("boqItems[%d].", i))...)
		}
	}

	return verr.orNil()
}

func validateBidItems(v *validator.Validate, items []entity.BidItemInput) error {
	verr := &ValidationError{}
	seen := make(map[uuid.UUID]struct{}, len(items))
	for i, item := range items {
		if err := v.Struct(item); err != nil {
			verr.Fields = append(verr.Fields, FieldErrors(err, fmt.Sprintf("items[%d].", i))...)
			continue
		}
		if _, dup := seen[item.BoqItemId]; dup {
			verr.add(fmt.Sprintf("items[%d].boqItemId", i), "boq item is priced twice")
		}
		seen[item.BoqItemId] = struct{}{}
	}

	return verr.orNil()
}
