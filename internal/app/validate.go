package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"stayhub/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names so errors line up with the form fields
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		return translate(ves)
	}
	return err
}

func translate(errs validator.ValidationErrors) domain.ValidationErrors {
	out := make(domain.ValidationErrors, 0, len(errs))
	for _, e := range errs {
		msg := e.Error()
		switch e.Tag() {
		case "required":
			msg = fmt.Sprintf("%s is required", e.Field())
		case "min":
			msg = fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
		case "max":
			msg = fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
		case "gt":
			msg = fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param())
		case "gte":
			msg = fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
		case "lte":
			msg = fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
		case "email":
			msg = fmt.Sprintf("%s must be a valid email address", e.Field())
		case "url":
			msg = fmt.Sprintf("%s must be a valid URL", e.Field())
		case "oneof":
			msg = fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
		}
		out = append(out, domain.FieldError{Field: e.Field(), Message: msg})
	}
	return out
}

// storeErr passes domain outcomes through and marks everything else retryable.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		domain.ErrNotFound,
		domain.ErrValidation,
		domain.ErrAvailabilityConflict,
		domain.ErrInvalidTransition,
		domain.ErrForbidden,
		domain.ErrTransientIO,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return domain.Transient(op, err)
}
