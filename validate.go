package miniapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SelfValidator is implemented by validated values that check themselves.
type SelfValidator interface {
	Validate() error
}

// Validator validates a freshly constructed value. It is the injectable
// capability behind validated-value parameters.
type Validator interface {
	Validate(v any) error
}

// StructValidator validates values using `validate` struct tags.
type StructValidator struct {
	validate *validator.Validate
}

// NewStructValidator returns a Validator backed by go-playground/validator.
// Field names in errors use the JSON key.
func NewStructValidator() *StructValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := jsonFieldName(fld)
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &StructValidator{validate: v}
}

// Validate runs tag validation and converts failures to a *ValidationError.
func (s *StructValidator) Validate(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Err: err}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Message: formatFieldError(fe),
			Value:   fe.Value(),
		})
	}
	return NewValidationError(fields...)
}

func formatFieldError(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, param)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// validateValue runs the configured validator and then SelfValidator.
// Failures that are not already structured are wrapped.
func validateValue(v Validator, value any) error {
	if v != nil {
		if err := v.Validate(value); err != nil {
			return asValidationError(err)
		}
	}
	if sv, ok := value.(SelfValidator); ok {
		if err := sv.Validate(); err != nil {
			return asValidationError(err)
		}
	}
	return nil
}

func asValidationError(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return &ValidationError{Err: err}
}
