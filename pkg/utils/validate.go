package utils

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct-tag validation on value and converts failures into a
// 400 with field-level detail in the error meta.
func Validate[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, toValidationError(value, err)
	}

	return value, nil
}

// ValidateValue validates a single value against a validator tag expression
func ValidateValue(value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return toValidationError(value, err)
	}
	return nil
}

func toValidationError(input any, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fields := map[string]any{}
	msg := fmt.Sprintf("invalid %T", input)
	for _, fe := range verrs {
		fields[fe.StructField()] = fmt.Sprintf("failed rule '%s' (expected '%s', got '%v')", fe.Tag(), fe.Param(), fe.Value())
	}

	httperr := httperror.NewHTTPError(http.StatusBadRequest, msg)
	httperr.Meta = fields
	return httperr
}
