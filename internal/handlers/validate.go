package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/nikhil/chatgenius/internal/apperror"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
	return validate
}

// validateStruct turns the first failed rule into an InvalidInput error.
func validateStruct(v interface{}) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.InvalidInput("Invalid request payload")
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperror.InvalidInput(fmt.Sprintf("%s is required", fe.Field()))
	case "email":
		return apperror.InvalidInput(fmt.Sprintf("%s must be a valid email", fe.Field()))
	case "max":
		return apperror.InvalidInput(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	case "oneof":
		return apperror.InvalidInput(fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
	}
	return apperror.InvalidInput(fmt.Sprintf("%s is invalid", fe.Field()))
}
