package utils

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
)

var (
	defaultValidator = validator.New()
	usernamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{3,64}$`)
	matchFirstCap    = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap      = regexp.MustCompile("([a-z0-9])([A-Z])")
)

func init() {
	_ = defaultValidator.RegisterValidation("username", validateUsername)
}

// ValidateStruct validates a struct using the default validator. On failure
// it returns an InvalidRequest error whose metadata maps each snake_case
// field name to a readable message.
func ValidateStruct(s interface{}) error {
	err := defaultValidator.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return errors.ErrInvalidRequest(err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		field := toSnakeCase(fe.Field())
		fields[field] = formatValidationError(fe)
		messages = append(messages, field+" "+fields[field])
	}

	appErr := errors.NewError(constants.ErrCodeInvalidRequest, http.StatusBadRequest,
		strings.Join(messages, "; "), "validation failed")
	for field, msg := range fields {
		appErr = appErr.WithMetadata(field, msg)
	}
	return appErr.WithCause(err)
}

// validateUsername allows letters, digits, '_', '.' and '-', 3 to 64 characters.
func validateUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

// formatValidationError creates a user-friendly error message for a validation error.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "username":
		return "may only contain letters, digits, '_', '.' and '-' (3 to 64 characters)"
	case "nefield":
		return fmt.Sprintf("must differ from %s", toSnakeCase(fe.Param()))
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' tag", fe.Tag())
	}
}

// toSnakeCase converts a string from CamelCase to snake_case.
func toSnakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}

// ValidateEmail checks if a string is a valid email address.
func ValidateEmail(email string) bool {
	return defaultValidator.Var(email, "required,email") == nil
}

//Personal.AI order the ending
