package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()

	tickerPattern = regexp.MustCompile(`^[A-Z0-9.]{1,10}$`)
)

// ValidationError represents a validation error with field and message
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

func init() {
	validate.RegisterValidation("ticker", validateTicker)
	validate.RegisterValidation("price", validatePrice)
	validate.RegisterValidation("role", validateRole)
}

// validateTicker validates ticker symbol format
func validateTicker(fl validator.FieldLevel) bool {
	ticker, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return tickerPattern.MatchString(ticker)
}

// validatePrice validates price is positive and reasonable
func validatePrice(fl validator.FieldLevel) bool {
	price, ok := fl.Field().Interface().(float64)
	if !ok {
		return false
	}
	return price > 0 && price < 1000000
}

// validateRole validates a chat message role
func validateRole(fl validator.FieldLevel) bool {
	role, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	switch role {
	case "system", "user", "assistant":
		return true
	}
	return false
}

// ValidTicker reports whether s is a well-formed ticker symbol.
func ValidTicker(s string) bool {
	return tickerPattern.MatchString(s)
}

// ValidateStruct validates a struct using tags
func ValidateStruct(s interface{}) ValidationErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs ValidationErrors
	for _, err := range err.(validator.ValidationErrors) {
		errs = append(errs, ValidationError{
			Field:   err.Field(),
			Message: getErrorMessage(err.Field(), err.Tag(), err.Value()),
			Value:   err.Value(),
		})
	}
	return errs
}

// getErrorMessage returns a user-friendly error message
func getErrorMessage(field, tag string, value interface{}) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "ticker":
		return fmt.Sprintf("%s must be a valid ticker symbol (1-10 uppercase letters/numbers)", field)
	case "price":
		return fmt.Sprintf("%s must be a positive price less than 1,000,000", field)
	case "role":
		return fmt.Sprintf("%s must be one of system, user, assistant", field)
	case "min":
		return fmt.Sprintf("%s must be at least %v", field, value)
	case "max":
		return fmt.Sprintf("%s must be at most %v", field, value)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}

// SanitizeString removes null bytes and control characters and trims whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// SanitizeSymbol uppercases and trims a user-supplied ticker symbol.
func SanitizeSymbol(s string) string {
	return strings.ToUpper(SanitizeString(s))
}
