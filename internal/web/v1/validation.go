package v1

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

const invalidRequest = "Invalid request"

// sanitizeValidationError turns a binding error into a message safe for clients.
// Field failures name the json field and rule; anything else is generic.
func sanitizeValidationError(err error) string {
	if err == nil {
		return ""
	}

	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		msgs := make([]string, 0, len(fields))
		for _, fe := range fields {
			msgs = append(msgs, describeField(fe))
		}
		return invalidRequest + ": " + strings.Join(msgs, "; ")
	}

	var syntax *json.SyntaxError
	var typed *json.UnmarshalTypeError
	if errors.As(err, &syntax) || errors.As(err, &typed) {
		return invalidRequest + ": malformed JSON"
	}
	return invalidRequest
}

func describeField(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email address"
	case "min":
		return name + " must be at least " + fe.Param() + " characters"
	default:
		return name + " is invalid"
	}
}
