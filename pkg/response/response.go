// Package response provides the JSON error body shared by all HTTP handlers.
package response

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the body returned for every non-2xx answer.
type ErrorResponse struct {
	Timestamp   time.Time    `json:"timestamp"`
	Status      int          `json:"status"`
	Error       string       `json:"error"`
	Message     string       `json:"message"`
	FieldErrors []FieldError `json:"field_errors,omitempty"`
}

// FieldError describes a single invalid request field.
type FieldError struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Issue string `json:"issue"`
}

// New constructs an ErrorResponse stamped with the current time.
func New(status int, errText, msg string) ErrorResponse {
	return ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     errText,
		Message:   msg,
	}
}

func EmptyRequestBodyResponse() ErrorResponse {
	return New(http.StatusBadRequest, "Bad Request", "Request body is empty.")
}

func BadRequestResponse() ErrorResponse {
	return New(http.StatusBadRequest, "Bad Request", "Request body is invalid.")
}

func ConflictResponse(msg string) ErrorResponse {
	return New(http.StatusBadRequest, "Conflict", msg)
}

func ResourceNotFoundResponse() ErrorResponse {
	return New(http.StatusNotFound, "Not Found", "The requested resource was not found.")
}

func ExpiredResponse() ErrorResponse {
	return New(http.StatusNotFound, "Expired", "The requested url has expired.")
}

func ServerErrorResponse() ErrorResponse {
	return New(http.StatusInternalServerError, "Internal Server Error", "An internal server error occurred.")
}

// ValidationErrorResponse constructs an ErrorResponse carrying per-field issues.
func ValidationErrorResponse(err error) ErrorResponse {
	resp := New(http.StatusBadRequest, "Validation Error", "Request validation failed.")
	resp.FieldErrors = getValidationErrors(err)
	return resp
}

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "url":
		return "Invalid url."
	case "alphanum":
		return "Only letters and digits are allowed."
	case "max":
		return "Value is too long."
	default:
		return "Invalid value."
	}
}

func getValidationErrors(err error) []FieldError {
	var fieldErrs []FieldError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			fieldErrs = append(fieldErrs, FieldError{
				Field: e.Field(),
				Value: fmt.Sprintf("%v", e.Value()),
				Issue: messageForTag(e.Tag()),
			})
		}
	}

	return fieldErrs
}
