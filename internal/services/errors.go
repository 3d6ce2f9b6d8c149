package services

import (
	"errors"
	"fmt"
	"strings"

	"storefront-api/internal/models"
)

// ErrNotFound matches every NotFoundError through errors.Is
var ErrNotFound = errors.New("not found")

// NotFoundError is returned when a resource id is unknown
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError is returned when input is missing or malformed
type ValidationError struct {
	Message string
	Details []models.ErrorDetail
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	issues := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		issues = append(issues, d.Field+" "+d.Issue)
	}
	return e.Message + ": " + strings.Join(issues, "; ")
}

func invalid(message string, details ...models.ErrorDetail) error {
	return &ValidationError{Message: message, Details: details}
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
