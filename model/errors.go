package model

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrUnauthorized = errors.New("unauthorized")

// ValidationError reports malformed input. No work is done once it is raised.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ResourceUnavailableError reports that a required class of resources ended up empty.
type ResourceUnavailableError struct {
	Message string
}

func (e *ResourceUnavailableError) Error() string {
	return e.Message
}

func NewResourceUnavailableError(format string, args ...interface{}) error {
	return &ResourceUnavailableError{Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsResourceUnavailableError(err error) bool {
	var target *ResourceUnavailableError
	return errors.As(err, &target)
}
