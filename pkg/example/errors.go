package example

import (
	"fmt"
	"net/http"
)

// NotFoundError is returned when no example has the requested DNI.
type NotFoundError struct {
	DNI string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("example with dni %s not found", e.DNI)
}

// StatusCode implements the status coder interface.
func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(dni string) *NotFoundError {
	return &NotFoundError{DNI: dni}
}

// AlreadyExistsError is returned when creating an example whose DNI is
// taken.
type AlreadyExistsError struct {
	DNI string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("example with dni %s already exists", e.DNI)
}

// StatusCode implements the status coder interface.
func (e *AlreadyExistsError) StatusCode() int {
	return http.StatusConflict
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(dni string) *AlreadyExistsError {
	return &AlreadyExistsError{DNI: dni}
}
