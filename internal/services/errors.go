package services

import "fmt"

// BadRequestError marks caller mistakes so the transport layer can map them
// to a 400 without inspecting message text.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

func badRequestf(format string, args ...any) *BadRequestError {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}
