// Package response defines the JSON error body shared by every HTTP endpoint.
package response

import "net/http"

// Error is the body of every failed request.
type Error struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

func NewError(statusCode int, msg string) Error {
	return Error{
		StatusCode: statusCode,
		Message:    msg,
	}
}

var (
	EmptyRequestBody   = NewError(http.StatusBadRequest, "Empty request body.")
	InvalidRequestBody = NewError(http.StatusBadRequest, "Invalid request body.")
	ResourceNotFound   = NewError(http.StatusNotFound, "Resource not found.")
	MethodNotAllowed   = NewError(http.StatusMethodNotAllowed, "Method not allowed.")
	InternalError      = NewError(http.StatusInternalServerError, "Internal server error.")
	UnexpectedError    = NewError(http.StatusInternalServerError, "Something went wrong on our end.")
)
