package oauth

import (
	"fmt"
	"net/http"
)

// OAuth error codes returned in the "error" field of error responses.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeInvalidGrant   = "invalid_grant"
	ErrorCodeServerError    = "server_error"
)

// Error represents an OAuth 2.0 error response.
type Error struct {
	Code        string // OAuth error code (e.g. "invalid_request", "invalid_grant")
	Description string // Human-readable error description
	Status      int    // HTTP status code
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// ErrInvalidRequest indicates the request is malformed or missing required parameters.
func ErrInvalidRequest(desc string) *Error {
	return &Error{Code: ErrorCodeInvalidRequest, Description: desc, Status: http.StatusBadRequest}
}

// ErrInvalidClient indicates client authentication failed.
func ErrInvalidClient(desc string) *Error {
	return &Error{Code: ErrorCodeInvalidClient, Description: desc, Status: http.StatusUnauthorized}
}

// ErrInvalidGrant indicates the authorization code or refresh token is invalid,
// expired, or already consumed.
func ErrInvalidGrant(desc string) *Error {
	return &Error{Code: ErrorCodeInvalidGrant, Description: desc, Status: http.StatusBadRequest}
}

// ErrServerError indicates an internal failure, such as the code store being
// unreachable. Detail goes to the log, not the response.
func ErrServerError(desc string) *Error {
	return &Error{Code: ErrorCodeServerError, Description: desc, Status: http.StatusInternalServerError}
}

// ErrorResponse is the JSON body of an OAuth error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
