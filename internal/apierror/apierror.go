// Package apierror decodes Vimeo API error responses.
package apierror

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// maxBodyBytes caps how much of an error body is read.
const maxBodyBytes = 64 << 10

// Error is a non-success response from the Vimeo API.
type Error struct {
	StatusCode int `json:"-"`

	// Message is the user-facing error text ("error" in the response).
	Message string `json:"error"`

	// DeveloperMessage explains the failure to the integrator.
	DeveloperMessage string `json:"developer_message"`

	// Code is Vimeo's numeric error code, zero when absent.
	Code int `json:"error_code"`

	// Link points at documentation for the error, when provided.
	Link string `json:"link"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.DeveloperMessage != "" {
		msg += " (" + e.DeveloperMessage + ")"
	}
	if e.Code != 0 {
		return fmt.Sprintf("vimeo api error %d [code %d]: %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("vimeo api error %d: %s", e.StatusCode, msg)
}

// Unauthorized reports whether the request lacked valid credentials.
func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// Throttled reports whether the API rate limit was hit.
func (e *Error) Throttled() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Check returns nil when resp has one of the accepted status codes and an
// *Error built from the response otherwise. On error the body is consumed and
// closed; on success it is left untouched.
func Check(resp *http.Response, accepted ...int) error {
	if slices.Contains(accepted, resp.StatusCode) {
		return nil
	}
	return FromResponse(resp)
}

// FromResponse reads and closes the body of resp and decodes it into an
// *Error. Bodies that are not Vimeo error JSON fall back to the status text.
func FromResponse(resp *http.Response) *Error {
	defer func() { _ = resp.Body.Close() }()

	apiErr := &Error{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err == nil && len(body) > 0 {
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil {
			apiErr.Message = ""
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return apiErr
}
