package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the API's error codes. Match with errors.Is.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrCharacterNotFound = errors.New("character not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrServerError       = errors.New("server error")
)

// APIError is a non-2xx answer from the server. It wraps one of the
// sentinel errors above when the code is recognized.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// Unwrap maps the error code onto a sentinel so callers can branch with
// errors.Is without parsing strings.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "bad_request":
		return ErrBadRequest
	case "unauthorized":
		return ErrUnauthorized
	case "character_not_found":
		return ErrCharacterNotFound
	case "rate_limited":
		return ErrRateLimited
	}
	switch e.StatusCode {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrCharacterNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return ErrServerError
	}
	return nil
}

// apiErrorFromBody builds an APIError from a response body. The server
// answers errors as {"code": ..., "message": ...}; anything else is kept
// with the status code alone.
func apiErrorFromBody(status int, body []byte) error {
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &e)
	return &APIError{StatusCode: status, Code: e.Code, Message: e.Message}
}
