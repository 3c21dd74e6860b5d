package news

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes set by the client itself. Other codes are passed through from the
// provider's error body (e.g. apiKeyInvalid, sourcesTooMany).
const (
	CodeRateLimited       = "rateLimited"
	CodeNetwork           = "network"
	CodeMalformedResponse = "malformedResponse"
	CodeCircuitOpen       = "circuitOpen"
	CodeHTTP              = "httpError"
)

// GenericErrorMessage is what users see for any provider failure.
const GenericErrorMessage = "Unable to fetch news from the provider."

// ProviderError is any failure to obtain articles from the provider.
type ProviderError struct {
	Status     string
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("provider error %s (HTTP %d): %s", e.Code, e.HTTPStatus, msg)
	}
	return fmt.Sprintf("provider error %s: %s", e.Code, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is a provider rate limit rejection.
func IsRateLimited(err error) bool {
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return false
	}
	return perr.Code == CodeRateLimited || perr.HTTPStatus == http.StatusTooManyRequests
}

// ErrorCode returns the provider error code of err, or "" when err is not a
// ProviderError.
func ErrorCode(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ""
}
