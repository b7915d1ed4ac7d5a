package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ServiceErrorBadInput         = "SYNC_BAD_INPUT"
	ServiceErrorTransport        = "SYNC_TRANSPORT_FAILED"
	ServiceErrorDecode           = "SYNC_DECODE_FAILED"
	ServiceErrorProviderRejected = "SYNC_PROVIDER_REJECTED"
	ServiceErrorStore            = "SYNC_STORE_FAILED"
	ServiceErrorUnauthorized     = "SYNC_UNAUTHORIZED"
	ServiceErrorInternal         = "SYNC_INTERNAL_ERROR"
)

func newBadInputError(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ServiceErrorBadInput)
}

// NewTransportError wraps a failed outbound provider request.
func NewTransportError(message string, source error) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryExternal).
			WithTextCode(ServiceErrorTransport)
	}
	return goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithTextCode(ServiceErrorTransport)
}

func newDecodeError(message string, source error) error {
	return NewDecodeError(message, source)
}

// NewDecodeError wraps a malformed or unexpected provider response.
func NewDecodeError(message string, source error) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryOperation).
			WithTextCode(ServiceErrorDecode)
	}
	return goerrors.Wrap(source, goerrors.CategoryOperation, message).
		WithTextCode(ServiceErrorDecode)
}

// NewProviderRejectedError marks the provider's cursor-out-of-range
// rejection. Pagination treats it as normal termination, never as a
// failure.
func NewProviderRejectedError(message string) error {
	return goerrors.New(message, goerrors.CategoryExternal).
		WithCode(http.StatusForbidden).
		WithTextCode(ServiceErrorProviderRejected)
}

// NewStoreError wraps a persistence failure.
func NewStoreError(message string, source error) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryInternal).
			WithTextCode(ServiceErrorStore)
	}
	return goerrors.Wrap(source, goerrors.CategoryInternal, message).
		WithTextCode(ServiceErrorStore)
}

// IsProviderRejected reports whether err carries the provider-rejected
// marker.
func IsProviderRejected(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == ServiceErrorProviderRejected
}

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "malformed"):
		return ensureServiceErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryBadInput).
				WithTextCode(ServiceErrorBadInput),
		)
	case strings.Contains(msg, "decode"), strings.Contains(msg, "parse"):
		return ensureServiceErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryOperation).
				WithTextCode(ServiceErrorDecode),
		)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorBadInput
	case goerrors.CategoryExternal:
		return ServiceErrorTransport
	case goerrors.CategoryOperation:
		return ServiceErrorDecode
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ServiceErrorUnauthorized
	default:
		return ServiceErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
