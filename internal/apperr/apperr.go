// Package apperr defines the error taxonomy shared across the engine,
// the store, the exchange clients and the operator API.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Callers wrap these with fmt.Errorf("...: %w", Kind) so
// errors.Is/As keeps working across package boundaries.
var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrNotConfigured      = errors.New("not configured")
	ErrNetwork            = errors.New("network error")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrNotFound           = errors.New("not found")
	ErrNotActive          = errors.New("not active")
	ErrInternalInvariant  = errors.New("internal invariant violated")
)

// ExchangeRejected carries the remote exchange's own error code/message.
type ExchangeRejected struct {
	Code    int
	Message string
}

func (e *ExchangeRejected) Error() string {
	return fmt.Sprintf("exchange rejected (code=%d): %s", e.Code, e.Message)
}

// Is lets errors.Is(err, &apperr.ExchangeRejected{}) style checks work
// without pinning to a specific code/message.
func (e *ExchangeRejected) Is(target error) bool {
	_, ok := target.(*ExchangeRejected)
	return ok
}

func NewExchangeRejected(code int, message string) error {
	return &ExchangeRejected{Code: code, Message: message}
}

// Kind classifies an error into the §7 taxonomy for API responses and logs.
type Kind string

const (
	KindValidationFailed  Kind = "ValidationFailed"
	KindNotConfigured     Kind = "NotConfigured"
	KindExchangeRejected  Kind = "ExchangeRejected"
	KindNetwork           Kind = "Network"
	KindInvalidQuantity   Kind = "InvalidQuantity"
	KindNotFound          Kind = "NotFound"
	KindNotActive         Kind = "NotActive"
	KindInternalInvariant Kind = "InternalInvariant"
	KindUnknown           Kind = "Unknown"
)

// Classify maps an error produced anywhere in the core to its taxonomy kind,
// used by internal/api to build the structured {kind, message, code} body
// required by the error-handling design.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var rejected *ExchangeRejected
	switch {
	case errors.As(err, &rejected):
		return KindExchangeRejected
	case errors.Is(err, ErrValidationFailed):
		return KindValidationFailed
	case errors.Is(err, ErrNotConfigured):
		return KindNotConfigured
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrInvalidQuantity):
		return KindInvalidQuantity
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotActive):
		return KindNotActive
	case errors.Is(err, ErrInternalInvariant):
		return KindInternalInvariant
	default:
		return KindUnknown
	}
}

// Code returns the exchange-supplied numeric code, if any.
func Code(err error) (int, bool) {
	var rejected *ExchangeRejected
	if errors.As(err, &rejected) {
		return rejected.Code, true
	}
	return 0, false
}
