package core

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmbeddingUnavailable: no embedder configured or the embedding call failed.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrValidationUnavailable is only logged; validation problems never fail a request.
	ErrValidationUnavailable = errors.New("validation unavailable")
	ErrInvalidRange          = errors.New("invalid id range")
	ErrInvalidThreshold      = errors.New("invalid threshold")
	ErrInvalidLevel          = errors.New("invalid validation level")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrStore                 = errors.New("record store error")
)

// Error kinds reported to transports.
const (
	KindEmbeddingUnavailable = "EmbeddingUnavailable"
	KindInvalidRange         = "InvalidRange"
	KindInvalidThreshold     = "InvalidThreshold"
	KindInvalidLevel         = "InvalidLevel"
	KindInvalidRequest       = "InvalidRequest"
	KindStore                = "StoreError"
	KindCanceled             = "Canceled"
	KindInternal             = "Internal"
)

// KindOf classifies err so callers can tell retryable failures from bad input.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRange):
		return KindInvalidRange
	case errors.Is(err, ErrInvalidThreshold):
		return KindInvalidThreshold
	case errors.Is(err, ErrInvalidLevel):
		return KindInvalidLevel
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrEmbeddingUnavailable):
		return KindEmbeddingUnavailable
	case errors.Is(err, ErrStore):
		return KindStore
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// IsInvalidInput is true for errors caused by the request itself.
func IsInvalidInput(err error) bool {
	switch KindOf(err) {
	case KindInvalidRange, KindInvalidThreshold, KindInvalidLevel, KindInvalidRequest:
		return true
	}
	return false
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
