package saga

import (
	"errors"
	"fmt"
)

// Stable reason codes returned to callers so they can tell retryable
// failures from terminal ones.
const (
	ReasonSeatLock            = "seat_lock"
	ReasonPersistFailed       = "persist_failed"
	ReasonWalletHoldFailed    = "wallet_hold_failed"
	ReasonPaymentIntentFailed = "payment_intent_failed"
)

// ErrorKind classifies a saga failure for the transport layer
type ErrorKind string

const (
	// KindClient maps to a 4xx response; nothing was committed
	KindClient ErrorKind = "client"
	// KindServer maps to a 5xx response
	KindServer ErrorKind = "server"
	// KindGateway maps to a 502 response; an upstream dependency failed
	KindGateway ErrorKind = "gateway"
)

// SagaError is a failed saga outcome with a stable reason code
type SagaError struct {
	Reason string
	Kind   ErrorKind
	Err    error
}

func (e *SagaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("booking saga failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("booking saga failed (%s)", e.Reason)
}

func (e *SagaError) Unwrap() error {
	return e.Err
}

// AsSagaError extracts a SagaError from an error chain
func AsSagaError(err error) (*SagaError, bool) {
	var se *SagaError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
