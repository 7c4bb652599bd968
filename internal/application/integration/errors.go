package integration

import (
	"errors"
	"fmt"

	"github.com/esimbridge/backend/internal/domain/integration"
)

// Stage is the point of the fulfillment flow at which processing stopped
type Stage string

const (
	// StagePreActivation failures happen before the provider is called.
	// Replaying the webhook is safe.
	StagePreActivation Stage = "pre_activation"
	// StageActivation failures come from the provider call itself. The eSIM
	// may or may not exist, so the webhook must not be replayed blindly.
	StageActivation Stage = "activation"
	// StagePostActivation failures happen after a successful activation.
	// The eSIM exists but the order is not fulfilled; never replay.
	StagePostActivation Stage = "post_activation"
)

// String returns the string representation of Stage
func (s Stage) String() string {
	return string(s)
}

// FulfillmentError reports where and why processing of a paid order stopped
type FulfillmentError struct {
	Stage   Stage
	OrderID int64
	Err     error
}

func (e *FulfillmentError) Error() string {
	return fmt.Sprintf("fulfillment of order %d failed at %s: %v", e.OrderID, e.Stage, e.Err)
}

func (e *FulfillmentError) Unwrap() error {
	return e.Err
}

// Retryable reports whether redelivering the same webhook is safe
func (e *FulfillmentError) Retryable() bool {
	return e.Stage == StagePreActivation
}

// RequiresManualReconciliation reports whether an eSIM may have been
// provisioned without the order being fulfilled
func (e *FulfillmentError) RequiresManualReconciliation() bool {
	switch e.Stage {
	case StagePostActivation:
		return true
	case StageActivation:
		return errors.Is(e.Err, integration.ErrActivationOutcomeUnknown)
	default:
		return false
	}
}

// AsFulfillmentError extracts a *FulfillmentError from err
func AsFulfillmentError(err error) (*FulfillmentError, bool) {
	var fe *FulfillmentError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
