package loadgen

import "errors"

// Sentinel kinds for load run failures.
var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrDrainTimeout     = errors.New("queue did not drain in time")
	ErrVerification     = errors.New("verification failed")
)
