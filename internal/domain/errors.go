package domain

import "errors"

// Error taxonomy for the core state machine. Every failure leaves state
// exactly as it was before the call; callers branch on these with errors.Is.
var (
	// ErrInvalidInput covers bad names, scores, amounts and thresholds.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned for lookups of an unregistered AVS.
	ErrNotFound = errors.New("avs not found")

	// ErrAlreadyExists is returned when registering a duplicate AVS name.
	ErrAlreadyExists = errors.New("avs already exists")

	// ErrUnauthorized is returned when the caller is not the required principal.
	ErrUnauthorized = errors.New("not authorized")

	// ErrNotOptedIn is returned when rebalancing a user whose auto-rebalance
	// flag is off (including users that never set preferences).
	ErrNotOptedIn = errors.New("user has not opted into auto-rebalancing")

	// ErrOracleUnset is returned when a refresh is requested before an
	// oracle reference has been configured.
	ErrOracleUnset = errors.New("risk oracle not configured")

	// ErrNoSafeTarget is returned when no registered AVS sits at or below
	// the user's risk threshold.
	ErrNoSafeTarget = errors.New("no safe target avs")
)
