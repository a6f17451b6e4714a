package domain

import "fmt"

// Principal identifies a caller: the Owner, the Trusted Backend, or an
// ordinary user. The two privileged principals are fixed at construction
// and immutable for the lifetime of the system.
type Principal string

const (
	// MaxAVSNameLen is the longest accepted AVS name.
	MaxAVSNameLen = 32

	// MinRiskScore / MaxRiskScore bound every stored risk score.
	MinRiskScore = 0
	MaxRiskScore = 100
)

// AVS is a named, risk-scored allocation venue that can hold user balances.
// Seq records registration order and breaks ties deterministically when
// several venues share the lowest qualifying risk score.
type AVS struct {
	Name      string `json:"name"`
	RiskScore int    `json:"risk_score"`
	Seq       int64  `json:"seq"`
}

// UserPreference holds a user's declared risk tolerance. The zero value
// (MaxRiskScore 0, AutoRebalance false) is what the store returns for users
// that never set preferences, and it fails the opt-in gate.
type UserPreference struct {
	User          Principal `json:"user"`
	MaxRiskScore  int       `json:"max_risk_score"`
	AutoRebalance bool      `json:"auto_rebalance"`
}

// Balance is one (user, avs) ledger row. Amounts are integer base units
// and never go negative.
type Balance struct {
	User    Principal `json:"user"`
	AVSName string    `json:"avs_name"`
	Amount  int64     `json:"amount"`
}

// ValidateAVSName checks the registration naming rules.
func ValidateAVSName(name string) error {
	if name == "" {
		return fmt.Errorf("avs name cannot be empty: %w", ErrInvalidInput)
	}
	if len(name) > MaxAVSNameLen {
		return fmt.Errorf("avs name too long (%d > %d): %w", len(name), MaxAVSNameLen, ErrInvalidInput)
	}
	return nil
}

// ValidateRiskScore checks the [0,100] score range.
func ValidateRiskScore(score int) error {
	if score < MinRiskScore || score > MaxRiskScore {
		return fmt.Errorf("risk score %d out of range [%d,%d]: %w", score, MinRiskScore, MaxRiskScore, ErrInvalidInput)
	}
	return nil
}
