package riskreport

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/restakelabs/risk-oracle/internal/domain"
	"github.com/restakelabs/risk-oracle/internal/modules/ledger"
	"github.com/restakelabs/risk-oracle/internal/modules/preferences"
	"github.com/restakelabs/risk-oracle/internal/modules/registry"
)

// Report summarizes a user's current risk exposure across held venues.
// Read-only: computed from the ledger and registry, never mutates.
type Report struct {
	User              domain.Principal `json:"user"`
	TotalBalance      int64            `json:"total_balance"`
	VenuesHeld        int              `json:"venues_held"`
	WeightedMeanRisk  float64          `json:"weighted_mean_risk"`
	RiskStdDev        float64          `json:"risk_std_dev"`
	MaxHeldRisk       int              `json:"max_held_risk"`
	Threshold         int              `json:"threshold"`
	OverThresholdPart float64          `json:"over_threshold_fraction"`
}

// Service computes risk exposure reports
type Service struct {
	ledger   *ledger.Service
	registry *registry.Service
	prefs    *preferences.Service
	log      zerolog.Logger
}

// NewService creates a new risk report service
func NewService(led *ledger.Service, reg *registry.Service, prefs *preferences.Service, log zerolog.Logger) *Service {
	return &Service{
		ledger:   led,
		registry: reg,
		prefs:    prefs,
		log:      log.With().Str("service", "riskreport").Logger(),
	}
}

// Report builds the exposure summary for one user. A user with no
// balances gets a zeroed report.
func (s *Service) Report(user domain.Principal) (*Report, error) {
	balances, err := s.ledger.Balances(user)
	if err != nil {
		return nil, err
	}
	pref, err := s.prefs.Get(user)
	if err != nil {
		return nil, err
	}

	report := &Report{User: user, Threshold: pref.MaxRiskScore}
	if len(balances) == 0 {
		return report, nil
	}

	scores := make([]float64, 0, len(balances))
	weights := make([]float64, 0, len(balances))
	var overThreshold int64

	for _, b := range balances {
		avs, err := s.registry.Get(b.AVSName)
		if err != nil {
			return nil, err
		}

		report.TotalBalance += b.Amount
		report.VenuesHeld++
		if avs.RiskScore > report.MaxHeldRisk {
			report.MaxHeldRisk = avs.RiskScore
		}
		if avs.RiskScore > pref.MaxRiskScore {
			overThreshold += b.Amount
		}

		scores = append(scores, float64(avs.RiskScore))
		weights = append(weights, float64(b.Amount))
	}

	report.WeightedMeanRisk = stat.Mean(scores, weights)
	if len(scores) > 1 {
		report.RiskStdDev = stat.StdDev(scores, nil)
	}
	if report.TotalBalance > 0 {
		report.OverThresholdPart = float64(overThreshold) / float64(report.TotalBalance)
	}
	return report, nil
}
