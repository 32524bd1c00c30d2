package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Classification thresholds. A loan breaching either one is CRITICAL.
const (
	CriticalLTV = 0.90
	CriticalPD  = 0.15

	// heatIncomeMultiplier scales the heat shock applied to base PD.
	heatIncomeMultiplier = 10
)

// ErrNonPositiveStressedValue is returned when flood_risk × severity ≥ 1,
// which would wipe out (or invert) the collateral value.
var ErrNonPositiveStressedValue = errors.New("stressed property value is not positive")

// ErrUnknownScenario is returned for scenario keys outside the fixed set.
var ErrUnknownScenario = errors.New("unknown scenario")

// RiskStatus is the binary stress classification of a loan.
type RiskStatus string

const (
	StatusSafe     RiskStatus = "SAFE"
	StatusCritical RiskStatus = "CRITICAL"
)

// Scenario is a named climate pathway with its shock severity.
type Scenario struct {
	Key      string  `json:"key"`
	Name     string  `json:"name"`
	Severity float64 `json:"severity"`
}

var scenarios = []Scenario{
	{Key: "A", Name: "Scenario A: Mild (1.5°C)", Severity: 0.15},
	{Key: "B", Name: "Scenario B: Moderate (2.0°C)", Severity: 0.30},
	{Key: "C", Name: "Scenario C: Severe (3.0°C)", Severity: 0.50},
}

// Scenarios returns the fixed scenario set, mildest first.
func Scenarios() []Scenario {
	out := make([]Scenario, len(scenarios))
	copy(out, scenarios)
	return out
}

// LookupScenario resolves a scenario by key (case-insensitive).
func LookupScenario(key string) (Scenario, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	for _, s := range scenarios {
		if s.Key == k {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, key)
}

// StressedLoan is a portfolio row with its stressed valuation and status.
// It is derived on demand and never persisted.
type StressedLoan struct {
	PortfolioRow
	StressedValue float64    `json:"stressed_value"`
	StressedLTV   float64    `json:"stressed_loan_to_value"`
	StressedPD    float64    `json:"stressed_pd"`
	Status        RiskStatus `json:"risk_status"`
}

// Classify maps a stressed LTV and PD to a risk status. Anything that does
// not breach a threshold is SAFE.
func Classify(ltv, pd float64) RiskStatus {
	if ltv > CriticalLTV || pd > CriticalPD {
		return StatusCritical
	}
	return StatusSafe
}

// Stress applies the severity shock to one portfolio row.
func Stress(row PortfolioRow, severity float64) (StressedLoan, error) {
	haircut := row.FloodRisk * severity
	if haircut >= 1 {
		return StressedLoan{}, fmt.Errorf("loan %d (flood %.2f, severity %.2f): %w",
			row.ID, row.FloodRisk, severity, ErrNonPositiveStressedValue)
	}

	value := float64(row.PropertyVal) * (1 - haircut)
	if value <= 0 {
		return StressedLoan{}, fmt.Errorf("loan %d: %w", row.ID, ErrNonPositiveStressedValue)
	}
	ltv := float64(row.Amount) / value
	pd := row.BasePD * (1 + row.HeatRisk*severity*heatIncomeMultiplier)

	return StressedLoan{
		PortfolioRow:  row,
		StressedValue: value,
		StressedLTV:   ltv,
		StressedPD:    pd,
		Status:        Classify(ltv, pd),
	}, nil
}

// StressPortfolio stresses every row. It stops at the first failure.
func StressPortfolio(rows []PortfolioRow, severity float64) ([]StressedLoan, error) {
	out := make([]StressedLoan, 0, len(rows))
	for _, row := range rows {
		s, err := Stress(row, severity)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// CriticalLoans filters the stressed book down to CRITICAL loans, preserving order.
func CriticalLoans(stressed []StressedLoan) []StressedLoan {
	var out []StressedLoan
	for _, s := range stressed {
		if s.Status == StatusCritical {
			out = append(out, s)
		}
	}
	return out
}
