package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// rupeesPerCrore converts rupee totals to crores.
var rupeesPerCrore = decimal.NewFromInt(10_000_000)

// Summary holds the headline dashboard metrics for one scenario.
type Summary struct {
	LoanCount     int             `json:"loan_count"`
	CriticalCount int             `json:"critical_count"`
	TotalExposure decimal.Decimal `json:"total_exposure"`
	CapitalAtRisk decimal.Decimal `json:"capital_at_risk"`
}

// TotalCrores is the total portfolio size in crores, two decimals.
func (s Summary) TotalCrores() decimal.Decimal {
	return ToCrores(s.TotalExposure)
}

// CapitalAtRiskCrores is the capital at risk in crores, two decimals.
func (s Summary) CapitalAtRiskCrores() decimal.Decimal {
	return ToCrores(s.CapitalAtRisk)
}

// ToCrores converts a rupee amount to crores rounded to two decimals.
func ToCrores(rupees decimal.Decimal) decimal.Decimal {
	return rupees.Div(rupeesPerCrore).Round(2)
}

// Summarize aggregates loan amounts over the whole book and over CRITICAL loans.
func Summarize(stressed []StressedLoan) Summary {
	s := Summary{
		LoanCount:     len(stressed),
		TotalExposure: decimal.Zero,
		CapitalAtRisk: decimal.Zero,
	}
	for _, l := range stressed {
		amt := decimal.NewFromInt(l.Amount)
		s.TotalExposure = s.TotalExposure.Add(amt)
		if l.Status == StatusCritical {
			s.CapitalAtRisk = s.CapitalAtRisk.Add(amt)
			s.CriticalCount++
		}
	}
	return s
}

// CriticalRow is one line of the critical loan report table.
type CriticalRow struct {
	LoanID      int        `json:"loan_id"`
	District    string     `json:"district"`
	LoanAmount  int64      `json:"loan_amount"`
	StressedLTV float64    `json:"stressed_loan_to_value"`
	Status      RiskStatus `json:"risk_status"`
}

// CriticalTable projects the CRITICAL loans onto the report table columns.
func CriticalTable(stressed []StressedLoan) []CriticalRow {
	critical := CriticalLoans(stressed)
	rows := make([]CriticalRow, 0, len(critical))
	for _, l := range critical {
		rows = append(rows, CriticalRow{
			LoanID:      l.ID,
			District:    l.District,
			LoanAmount:  l.Amount,
			StressedLTV: l.StressedLTV,
			Status:      l.Status,
		})
	}
	return rows
}

// Marker colours for the risk map.
const (
	ColorSafe     = "green"
	ColorCritical = "red"
)

// MapPoint is a single map marker. Size is the loan amount.
type MapPoint struct {
	Lat         float64    `json:"lat"`
	Lon         float64    `json:"lon"`
	Status      RiskStatus `json:"risk_status"`
	Color       string     `json:"color"`
	Size        int64      `json:"size"`
	District    string     `json:"district"`
	StressedLTV float64    `json:"stressed_loan_to_value"`
	StressedPD  float64    `json:"stressed_pd"`
}

// MapPoints builds one marker per loan.
func MapPoints(stressed []StressedLoan) []MapPoint {
	points := make([]MapPoint, 0, len(stressed))
	for _, l := range stressed {
		color := ColorSafe
		if l.Status == StatusCritical {
			color = ColorCritical
		}
		points = append(points, MapPoint{
			Lat:         l.Lat,
			Lon:         l.Lon,
			Status:      l.Status,
			Color:       color,
			Size:        l.Amount,
			District:    l.District,
			StressedLTV: l.StressedLTV,
			StressedPD:  l.StressedPD,
		})
	}
	return points
}

// Report is everything the presentation layer renders for one scenario.
type Report struct {
	ID          string        `json:"id"`
	Scenario    Scenario      `json:"scenario"`
	GeneratedAt time.Time     `json:"generated_at"`
	Summary     Summary       `json:"summary"`
	Critical    []CriticalRow `json:"critical"`
	Points      []MapPoint    `json:"points"`
}

// BuildReport stresses the portfolio under a scenario and assembles the report.
func BuildReport(rows []PortfolioRow, scenario Scenario) (Report, error) {
	stressed, err := StressPortfolio(rows, scenario.Severity)
	if err != nil {
		return Report{}, err
	}
	return Report{
		ID:          uuid.NewString(),
		Scenario:    scenario,
		GeneratedAt: clock.Now().UTC(),
		Summary:     Summarize(stressed),
		Critical:    CriticalTable(stressed),
		Points:      MapPoints(stressed),
	}, nil
}
