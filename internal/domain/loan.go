package domain

import (
	"errors"
	"fmt"
)

// Loan is a single synthetic mortgage. It is immutable after generation.
type Loan struct {
	ID           int     `json:"loan_id"`
	CustomerName string  `json:"customer_name"`
	District     string  `json:"district"`
	PropertyVal  int64   `json:"property_value"`
	Amount       int64   `json:"loan_amount"`
	BasePD       float64 `json:"base_pd"`
}

// Validate checks the loan-level invariants.
func (l Loan) Validate() error {
	if l.District == "" {
		return errors.New("loan has no district")
	}
	if l.PropertyVal <= 0 {
		return fmt.Errorf("loan %d: property value %d must be positive", l.ID, l.PropertyVal)
	}
	if l.Amount < 0 || l.Amount > l.PropertyVal {
		return fmt.Errorf("loan %d: loan amount %d exceeds property value %d", l.ID, l.Amount, l.PropertyVal)
	}
	if l.BasePD <= 0 || l.BasePD >= 1 {
		return fmt.Errorf("loan %d: base PD %v out of (0,1)", l.ID, l.BasePD)
	}
	return nil
}

// PortfolioRow is a loan joined with its district's risk and coordinates.
// It is the row layout of the cached loan book.
type PortfolioRow struct {
	Loan
	FloodRisk float64 `json:"flood_risk"`
	HeatRisk  float64 `json:"heat_risk"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

// Join attaches district reference data to a loan.
func Join(l Loan, d District) PortfolioRow {
	return PortfolioRow{
		Loan:      l,
		FloodRisk: d.FloodRisk,
		HeatRisk:  d.HeatRisk,
		Lat:       d.Lat,
		Lon:       d.Lon,
	}
}

// JoinAll joins every loan to its district. Loans whose district is not in
// the reference list are an error.
func JoinAll(loans []Loan, districts []District) ([]PortfolioRow, error) {
	idx := DistrictIndex(districts)
	rows := make([]PortfolioRow, 0, len(loans))
	for _, l := range loans {
		d, ok := idx[l.District]
		if !ok {
			return nil, fmt.Errorf("loan %d: unknown district %q", l.ID, l.District)
		}
		rows = append(rows, Join(l, d))
	}
	return rows, nil
}
