// Package portfolio generates the synthetic loan book and keeps it in a flat
// CSV cache so that every render sees the same portfolio.
package portfolio

import (
	"fmt"
	"math/rand/v2"

	"github.com/couchcryptid/climate-stress-service/internal/domain"
)

// DefaultSize is the number of loans in a freshly generated book.
const DefaultSize = 200

// Property values are drawn in lakhs (100,000 rupees) from a half-open range
// that depends on the district tier.
const (
	lakh = 100_000

	metroMinLakhs = 80
	metroMaxLakhs = 250
	otherMinLakhs = 30
	otherMaxLakhs = 90

	minLoanFraction = 0.60
	maxLoanFraction = 0.85

	minBasePD = 0.01
	maxBasePD = 0.05

	minLoanID = 10_000
	maxLoanID = 99_999

	minCustomerNo = 1
	maxCustomerNo = 999
)

// Generator draws synthetic loans. A given seed always produces the same
// sequence of portfolios.
type Generator struct {
	districts []domain.District
	rng       *rand.Rand
}

// NewGenerator creates a Generator over the given district reference list.
func NewGenerator(districts []domain.District, seed uint64) (*Generator, error) {
	if len(districts) == 0 {
		return nil, fmt.Errorf("generator needs at least one district")
	}
	for _, d := range districts {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return &Generator{
		districts: districts,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Generate draws n loans and joins each to its district.
func (g *Generator) Generate(n int) []domain.PortfolioRow {
	rows := make([]domain.PortfolioRow, 0, n)
	for range n {
		d := g.districts[g.rng.IntN(len(g.districts))]
		rows = append(rows, domain.Join(g.loan(d), d))
	}
	return rows
}

func (g *Generator) loan(d domain.District) domain.Loan {
	lo, hi := otherMinLakhs, otherMaxLakhs
	if d.Metro {
		lo, hi = metroMinLakhs, metroMaxLakhs
	}
	propertyValue := int64(g.intRange(lo, hi)) * lakh
	fraction := g.floatRange(minLoanFraction, maxLoanFraction)

	return domain.Loan{
		ID:           g.intRange(minLoanID, maxLoanID),
		CustomerName: fmt.Sprintf("Cust_%d", g.intRange(minCustomerNo, maxCustomerNo)),
		District:     d.Name,
		PropertyVal:  propertyValue,
		Amount:       int64(float64(propertyValue) * fraction),
		BasePD:       g.floatRange(minBasePD, maxBasePD),
	}
}

// intRange returns an int in [lo, hi).
func (g *Generator) intRange(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo)
}

// floatRange returns a float in [lo, hi).
func (g *Generator) floatRange(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
