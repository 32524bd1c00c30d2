package http

import (
	"fmt"
	"html/template"

	"github.com/couchcryptid/climate-stress-service/internal/domain"
	"github.com/shopspring/decimal"
)

// dashboardPage is the template data for the dashboard.
type dashboardPage struct {
	Report    domain.Report
	Scenarios []domain.Scenario
}

var templateFuncs = template.FuncMap{
	"crores": func(d decimal.Decimal) string {
		return "₹ " + domain.ToCrores(d).StringFixed(2) + " Cr"
	},
	"fixed": func(places int, v float64) string {
		return fmt.Sprintf("%.*f", places, v)
	},
	"rupees": func(v int64) string {
		return decimal.NewFromInt(v).StringFixed(0)
	},
}
