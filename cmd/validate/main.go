// Command validate checks a cached loan book end to end: the CSV schema,
// per-loan invariants against the district reference table, and the stress
// results for every scenario.
//
// Usage:
//
//	go run ./cmd/validate -cache realistic_loan_book.csv
//	go run ./cmd/validate -cache book.csv -districts districts.yaml
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/couchcryptid/climate-stress-service/internal/domain"
	"github.com/couchcryptid/climate-stress-service/internal/portfolio"
	"github.com/shopspring/decimal"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	cachePath := flag.String("cache", "realistic_loan_book.csv", "loan book cache to validate")
	districtsFile := flag.String("districts", "", "optional YAML district reference file")
	flag.Parse()

	if code := run(*cachePath, *districtsFile); code != 0 {
		os.Exit(code)
	}
}

func run(cachePath, districtsFile string) int {
	fmt.Println("=== Loan Book Integrity Validation ===")
	fmt.Println()

	districts := domain.DefaultDistricts()
	if districtsFile != "" {
		var err error
		districts, err = domain.LoadDistricts(districtsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load districts: %v\n", err)
			return 1
		}
	}

	schema := validateSchema(cachePath)
	phases := []*phase{schema}

	var rows []domain.PortfolioRow
	if schema.passed() {
		var err error
		rows, err = portfolio.NewCache(cachePath).Load()
		if err != nil {
			schema.errorf("load: %v", err)
		}
	}
	if schema.passed() {
		phases = append(phases, validateLoans(rows, districts))
		for _, sc := range domain.Scenarios() {
			phases = append(phases, validateScenario(rows, sc))
		}
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d loans across %d reference districts\n", len(rows), len(districts))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: CSV schema ──

func validateSchema(path string) *phase {
	p := &phase{name: "Phase 1: CSV schema"}

	f, err := os.Open(path)
	if err != nil {
		p.errorf("open: %v", err)
		return p
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		p.errorf("parse: %v", err)
		return p
	}
	if len(all) < 2 {
		p.errorf("no data rows")
		return p
	}

	expected := portfolio.CacheHeader()
	if got := strings.Join(all[0], ","); got != strings.Join(expected, ",") {
		p.errorf("header = %q, want %q", got, strings.Join(expected, ","))
	}
	for i, rec := range all[1:] {
		if len(rec) != len(expected) {
			p.errorf("line %d: %d columns, want %d", i+2, len(rec), len(expected))
		}
	}
	return p
}

// ── Phase 2: loan invariants ──

func validateLoans(rows []domain.PortfolioRow, districts []domain.District) *phase {
	p := &phase{name: "Phase 2: loan invariants"}
	index := domain.DistrictIndex(districts)
	seen := make(map[int]bool, len(rows))

	for _, r := range rows {
		if seen[r.ID] {
			p.errorf("loan %d: duplicate Loan_ID", r.ID)
		}
		seen[r.ID] = true

		if err := r.Loan.Validate(); err != nil {
			p.errorf("loan %d: %v", r.ID, err)
		}
		if r.Amount >= r.PropertyVal {
			p.errorf("loan %d: amount %d not below property value %d", r.ID, r.Amount, r.PropertyVal)
		}

		d, ok := index[r.District]
		if !ok {
			p.errorf("loan %d: district %q not in reference table", r.ID, r.District)
			continue
		}
		if !approxEqual(d.FloodRisk, r.FloodRisk) || !approxEqual(d.HeatRisk, r.HeatRisk) {
			p.errorf("loan %d: %s risk (%.2f, %.2f) differs from reference (%.2f, %.2f)",
				r.ID, r.District, r.FloodRisk, r.HeatRisk, d.FloodRisk, d.HeatRisk)
		}
		if d.HasCoordinates() && (!approxEqual(d.Lat, r.Lat) || !approxEqual(d.Lon, r.Lon)) {
			p.errorf("loan %d: %s coordinates (%.4f, %.4f) differ from reference (%.4f, %.4f)",
				r.ID, r.District, r.Lat, r.Lon, d.Lat, d.Lon)
		}
	}
	return p
}

// ── Phase 3+: stress results per scenario ──

func validateScenario(rows []domain.PortfolioRow, sc domain.Scenario) *phase {
	p := &phase{name: fmt.Sprintf("Phase 3%s: %s", strings.ToLower(sc.Key), sc.Name)}

	stressed, err := domain.StressPortfolio(rows, sc.Severity)
	if err != nil {
		p.errorf("stress: %v", err)
		return p
	}

	critical := decimal.Zero
	criticalCount := 0
	for _, s := range stressed {
		if s.StressedValue <= 0 {
			p.errorf("loan %d: stressed value %.2f not positive", s.ID, s.StressedValue)
		}
		if s.StressedValue > float64(s.PropertyVal) {
			p.errorf("loan %d: stressed value %.2f above property value %d", s.ID, s.StressedValue, s.PropertyVal)
		}
		if s.StressedPD < s.BasePD {
			p.errorf("loan %d: stressed PD %.4f below base PD %.4f", s.ID, s.StressedPD, s.BasePD)
		}
		if want := domain.Classify(s.StressedLTV, s.StressedPD); s.Status != want {
			p.errorf("loan %d: status %s, want %s", s.ID, s.Status, want)
		}
		if s.Status == domain.StatusCritical {
			critical = critical.Add(decimal.NewFromInt(s.Amount))
			criticalCount++
		}
	}

	sum := domain.Summarize(stressed)
	if sum.LoanCount != len(rows) {
		p.errorf("summary loan count %d, want %d", sum.LoanCount, len(rows))
	}
	if sum.CriticalCount != criticalCount {
		p.errorf("summary critical count %d, want %d", sum.CriticalCount, criticalCount)
	}
	if !sum.CapitalAtRisk.Equal(critical) {
		p.errorf("capital at risk %s, want %s", sum.CapitalAtRisk, critical)
	}
	if sum.CapitalAtRisk.GreaterThan(sum.TotalExposure) {
		p.errorf("capital at risk %s exceeds total %s", sum.CapitalAtRisk, sum.TotalExposure)
	}
	if n := len(domain.CriticalTable(stressed)); n != criticalCount {
		p.errorf("critical table has %d rows, want %d", n, criticalCount)
	}

	fmt.Printf("  %-30s critical=%3d  at risk=₹ %s Cr\n", sc.Name, criticalCount, sum.CapitalAtRiskCrores().StringFixed(2))
	return p
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
