// Command genportfolio writes the synthetic loan book cache and prints how
// each scenario stresses it. Use it to pin a reproducible book before
// starting the service.
//
// Usage:
//
//	go run ./cmd/genportfolio -seed 42 -out realistic_loan_book.csv
//	go run ./cmd/genportfolio -seed 7 -size 500 -force
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"sort"

	"github.com/couchcryptid/climate-stress-service/internal/domain"
	"github.com/couchcryptid/climate-stress-service/internal/portfolio"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "realistic_loan_book.csv", "cache file to write")
	seed := flag.Uint64("seed", 0, "generator seed (0 uses the clock)")
	size := flag.Int("size", portfolio.DefaultSize, "number of loans")
	districtsFile := flag.String("districts", "", "optional YAML district reference file (coordinates required)")
	force := flag.Bool("force", false, "overwrite an existing cache")
	flag.Parse()

	if *size <= 0 {
		return fmt.Errorf("-size must be positive")
	}

	cache := portfolio.NewCache(*out)
	if !*force {
		if _, err := cache.Load(); err == nil {
			return fmt.Errorf("%s already holds a valid book; pass -force to overwrite", *out)
		} else if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("existing cache unusable, replacing: %v", err)
		}
	}

	districts := domain.DefaultDistricts()
	if *districtsFile != "" {
		var err error
		districts, err = domain.LoadDistricts(*districtsFile)
		if err != nil {
			return err
		}
		for _, d := range districts {
			if !d.HasCoordinates() {
				return fmt.Errorf("district %q has no coordinates; run the service with Mapbox enabled or add lat/lon", d.Name)
			}
		}
	}

	s := *seed
	if s == 0 {
		s = uint64(domain.Now().UnixNano())
	}
	gen, err := portfolio.NewGenerator(districts, s)
	if err != nil {
		return err
	}

	rows := gen.Generate(*size)
	if err := cache.Save(rows); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	log.Printf("wrote %d loans to %s (seed %d)", len(rows), *out, s)

	return printStats(rows)
}

func printStats(rows []domain.PortfolioRow) error {
	counts := map[string]int{}
	for _, r := range rows {
		counts[r.District]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return counts[names[i]] > counts[names[j]] })

	fmt.Println("\n=== Loans by district ===")
	for _, n := range names {
		fmt.Printf("  %-16s %d\n", n, counts[n])
	}

	fmt.Println("\n=== Scenario results ===")
	for _, sc := range domain.Scenarios() {
		stressed, err := domain.StressPortfolio(rows, sc.Severity)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", sc.Key, err)
		}
		s := domain.Summarize(stressed)
		fmt.Printf("  %-30s critical=%3d  at risk=₹ %s Cr of ₹ %s Cr\n",
			sc.Name, s.CriticalCount,
			s.CapitalAtRiskCrores().StringFixed(2), s.TotalCrores().StringFixed(2))
	}
	return nil
}
