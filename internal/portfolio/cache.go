package portfolio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/couchcryptid/climate-stress-service/internal/domain"
)

// ErrMalformedCache marks a cache file that exists but cannot be trusted.
var ErrMalformedCache = errors.New("malformed portfolio cache")

var cacheHeader = []string{
	"Loan_ID", "Customer_Name", "District", "Property_Value", "Loan_Amount",
	"Base_PD", "Flood_Risk", "Heat_Risk", "Lat", "Lon",
}

// CacheHeader returns the column names of the cache file, in order.
func CacheHeader() []string {
	return slices.Clone(cacheHeader)
}

// Cache persists the joined loan book as a CSV file.
type Cache struct {
	path string
}

// NewCache returns a cache backed by the file at path.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Path is the cache file location.
func (c *Cache) Path() string { return c.path }

// Load reads the cached book. A missing file returns an error matching
// fs.ErrNotExist; a file that does not parse returns ErrMalformedCache.
func (c *Cache) Load() ([]domain.PortfolioRow, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("open portfolio cache: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCache, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: no data rows", ErrMalformedCache)
	}
	if !slices.Equal(records[0], cacheHeader) {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrMalformedCache, records[0])
	}

	rows := make([]domain.PortfolioRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCache, i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Save writes the book to a temporary file and renames it over the cache,
// so readers never observe a half-written file.
func (c *Cache) Save(rows []domain.PortfolioRow) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".portfolio-*.csv")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(cacheHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(formatRow(r)); err != nil {
			tmp.Close()
			return fmt.Errorf("write cache row %d: %w", r.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

func formatRow(r domain.PortfolioRow) []string {
	return []string{
		strconv.Itoa(r.ID),
		r.CustomerName,
		r.District,
		strconv.FormatInt(r.PropertyVal, 10),
		strconv.FormatInt(r.Amount, 10),
		formatFloat(r.BasePD),
		formatFloat(r.FloodRisk),
		formatFloat(r.HeatRisk),
		formatFloat(r.Lat),
		formatFloat(r.Lon),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseRow(rec []string) (domain.PortfolioRow, error) {
	if len(rec) != len(cacheHeader) {
		return domain.PortfolioRow{}, fmt.Errorf("expected %d columns, got %d", len(cacheHeader), len(rec))
	}

	var (
		row  domain.PortfolioRow
		errs []error
	)
	row.ID = int(parseInt(rec[0], "Loan_ID", &errs))
	row.CustomerName = rec[1]
	row.District = rec[2]
	row.PropertyVal = parseInt(rec[3], "Property_Value", &errs)
	row.Amount = parseInt(rec[4], "Loan_Amount", &errs)
	row.BasePD = parseFloat(rec[5], "Base_PD", &errs)
	row.FloodRisk = parseFloat(rec[6], "Flood_Risk", &errs)
	row.HeatRisk = parseFloat(rec[7], "Heat_Risk", &errs)
	row.Lat = parseFloat(rec[8], "Lat", &errs)
	row.Lon = parseFloat(rec[9], "Lon", &errs)
	if err := errors.Join(errs...); err != nil {
		return domain.PortfolioRow{}, err
	}

	if err := row.Loan.Validate(); err != nil {
		return domain.PortfolioRow{}, err
	}
	if row.FloodRisk < 0 || row.FloodRisk > 1 || row.HeatRisk < 0 || row.HeatRisk > 1 {
		return domain.PortfolioRow{}, fmt.Errorf("loan %d: risk scores out of [0,1]", row.ID)
	}
	return row, nil
}

func parseInt(s, col string, errs *[]error) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", col, err))
	}
	return v
}

func parseFloat(s, col string, errs *[]error) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", col, err))
	}
	return v
}
