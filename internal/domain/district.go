package domain

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// District is the static climate-risk reference record for one district.
type District struct {
	Name      string  `yaml:"name" json:"name"`
	FloodRisk float64 `yaml:"flood_risk" json:"flood_risk"`
	HeatRisk  float64 `yaml:"heat_risk" json:"heat_risk"`
	Lat       float64 `yaml:"lat" json:"lat"`
	Lon       float64 `yaml:"lon" json:"lon"`
	Metro     bool    `yaml:"metro" json:"metro"`
	Region    string  `yaml:"region,omitempty" json:"region,omitempty"`
}

// HasCoordinates reports whether the district has a usable map position.
func (d District) HasCoordinates() bool {
	return d.Lat != 0 || d.Lon != 0
}

// Validate checks the risk scores and name.
func (d District) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("district name is required")
	}
	if d.FloodRisk < 0 || d.FloodRisk > 1 {
		return fmt.Errorf("district %q: flood_risk %v out of [0,1]", d.Name, d.FloodRisk)
	}
	if d.HeatRisk < 0 || d.HeatRisk > 1 {
		return fmt.Errorf("district %q: heat_risk %v out of [0,1]", d.Name, d.HeatRisk)
	}
	if d.Lat < -90 || d.Lat > 90 || d.Lon < -180 || d.Lon > 180 {
		return fmt.Errorf("district %q: coordinate %v,%v out of range", d.Name, d.Lat, d.Lon)
	}
	return nil
}

var defaultDistricts = []District{
	{Name: "Mumbai Suburban", FloodRisk: 0.90, HeatRisk: 0.50, Lat: 19.07, Lon: 72.87, Metro: true},
	{Name: "Bengaluru Urban", FloodRisk: 0.75, HeatRisk: 0.45, Lat: 12.97, Lon: 77.59},
	{Name: "Chennai", FloodRisk: 0.95, HeatRisk: 0.70, Lat: 13.08, Lon: 80.27},
	{Name: "Jaipur", FloodRisk: 0.20, HeatRisk: 0.98, Lat: 26.91, Lon: 75.78},
	{Name: "Patna", FloodRisk: 0.90, HeatRisk: 0.80, Lat: 25.59, Lon: 85.13},
	{Name: "Gurugram", FloodRisk: 0.30, HeatRisk: 0.88, Lat: 28.45, Lon: 77.02, Metro: true},
	{Name: "Hyderabad", FloodRisk: 0.60, HeatRisk: 0.85, Lat: 17.38, Lon: 78.48},
	{Name: "Kolkata", FloodRisk: 0.85, HeatRisk: 0.60, Lat: 22.57, Lon: 88.36},
}

// DefaultDistricts returns a copy of the built-in district reference table.
func DefaultDistricts() []District {
	out := make([]District, len(defaultDistricts))
	copy(out, defaultDistricts)
	return out
}

// districtFile is the on-disk layout of a district reference file.
type districtFile struct {
	Districts []District `yaml:"districts"`
}

// LoadDistricts reads a YAML district reference file. Entries may omit
// coordinates; callers resolve those with ResolveDistrictCoordinates.
func LoadDistricts(path string) ([]District, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read districts file: %w", err)
	}
	return ParseDistricts(data)
}

// ParseDistricts decodes a YAML district reference document.
func ParseDistricts(data []byte) ([]District, error) {
	var f districtFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode districts: %w", err)
	}
	if len(f.Districts) == 0 {
		return nil, errors.New("districts file lists no districts")
	}

	seen := make(map[string]struct{}, len(f.Districts))
	for i := range f.Districts {
		d := &f.Districts[i]
		d.Name = strings.TrimSpace(d.Name)
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("district %q listed twice", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return f.Districts, nil
}

// DistrictIndex maps district names to their reference records.
func DistrictIndex(districts []District) map[string]District {
	idx := make(map[string]District, len(districts))
	for _, d := range districts {
		idx[d.Name] = d
	}
	return idx
}
