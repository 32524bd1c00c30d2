package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ResolveDistrictCoordinates fills in coordinates for districts that lack
// them. Districts that already have coordinates are never looked up. Any
// district still without a position afterwards is reported in the error,
// since loans there could not be placed on the map.
func ResolveDistrictCoordinates(ctx context.Context, districts []District, geocoder Geocoder, logger *slog.Logger) ([]District, error) {
	out := make([]District, len(districts))
	copy(out, districts)

	var unresolved []string
	for i := range out {
		d := &out[i]
		if d.HasCoordinates() {
			continue
		}
		if geocoder == nil {
			unresolved = append(unresolved, d.Name)
			continue
		}

		result, err := geocoder.ForwardGeocode(ctx, d.Name, d.Region)
		if err != nil {
			logger.Warn("district geocoding failed",
				"district", d.Name,
				"region", d.Region,
				"error", err,
			)
			unresolved = append(unresolved, d.Name)
			continue
		}
		if result.Lat == 0 && result.Lon == 0 {
			logger.Warn("district geocoding returned no match", "district", d.Name, "region", d.Region)
			unresolved = append(unresolved, d.Name)
			continue
		}

		d.Lat = result.Lat
		d.Lon = result.Lon
		logger.Info("district geocoded",
			"district", d.Name,
			"lat", d.Lat,
			"lon", d.Lon,
			"place", result.FormattedAddress,
			"confidence", result.Confidence,
		)
	}

	if len(unresolved) > 0 {
		return nil, fmt.Errorf("districts without coordinates: %s", strings.Join(unresolved, ", "))
	}
	return out, nil
}
