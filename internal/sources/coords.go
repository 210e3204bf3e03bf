package sources

import (
	"math"

	"portfolio-api/internal/common/errors"
)

// ValidateCoordinates rejects values outside the WGS84 range
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return errors.ValidationError("coordinates out of range")
	}
	return nil
}
