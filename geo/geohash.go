// Package geo provides the geohash index used for coarse proximity
// bucketing of exchange posts, plus great-circle distance. Pure functions,
// no state.
package geo

import (
	"math"
	"strings"

	"kolekta/objects"
)

const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// PostPrecision is the geohash prefix length stored on every exchange post.
// Precision 5 buckets the world into cells of roughly 4.9 x 4.9 km.
const PostPrecision = 5

const earthRadiusKm = 6371.0

// ValidateCoordinates rejects NaN and out-of-range coordinates before they
// reach the store or the encoder.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return objects.NewValidationError("lat", "must be a number between -90 and 90")
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return objects.NewValidationError("lon", "must be a number between -180 and 180")
	}
	return nil
}

// Encode returns the geohash prefix of (lat, lon) at the given precision.
// Deterministic: points in the same grid cell always yield the same prefix.
func Encode(lat, lon float64, precision int) (string, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return "", err
	}
	if precision < 1 || precision > 12 {
		return "", objects.NewValidationError("precision", "must be between 1 and 12")
	}

	latRange := [2]float64{-90, 90}
	lonRange := [2]float64{-180, 180}

	var sb strings.Builder
	sb.Grow(precision)

	bits := 0
	ch := 0
	even := true // longitude bit first

	for sb.Len() < precision {
		if even {
			mid := (lonRange[0] + lonRange[1]) / 2
			if lon >= mid {
				ch = ch<<1 | 1
				lonRange[0] = mid
			} else {
				ch = ch << 1
				lonRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat >= mid {
				ch = ch<<1 | 1
				latRange[0] = mid
			} else {
				ch = ch << 1
				latRange[1] = mid
			}
		}
		even = !even

		bits++
		if bits == 5 {
			sb.WriteByte(base32[ch])
			bits = 0
			ch = 0
		}
	}

	return sb.String(), nil
}

// Decode returns the center of the grid cell identified by the geohash.
// Approximate inverse of Encode: Decode(Encode(p)) is within the cell
// containing p.
func Decode(geohash string) (lat, lon float64, err error) {
	if geohash == "" {
		return 0, 0, objects.NewValidationError("geohash", "must not be empty")
	}

	latRange := [2]float64{-90, 90}
	lonRange := [2]float64{-180, 180}
	even := true

	for _, c := range strings.ToLower(geohash) {
		cd := strings.IndexRune(base32, c)
		if cd < 0 {
			return 0, 0, objects.NewValidationError("geohash", "invalid character")
		}
		for mask := 16; mask > 0; mask >>= 1 {
			if even {
				mid := (lonRange[0] + lonRange[1]) / 2
				if cd&mask != 0 {
					lonRange[0] = mid
				} else {
					lonRange[1] = mid
				}
			} else {
				mid := (latRange[0] + latRange[1]) / 2
				if cd&mask != 0 {
					latRange[0] = mid
				} else {
					latRange[1] = mid
				}
			}
			even = !even
		}
	}

	return (latRange[0] + latRange[1]) / 2, (lonRange[0] + lonRange[1]) / 2, nil
}

// DistanceKm calculates the great-circle distance between two points in
// kilometers using the Haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	// Convert degrees to radians
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	// Haversine formula
	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
