package geo

import (
	"math"
	"sort"
)

// EarthRadiusKm is the mean radius used for the spherical approximation.
const EarthRadiusKm = 6371.0

// DefaultThresholdKm is the delivery radius used when none is configured.
const DefaultThresholdKm = 1.0

// Point is a candidate location. Nil, NaN or out of range coordinates make the point invalid.
type Point struct {
	ID        string
	Name      string
	Latitude  *float64
	Longitude *float64
}

// RankedPoint is a Point annotated with its distance from the user.
// DistanceKm is nil for points with invalid coordinates.
type RankedPoint struct {
	Point
	DistanceKm *float64
}

// Eligibility is the outcome of NearestEligible.
type Eligibility struct {
	Points            []RankedPoint
	NearestDistanceKm *float64
	CanDeliver        bool
}

// DistanceKm returns the great-circle distance between two coordinates in kilometres,
// rounded to two decimal places.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return round2(EarthRadiusKm * c)
}

// ValidCoordinate reports whether lat/lon describe a real position.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// NearestEligible sorts points by distance from the user, ascending. Points with invalid
// coordinates keep their relative order at the end of the list. CanDeliver is true iff the
// nearest valid distance is within thresholdKm.
func NearestEligible(points []Point, userLat, userLon, thresholdKm float64) Eligibility {
	userValid := ValidCoordinate(userLat, userLon)

	ranked := make([]RankedPoint, 0, len(points))
	for _, p := range points {
		rp := RankedPoint{Point: p}
		if userValid && p.Latitude != nil && p.Longitude != nil && ValidCoordinate(*p.Latitude, *p.Longitude) {
			d := DistanceKm(userLat, userLon, *p.Latitude, *p.Longitude)
			rp.DistanceKm = &d
		}
		ranked = append(ranked, rp)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		di, dj := ranked[i].DistanceKm, ranked[j].DistanceKm
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})

	result := Eligibility{Points: ranked}
	if len(ranked) > 0 && ranked[0].DistanceKm != nil {
		nearest := *ranked[0].DistanceKm
		result.NearestDistanceKm = &nearest
		result.CanDeliver = nearest <= thresholdKm
	}
	return result
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
