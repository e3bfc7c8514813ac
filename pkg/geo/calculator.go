package geo

import (
	"fmt"
	"math"
	"time"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// Estimate is the full result of a two-point measurement.
type Estimate struct {
	From     Point         `json:"from"`
	To       Point         `json:"to"`
	Profile  TravelProfile `json:"profile"`
	Meters   float64       `json:"meters"`
	Duration time.Duration `json:"duration"`
}

// Distance returns the great-circle distance in meters.
func Distance(p1, p2 Point) float64 {
	if p1.Equal(p2) {
		return 0
	}

	lat1 := toRadians(p1.Latitude)
	lat2 := toRadians(p2.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(p2.Longitude - p1.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push a marginally above 1 for antipodal points
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Duration estimates travel time for the distance at the profile's average speed.
func Duration(meters float64, profile TravelProfile) time.Duration {
	kmh := profile.SpeedKmh()
	if meters <= 0 || kmh <= 0 {
		return 0
	}
	hours := meters / 1000 / kmh
	return time.Duration(hours * float64(time.Hour))
}

// Measure runs the distance and duration computation for a pair of points.
func Measure(p1, p2 Point, profile TravelProfile) Estimate {
	meters := Distance(p1, p2)
	return Estimate{
		From:     p1,
		To:       p2,
		Profile:  profile,
		Meters:   meters,
		Duration: Duration(meters, profile),
	}
}

// FormatDistance renders whole meters below 1 km and kilometers with two
// decimals otherwise.
func FormatDistance(meters float64) string {
	if rounded := math.Round(meters); rounded < 1000 {
		return fmt.Sprintf("%d m", int64(rounded))
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// FormatDuration renders whole seconds below a minute, floored minutes below an
// hour and hours plus minutes otherwise.
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	switch {
	case seconds < 60:
		return fmt.Sprintf("%d sec", int64(math.Floor(seconds)))
	case seconds < 3600:
		return fmt.Sprintf("%d min", int64(math.Floor(seconds/60)))
	default:
		total := int64(math.Floor(seconds / 60))
		return fmt.Sprintf("%d h %d min", total/60, total%60)
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
