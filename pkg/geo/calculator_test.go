package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name  string
		from  Point
		to    Point
		want  float64
		delta float64
	}{
		{
			name:  "surabaya to sidoarjo",
			from:  NewPoint(-7.257056, 112.648000),
			to:    NewPoint(-7.6382862, 112.7372882),
			want:  43518.98,
			delta: 1,
		},
		{
			name:  "one degree of longitude on the equator",
			from:  NewPoint(0, 0),
			to:    NewPoint(0, 1),
			want:  111194.93,
			delta: 1,
		},
		{
			name:  "london to new york",
			from:  NewPoint(51.5007, 0.1246),
			to:    NewPoint(40.6892, -74.0445),
			want:  5591206.74,
			delta: 1,
		},
		{
			name:  "antipodal points",
			from:  NewPoint(0, 0),
			to:    NewPoint(0, 180),
			want:  EarthRadiusMeters * 3.141592653589793,
			delta: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.from, tt.to), tt.delta)
		})
	}
}

func TestDistanceSamePointIsZero(t *testing.T) {
	points := []Point{
		NewPoint(0, 0),
		NewPoint(-7.257056, 112.648000),
		NewPoint(90, 180),
		NewPoint(-90, -180),
	}
	for _, p := range points {
		d := Distance(p, p)
		assert.Equal(t, 0.0, d, p.String())
		assert.Equal(t, time.Duration(0), Duration(d, ProfileCar))
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	points := []Point{
		NewPoint(-7.257056, 112.648000),
		NewPoint(-7.6382862, 112.7372882),
		NewPoint(35.6762, 139.6503),
		NewPoint(-33.8688, 151.2093),
		NewPoint(64.1466, -21.9426),
	}
	for i := range points {
		for j := range points {
			assert.InDelta(t, Distance(points[i], points[j]), Distance(points[j], points[i]), 1e-6)
		}
	}
}

func TestMeasureCarScenario(t *testing.T) {
	est := Measure(NewPoint(-7.257056, 112.648000), NewPoint(-7.6382862, 112.7372882), ProfileCar)

	assert.InDelta(t, 43518.98, est.Meters, 1)
	assert.InDelta(t, 3133.37, est.Duration.Seconds(), 0.1)
	assert.Equal(t, "43.52 km", FormatDistance(est.Meters))
	assert.Equal(t, "52 min", FormatDuration(est.Duration))
}

func TestDuration(t *testing.T) {
	assert.Equal(t, time.Hour, Duration(5000, ProfileFoot))
	assert.Equal(t, time.Hour, Duration(40000, ProfileMotorcycle))
	assert.Equal(t, time.Hour, Duration(50000, ProfileCar))
	assert.Equal(t, time.Duration(0), Duration(0, ProfileFoot))
	assert.Equal(t, time.Duration(0), Duration(100, TravelProfile("TRAIN")))
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{0, "0 m"},
		{12.4, "12 m"},
		{999.4, "999 m"},
		{999.6, "1.00 km"},
		{1000, "1.00 km"},
		{43518.98, "43.52 km"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDistance(tt.meters))
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 sec"},
		{59*time.Second + 900*time.Millisecond, "59 sec"},
		{60 * time.Second, "1 min"},
		{59*time.Minute + 59*time.Second, "59 min"},
		{time.Hour, "1 h 0 min"},
		{2*time.Hour + 5*time.Minute + 30*time.Second, "2 h 5 min"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint(" -7.257056, 112.648000 ")
	require.NoError(t, err)
	assert.Equal(t, NewPoint(-7.257056, 112.648), p)

	p, err = ParsePoint("10.5 20.25")
	require.NoError(t, err)
	assert.Equal(t, NewPoint(10.5, 20.25), p)

	p, err = ParsePoint("10.5;20.25")
	require.NoError(t, err)
	assert.Equal(t, NewPoint(10.5, 20.25), p)

	_, err = ParsePoint("")
	assert.ErrorIs(t, err, ErrMalformedPoint)

	_, err = ParsePoint("north, east")
	assert.ErrorIs(t, err, ErrMalformedPoint)

	_, err = ParsePoint("1, 2, 3")
	assert.ErrorIs(t, err, ErrMalformedPoint)

	_, err = ParsePoint("91, 0")
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = ParsePoint("0, -180.5")
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile("Car")
	require.NoError(t, err)
	assert.Equal(t, ProfileCar, p)

	p, err = ParseProfile("walk")
	require.NoError(t, err)
	assert.Equal(t, ProfileFoot, p)

	_, err = ParseProfile("rocket")
	assert.Error(t, err)
}

func TestPointLabelFallsBackToCoordinates(t *testing.T) {
	p := NewPoint(-7.257056, 112.648)
	assert.Equal(t, "-7.257056, 112.648000", p.Label())

	p.Address = "Surabaya"
	assert.Equal(t, "Surabaya", p.Label())
}
