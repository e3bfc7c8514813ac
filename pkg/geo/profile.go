package geo

import (
	"fmt"
	"strings"
)

type TravelProfile string

const (
	ProfileFoot       TravelProfile = "FOOT"
	ProfileMotorcycle TravelProfile = "MOTORCYCLE"
	ProfileCar        TravelProfile = "CAR"
)

// Average speeds in km/h. Used for time estimation only.
var profileSpeeds = map[TravelProfile]float64{
	ProfileFoot:       5,
	ProfileMotorcycle: 40,
	ProfileCar:        50,
}

var profileAliases = map[string]TravelProfile{
	"foot":       ProfileFoot,
	"walk":       ProfileFoot,
	"walking":    ProfileFoot,
	"motorcycle": ProfileMotorcycle,
	"motor":      ProfileMotorcycle,
	"bike":       ProfileMotorcycle,
	"car":        ProfileCar,
	"mobil":      ProfileCar,
}

func Profiles() []TravelProfile {
	return []TravelProfile{ProfileFoot, ProfileMotorcycle, ProfileCar}
}

func ParseProfile(s string) (TravelProfile, error) {
	if p, ok := profileAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown travel profile %q", s)
}

func (p TravelProfile) Valid() bool {
	_, ok := profileSpeeds[p]
	return ok
}

// SpeedKmh returns the average speed bound to the profile.
func (p TravelProfile) SpeedKmh() float64 {
	return profileSpeeds[p]
}

func (p TravelProfile) Label() string {
	switch p {
	case ProfileFoot:
		return "on foot"
	case ProfileMotorcycle:
		return "by motorcycle"
	case ProfileCar:
		return "by car"
	}
	return strings.ToLower(string(p))
}
