package tracker

import "math/rand/v2"

// Wire event names.
const (
	EventSendLocation   = "sendLocation"
	EventLocationUpdate = "locationUpdate"
)

// MaxJitter is the largest per-axis change, in degrees, between a seed and
// the reading synthesized from it.
const MaxJitter = 0.0005

// Seed is the reference point the first reading is derived from.
var Seed = Location{Latitude: 40.7128, Longitude: -74.0060}

// Location is the payload of both telemetry events.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Perturb moves l by a uniform random delta of at most MaxJitter per axis.
func Perturb(l Location, rng *rand.Rand) Location {
	return Location{
		Latitude:  l.Latitude + (rng.Float64()-0.5)*2*MaxJitter,
		Longitude: l.Longitude + (rng.Float64()-0.5)*2*MaxJitter,
	}
}
