package stats

import (
	"fmt"
	"math"
)

// Engine timing.
const (
	TicksPerGameHour   = 60
	TicksPerRealSecond = 2
)

// Starting stats for a fresh rider.
const (
	DefaultBedtimeHour     = 19
	DefaultWakeupHour      = 6
	DefaultHealth          = 100
	DefaultMaxMph          = 10
	DefaultMoneyRemaining  = 2000
	DefaultOddsHealthIssue = 0.4
	DefaultOddsMechIssue   = 0.4
)

// WeightLambda is the decay constant of speed over kit weight:
// speed = maxMph * e^(-lambda * weight).
const WeightLambda = 0.004

// Default returns the stats every new session starts from. MaxMph is
// positive so TicksPerMile is always defined for a fresh rider.
func Default() Vector {
	return Vector{
		BedtimeHour:     DefaultBedtimeHour,
		Health:          DefaultHealth,
		MaxMph:          DefaultMaxMph,
		MoneyRemaining:  DefaultMoneyRemaining,
		OddsHealthIssue: DefaultOddsHealthIssue,
		OddsMechIssue:   DefaultOddsMechIssue,
		Pace:            PaceFred,
		WakeupHour:      DefaultWakeupHour,
	}
}

// RealSpeed is the rounded speed in mph for a max speed and kit weight.
func RealSpeed(maxMph, kitWeight int) int {
	return int(math.Round(float64(maxMph) * math.Exp(-WeightLambda*float64(kitWeight))))
}

// CurrentSpeed is RealSpeed for a stat vector.
func CurrentSpeed(v Vector) int {
	return RealSpeed(v.MaxMph, v.KitWeight)
}

// TicksPerMile is how many ticks the rider needs to cover one mile.
// A rider faster than one mile per tick still needs one tick.
//
// It panics when the current speed is not positive; a stalled rider is a
// broken ruleset, not a game state.
func TicksPerMile(v Vector) int {
	speed := CurrentSpeed(v)
	if speed <= 0 {
		panic(fmt.Sprintf("stats: current speed %d is not positive (max_mph=%d kit_weight=%d)", speed, v.MaxMph, v.KitWeight))
	}
	return max(TicksPerGameHour/speed, 1)
}
