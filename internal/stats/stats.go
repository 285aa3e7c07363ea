// Package stats holds the player's stat vector and the arithmetic rules
// that turn it into speed, time and issue odds.
package stats

import (
	"fmt"
	"strings"
)

// Pace is how hard the rider is pushing. PaceUnset never overwrites
// another pace during a merge.
type Pace int

const (
	PaceUnset Pace = iota
	PaceChillAF
	PaceFred
	PaceMerckx
)

var paceNames = map[Pace]string{
	PaceUnset:   "",
	PaceChillAF: "CHILL_AF",
	PaceFred:    "FRED",
	PaceMerckx:  "MERCKX",
}

func (p Pace) String() string {
	if name, ok := paceNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Pace(%d)", int(p))
}

// ParsePace maps a content name such as "MERCKX" to a Pace.
func ParsePace(s string) (Pace, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for p, name := range paceNames {
		if name == s {
			return p, nil
		}
	}
	return PaceUnset, fmt.Errorf("unknown pace %q", s)
}

func (p Pace) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pace) UnmarshalText(b []byte) error {
	parsed, err := ParsePace(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Vector is the player's condition. The zero Vector is the additive
// identity: merging it into any base leaves the base unchanged.
type Vector struct {
	BedtimeHour     int     `yaml:"bedtime_hour" json:"bedtime_hour"`
	Health          int     `yaml:"health" json:"health"` // at or below 0 the rider is dead
	KitWeight       int     `yaml:"kit_weight" json:"kit_weight"`
	MaxMph          int     `yaml:"max_mph" json:"max_mph"`
	MoneyRemaining  int     `yaml:"money_remaining" json:"money_remaining"`
	OddsHealthIssue float64 `yaml:"odds_health_issue" json:"odds_health_issue"`
	OddsMechIssue   float64 `yaml:"odds_mech_issue" json:"odds_mech_issue"`
	Pace            Pace    `yaml:"pace" json:"pace"`
	WakeupHour      int     `yaml:"wakeup_hour" json:"wakeup_hour"`
}

// Merge returns base with delta applied. Numeric fields are summed. Pace
// is taken from delta, but only when delta sets one.
func Merge(base, delta Vector) Vector {
	out := Vector{
		BedtimeHour:     base.BedtimeHour + delta.BedtimeHour,
		Health:          base.Health + delta.Health,
		KitWeight:       base.KitWeight + delta.KitWeight,
		MaxMph:          base.MaxMph + delta.MaxMph,
		MoneyRemaining:  base.MoneyRemaining + delta.MoneyRemaining,
		OddsHealthIssue: base.OddsHealthIssue + delta.OddsHealthIssue,
		OddsMechIssue:   base.OddsMechIssue + delta.OddsMechIssue,
		Pace:            base.Pace,
		WakeupHour:      base.WakeupHour + delta.WakeupHour,
	}
	if delta.Pace != PaceUnset {
		out.Pace = delta.Pace
	}
	return out
}

// IsZero reports whether v is the identity vector.
func (v Vector) IsZero() bool {
	return v == Vector{}
}

// Awake reports whether hour falls inside [WakeupHour, BedtimeHour).
func (v Vector) Awake(hour int) bool {
	return v.WakeupHour <= hour && hour < v.BedtimeHour
}
