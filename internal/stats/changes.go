package stats

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Delta is a Vector read from a content "stat_changes" field. Content may
// write it as a list of single-key maps ([{health: -60}, {max_mph: -3}])
// or as one map ({health: -60, max_mph: -3}).
type Delta Vector

// Vector returns d as a plain Vector.
func (d Delta) Vector() Vector { return Vector(d) }

func (d *Delta) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseChanges(node)
	if err != nil {
		return err
	}
	*d = Delta(v)
	return nil
}

// ParseChanges decodes a stat_changes node. Unknown stat names and values
// of the wrong type are errors.
func ParseChanges(node *yaml.Node) (Vector, error) {
	var out Vector
	if node == nil {
		return out, nil
	}
	switch node.Kind {
	case yaml.SequenceNode:
		for _, entry := range node.Content {
			if entry.Kind != yaml.MappingNode {
				return Vector{}, fmt.Errorf("line %d: stat change must be a map", entry.Line)
			}
			if err := applyMapping(&out, entry); err != nil {
				return Vector{}, err
			}
		}
	case yaml.MappingNode:
		if err := applyMapping(&out, node); err != nil {
			return Vector{}, err
		}
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return out, nil
		}
		return Vector{}, fmt.Errorf("line %d: stat_changes must be a list or a map", node.Line)
	default:
		return Vector{}, fmt.Errorf("line %d: stat_changes must be a list or a map", node.Line)
	}
	return out, nil
}

func applyMapping(v *Vector, m *yaml.Node) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		name, value := m.Content[i].Value, m.Content[i+1]
		if err := applyField(v, name, value); err != nil {
			return fmt.Errorf("line %d: %s: %w", value.Line, name, err)
		}
	}
	return nil
}

func applyField(v *Vector, name string, value *yaml.Node) error {
	var target *int
	switch name {
	case "bedtime_hour":
		target = &v.BedtimeHour
	case "health":
		target = &v.Health
	case "kit_weight":
		target = &v.KitWeight
	case "max_mph":
		target = &v.MaxMph
	case "money_remaining":
		target = &v.MoneyRemaining
	case "wakeup_hour":
		target = &v.WakeupHour
	case "odds_health_issue", "odds_mech_issue":
		var f float64
		if err := value.Decode(&f); err != nil {
			return err
		}
		if name == "odds_health_issue" {
			v.OddsHealthIssue += f
		} else {
			v.OddsMechIssue += f
		}
		return nil
	case "pace":
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		p, err := ParsePace(s)
		if err != nil {
			return err
		}
		v.Pace = p
		return nil
	default:
		return fmt.Errorf("unknown stat")
	}
	// Decode would truncate 0.5 to 0.
	if value.Kind != yaml.ScalarNode || value.ShortTag() != "!!int" {
		return fmt.Errorf("expected a whole number, got %q", value.Value)
	}
	var n int
	if err := value.Decode(&n); err != nil {
		return err
	}
	*target += n
	return nil
}
