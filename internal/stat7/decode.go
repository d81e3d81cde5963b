package stat7

import (
	"encoding/json"

	"github.com/roach88/stat7/internal/canonical"
)

// Payload documents arrive from two directions: in-memory construction
// (Go ints and floats) and decoded canonical JSON (json.Number). The
// coercers below accept both so mutation application behaves identically
// on the live path and on replay.

// CoordinateFromMap rebuilds a Coordinate from its canonical map form.
func CoordinateFromMap(m map[string]any) (Coordinate, error) {
	realm, err := ParseRealm(asString(m["realm"]))
	if err != nil {
		return Coordinate{}, err
	}
	horizon, err := ParseHorizon(asString(m["horizon"]))
	if err != nil {
		return Coordinate{}, err
	}

	lineage := asString(m["lineage"])
	if lineage == "" {
		return Coordinate{}, canonical.Violation("lineage", "must not be empty")
	}

	adjacency, err := asStringSlice(m["adjacency"])
	if err != nil {
		return Coordinate{}, canonical.Violation("adjacency", "%v", err)
	}

	resonance, err := AsFloat(m["resonance"])
	if err != nil {
		return Coordinate{}, canonical.Violation("resonance", "%v", err)
	}
	velocity, err := AsFloat(m["velocity"])
	if err != nil {
		return Coordinate{}, canonical.Violation("velocity", "%v", err)
	}
	density, err := AsFloat(m["density"])
	if err != nil {
		return Coordinate{}, canonical.Violation("density", "%v", err)
	}

	return NewCoordinate(realm, lineage, adjacency, horizon, resonance, velocity, density)
}

// LinkFromMap rebuilds an EntanglementLink from its canonical map form.
func LinkFromMap(m map[string]any) (EntanglementLink, error) {
	strength, err := AsFloat(m["resonance_strength"])
	if err != nil {
		return EntanglementLink{}, canonical.Violation("entanglement_links.resonance_strength", "%v", err)
	}
	confidence, err := AsFloat(m["confidence"])
	if err != nil {
		return EntanglementLink{}, canonical.Violation("entanglement_links.confidence", "%v", err)
	}

	link := EntanglementLink{
		TargetID:          asString(m["target_id"]),
		ResonanceStrength: strength,
		Type:              asString(m["type"]),
		Confidence:        confidence,
	}
	if err := link.Validate(); err != nil {
		return EntanglementLink{}, err
	}
	return link, nil
}

// AsFloat coerces a canonical numeric value to float64.
func AsFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, canonical.Violation("", "expected number, got %T", v)
	}
}

// AsInt coerces a canonical numeric value to int. Fractional values are
// rejected rather than truncated.
func AsInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, canonical.Violation("", "expected integer, got %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, canonical.Violation("", "expected integer, got %s", string(n))
		}
		return int(i), nil
	default:
		return 0, canonical.Violation("", "expected integer, got %T", v)
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v any) ([]string, error) {
	switch vals := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return vals, nil
	case []any:
		out := make([]string, len(vals))
		for i, elem := range vals {
			s, ok := elem.(string)
			if !ok {
				return nil, canonical.Violation("", "expected string element, got %T", elem)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, canonical.Violation("", "expected string array, got %T", v)
	}
}
