package chain

import (
	"github.com/roach88/stat7/internal/canonical"
	"github.com/roach88/stat7/internal/stat7"
)

// applyMutation applies one event's mutation document to a manifestation.
//
// This single function serves both the live append path and replay: the
// payload is the only input, so a replayed log reconstructs state
// byte-identically to the original run. Any validation failure aborts with
// SchemaViolation; callers apply to a clone so nothing partial survives.
func applyMutation(m *stat7.Manifestation, mutationType stat7.MutationType, payload map[string]any) error {
	switch mutationType {
	case stat7.MutationGenesis:
		return applyGenesis(m, payload)
	case stat7.MutationStateSet:
		return applyStateSet(m, payload)
	case stat7.MutationStateDelete:
		return applyStateDelete(m, payload)
	case stat7.MutationLuminositySet:
		return applyLuminositySet(m, payload)
	case stat7.MutationCoordinatesSet:
		return applyCoordinatesSet(m, payload)
	case stat7.MutationHorizonAdvance:
		return applyHorizonAdvance(m)
	case stat7.MutationLinkSet:
		return applyLinkSet(m, payload)
	case stat7.MutationLinkRemove:
		return applyLinkRemove(m, payload)
	default:
		return canonical.Violation("mutation_type", "invalid mutation type %q", string(mutationType))
	}
}

// applyGenesis populates the mutable fields from the full initial snapshot.
func applyGenesis(m *stat7.Manifestation, payload map[string]any) error {
	coordMap, ok := payload["coordinates"].(map[string]any)
	if !ok {
		return canonical.Violation("payload.coordinates", "genesis payload requires a coordinates document")
	}
	coord, err := stat7.CoordinateFromMap(coordMap)
	if err != nil {
		return err
	}

	level := 0
	if raw, ok := payload["luminosity_level"]; ok {
		level, err = stat7.AsInt(raw)
		if err != nil {
			return canonical.Violation("payload.luminosity_level", "%v", err)
		}
	}

	state := map[string]any{}
	if raw, ok := payload["state"]; ok {
		state, ok = raw.(map[string]any)
		if !ok {
			return canonical.Violation("payload.state", "must be an object")
		}
	}

	var links []stat7.EntanglementLink
	if raw, ok := payload["entanglement_links"]; ok {
		rawList, ok := raw.([]any)
		if !ok {
			return canonical.Violation("payload.entanglement_links", "must be an array")
		}
		for _, elem := range rawList {
			linkMap, ok := elem.(map[string]any)
			if !ok {
				return canonical.Violation("payload.entanglement_links", "elements must be objects")
			}
			link, err := stat7.LinkFromMap(linkMap)
			if err != nil {
				return err
			}
			links = append(links, link)
		}
	}

	m.Coordinates = coord
	m.LuminosityLevel = level
	// Cloned: the payload stays a committed audit record, never an alias
	// of live state.
	m.State = stat7.CloneValueMap(state)
	m.EntanglementLinks = stat7.SortLinks(links)
	return nil
}

func applyStateSet(m *stat7.Manifestation, payload map[string]any) error {
	entries, ok := payload["entries"].(map[string]any)
	if !ok {
		return canonical.Violation("payload.entries", "state-set requires an entries object")
	}
	if m.State == nil {
		m.State = map[string]any{}
	}
	for k, v := range entries {
		m.State[k] = stat7.CloneValue(v)
	}
	return nil
}

func applyStateDelete(m *stat7.Manifestation, payload map[string]any) error {
	keys, err := payloadStrings(payload, "keys")
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(m.State, k)
	}
	return nil
}

func applyLuminositySet(m *stat7.Manifestation, payload map[string]any) error {
	raw, ok := payload["level"]
	if !ok {
		return canonical.Violation("payload.level", "luminosity-set requires a level")
	}
	level, err := stat7.AsInt(raw)
	if err != nil {
		return canonical.Violation("payload.level", "%v", err)
	}
	if level < 0 || level > stat7.MaxLuminosity {
		return canonical.Violation("payload.level", "must be in [0,%d], got %d", stat7.MaxLuminosity, level)
	}
	m.LuminosityLevel = level
	return nil
}

// applyCoordinatesSet replaces every axis except horizon, which only moves
// through horizon-advance.
func applyCoordinatesSet(m *stat7.Manifestation, payload map[string]any) error {
	coordMap, ok := payload["coordinates"].(map[string]any)
	if !ok {
		return canonical.Violation("payload.coordinates", "coordinates-set requires a coordinates document")
	}
	// Horizon is pinned to the current stage regardless of the document.
	coordMap = cloneShallow(coordMap)
	coordMap["horizon"] = string(m.Coordinates.Horizon)

	coord, err := stat7.CoordinateFromMap(coordMap)
	if err != nil {
		return err
	}
	m.Coordinates = coord
	return nil
}

// applyHorizonAdvance moves the lifecycle one stage forward. At the
// terminal stage this is a silent no-op: never an error, never a
// regression.
func applyHorizonAdvance(m *stat7.Manifestation) error {
	next, ok := m.Coordinates.Horizon.Next()
	if !ok {
		return nil
	}
	m.Coordinates.Horizon = next
	return nil
}

func applyLinkSet(m *stat7.Manifestation, payload map[string]any) error {
	linkMap, ok := payload["link"].(map[string]any)
	if !ok {
		return canonical.Violation("payload.link", "link-set requires a link document")
	}
	link, err := stat7.LinkFromMap(linkMap)
	if err != nil {
		return err
	}

	// Upsert by target id, keep canonical ordering.
	replaced := false
	for i := range m.EntanglementLinks {
		if m.EntanglementLinks[i].TargetID == link.TargetID {
			m.EntanglementLinks[i] = link
			replaced = true
			break
		}
	}
	if !replaced {
		m.EntanglementLinks = append(m.EntanglementLinks, link)
	}
	m.EntanglementLinks = stat7.SortLinks(m.EntanglementLinks)
	return nil
}

func applyLinkRemove(m *stat7.Manifestation, payload map[string]any) error {
	targetID, ok := payload["target_id"].(string)
	if !ok || targetID == "" {
		return canonical.Violation("payload.target_id", "link-remove requires a target id")
	}
	out := m.EntanglementLinks[:0]
	for _, l := range m.EntanglementLinks {
		if l.TargetID != targetID {
			out = append(out, l)
		}
	}
	m.EntanglementLinks = out
	return nil
}

func payloadStrings(payload map[string]any, key string) ([]string, error) {
	switch raw := payload[key].(type) {
	case []string:
		return raw, nil
	case []any:
		out := make([]string, len(raw))
		for i, elem := range raw {
			s, ok := elem.(string)
			if !ok {
				return nil, canonical.Violation("payload."+key, "elements must be strings")
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, canonical.Violation("payload."+key, "must be a string array")
	}
}

func cloneShallow(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
