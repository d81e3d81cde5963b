package store

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/stat7/internal/canonical"
	"github.com/roach88/stat7/internal/stat7"
)

// marshalDoc converts a manifestation's mutable state to canonical JSON
// TEXT for storage. The stored doc is exactly the hash input, so a row's
// canonical_hash can be re-verified against its own doc column.
func marshalDoc(m *stat7.Manifestation) (string, error) {
	data, err := canonical.Marshal(m.StateMap())
	if err != nil {
		return "", fmt.Errorf("marshal doc: %w", err)
	}
	return string(data), nil
}

// unmarshalDoc rebuilds the mutable state of a manifestation from its
// stored canonical doc. The immutable shell and derived columns are
// restored by the caller from their own columns.
func unmarshalDoc(doc string, m *stat7.Manifestation) error {
	decoded, err := canonical.Decode([]byte(doc))
	if err != nil {
		return fmt.Errorf("unmarshal doc: %w", err)
	}
	fields, ok := decoded.(map[string]any)
	if !ok {
		return fmt.Errorf("unmarshal doc: expected object, got %T", decoded)
	}

	coordMap, ok := fields["coordinates"].(map[string]any)
	if !ok {
		return fmt.Errorf("unmarshal doc: missing coordinates object")
	}
	coord, err := stat7.CoordinateFromMap(coordMap)
	if err != nil {
		return fmt.Errorf("unmarshal doc: %w", err)
	}

	level, err := stat7.AsInt(fields["luminosity_level"])
	if err != nil {
		return fmt.Errorf("unmarshal doc: luminosity_level: %w", err)
	}

	state, ok := fields["state"].(map[string]any)
	if !ok {
		return fmt.Errorf("unmarshal doc: missing state object")
	}

	var links []stat7.EntanglementLink
	if rawLinks, ok := fields["entanglement_links"].([]any); ok {
		for i, elem := range rawLinks {
			linkMap, ok := elem.(map[string]any)
			if !ok {
				return fmt.Errorf("unmarshal doc: entanglement_links[%d]: expected object", i)
			}
			link, err := stat7.LinkFromMap(linkMap)
			if err != nil {
				return fmt.Errorf("unmarshal doc: entanglement_links[%d]: %w", i, err)
			}
			links = append(links, link)
		}
	}

	m.Coordinates = coord
	m.LuminosityLevel = level
	m.State = state
	m.EntanglementLinks = links
	return nil
}

// marshalPayload converts an event's mutation document to canonical JSON
// TEXT.
func marshalPayload(payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := canonical.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT into a mutation document.
// Numbers come back as json.Number, which the mutation appliers accept,
// so replayed state is byte-identical to the original run.
func unmarshalPayload(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return map[string]any{}, nil
	}
	decoded, err := canonical.Decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	payload, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unmarshal payload: expected object, got %T", decoded)
	}
	return payload, nil
}

// parseEventID parses a stored event id column.
func parseEventID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse event id %q: %w", s, err)
	}
	return id, nil
}
