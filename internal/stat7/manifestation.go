package stat7

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/stat7/internal/canonical"
)

// MaxLuminosity bounds the luminosity level axis (0–7).
const MaxLuminosity = 7

// EntanglementLink relates a manifestation to another entity with bounded
// strength and confidence. Link lists are canonically sorted by target id.
type EntanglementLink struct {
	TargetID          string
	ResonanceStrength float64
	Type              string
	Confidence        float64
}

// Validate bound-checks the link scalars.
func (l EntanglementLink) Validate() error {
	if l.TargetID == "" {
		return canonical.Violation("entanglement_links.target_id", "must not be empty")
	}
	if err := canonical.CheckUnit("entanglement_links.resonance_strength", l.ResonanceStrength); err != nil {
		return err
	}
	if err := canonical.CheckUnit("entanglement_links.confidence", l.Confidence); err != nil {
		return err
	}
	return nil
}

// CanonicalMap returns the hash input form of the link.
func (l EntanglementLink) CanonicalMap() map[string]any {
	return map[string]any{
		"confidence":         l.Confidence,
		"resonance_strength": l.ResonanceStrength,
		"target_id":          l.TargetID,
		"type":               l.Type,
	}
}

// Manifestation is a versioned snapshot of an entity bound to a reality
// branch. It is created at entity genesis and mutated only by appending
// bit-chain events — never edited or deleted.
//
// EntityID, RealityBranch, and Timestamp are the immutable shell; the
// remaining non-derived fields evolve through the event log. CanonicalHash,
// AdjacencyHash, Stat7Address, and ChainIntegrityHash are derived and are
// never part of the hash input that produces them.
type Manifestation struct {
	EntityID          uuid.UUID
	RealityBranch     string
	Timestamp         time.Time
	LuminosityLevel   int
	Coordinates       Coordinate
	State             map[string]any
	EntanglementLinks []EntanglementLink
	Events            []BitChainEvent

	CanonicalHash      string
	AdjacencyHash      string
	Stat7Address       string
	ChainIntegrityHash string
}

// NewShell creates the pre-genesis form of a manifestation: the immutable
// identity fields set, every mutable field at its zero state. The first
// bit-chain event (mutation type "genesis") populates the mutable fields.
func NewShell(entityID uuid.UUID, realityBranch string, timestamp time.Time) (*Manifestation, error) {
	if entityID == uuid.Nil {
		return nil, canonical.Violation("entity_id", "must not be the nil UUID")
	}
	if realityBranch == "" {
		return nil, canonical.Violation("reality_branch", "must not be empty")
	}
	return &Manifestation{
		EntityID:      entityID,
		RealityBranch: realityBranch,
		Timestamp:     canonical.TruncateTimestamp(timestamp),
		State:         map[string]any{},
	}, nil
}

// Shell returns a fresh pre-genesis copy of m, used by the replay validator
// to rebuild state from the event log alone.
func (m *Manifestation) Shell() *Manifestation {
	return &Manifestation{
		EntityID:      m.EntityID,
		RealityBranch: m.RealityBranch,
		Timestamp:     m.Timestamp,
		State:         map[string]any{},
	}
}

// Validate checks the mutable fields against the manifestation invariants.
func (m *Manifestation) Validate() error {
	if m.LuminosityLevel < 0 || m.LuminosityLevel > MaxLuminosity {
		return canonical.Violation("luminosity_level", "must be in [0,%d], got %d", MaxLuminosity, m.LuminosityLevel)
	}
	if err := m.Coordinates.Validate(); err != nil {
		return err
	}
	for _, l := range m.EntanglementLinks {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// StateMap returns the hash input form of the manifestation's current
// state. Derived fields and the event log are excluded; entanglement links
// are sorted by target id; the adjacency set is normalized inside the
// coordinate map.
func (m *Manifestation) StateMap() map[string]any {
	links := SortLinks(m.EntanglementLinks)
	linkMaps := make([]any, len(links))
	for i, l := range links {
		linkMaps[i] = l.CanonicalMap()
	}

	state := m.State
	if state == nil {
		state = map[string]any{}
	}

	return map[string]any{
		"coordinates":        m.Coordinates.CanonicalMap(),
		"entanglement_links": linkMaps,
		"entity_id":          m.EntityID.String(),
		"luminosity_level":   m.LuminosityLevel,
		"reality_branch":     m.RealityBranch,
		"state":              state,
		"timestamp":          m.Timestamp,
	}
}

// Clone returns a deep copy of the manifestation, including its event log.
// Append works against a clone so a failed validation leaves the original
// untouched.
func (m *Manifestation) Clone() *Manifestation {
	out := &Manifestation{
		EntityID:           m.EntityID,
		RealityBranch:      m.RealityBranch,
		Timestamp:          m.Timestamp,
		LuminosityLevel:    m.LuminosityLevel,
		Coordinates:        m.Coordinates.Clone(),
		State:              CloneValueMap(m.State),
		CanonicalHash:      m.CanonicalHash,
		AdjacencyHash:      m.AdjacencyHash,
		Stat7Address:       m.Stat7Address,
		ChainIntegrityHash: m.ChainIntegrityHash,
	}
	out.EntanglementLinks = append([]EntanglementLink(nil), m.EntanglementLinks...)
	out.Events = make([]BitChainEvent, len(m.Events))
	for i, ev := range m.Events {
		out.Events[i] = ev.Clone()
	}
	return out
}

// RefreshDerived recomputes CanonicalHash, AdjacencyHash, and Stat7Address
// from the current state. ChainIntegrityHash is owned by the event log and
// left untouched.
func (m *Manifestation) RefreshDerived() error {
	hash, err := ManifestationHash(m)
	if err != nil {
		return err
	}
	adjHash, err := AdjacencyHash(m.Coordinates.Adjacency)
	if err != nil {
		return err
	}
	addr, err := ComputeAddress(m.Coordinates)
	if err != nil {
		return err
	}
	m.CanonicalHash = hash
	m.AdjacencyHash = adjHash
	m.Stat7Address = addr
	return nil
}

// SortLinks returns the links sorted by target id without mutating the
// input. Ties (duplicate target ids) keep their relative order; upsert
// semantics in the event log prevent duplicates in practice.
func SortLinks(links []EntanglementLink) []EntanglementLink {
	out := append([]EntanglementLink(nil), links...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TargetID < out[j].TargetID
	})
	return out
}

// CloneValueMap deep-copies a state or payload document of canonical
// value types. Mutation appliers clone before installing so committed
// event payloads never alias live state.
func CloneValueMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies one canonical value.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneValueMap(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = CloneValue(elem)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}
