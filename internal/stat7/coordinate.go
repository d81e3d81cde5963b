package stat7

import (
	"sort"

	"github.com/roach88/stat7/internal/canonical"
)

// Coordinate is the 7-axis position of an entity: realm, lineage, adjacency,
// horizon, resonance, velocity, density.
//
// Invariants: no NaN/Inf in any float axis; resonance and density in [0,1];
// the adjacency set is de-duplicated and lexicographically sorted before any
// serialization or hashing.
type Coordinate struct {
	Realm     Realm
	Lineage   string
	Adjacency []string
	Horizon   Horizon
	Resonance float64
	Velocity  float64
	Density   float64
}

// NewCoordinate constructs a validated coordinate. The adjacency set is
// normalized (de-duplicated, sorted); the input slice is not mutated.
// Fails with SchemaViolation on invalid enums, non-finite floats, or
// out-of-range resonance/density.
func NewCoordinate(realm Realm, lineage string, adjacency []string, horizon Horizon, resonance, velocity, density float64) (Coordinate, error) {
	c := Coordinate{
		Realm:     realm,
		Lineage:   lineage,
		Adjacency: NormalizeAdjacency(adjacency),
		Horizon:   horizon,
		Resonance: resonance,
		Velocity:  velocity,
		Density:   density,
	}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks every axis against the coordinate invariants.
func (c Coordinate) Validate() error {
	if !ValidRealms[c.Realm] {
		return canonical.Violation("realm", "invalid realm %q", string(c.Realm))
	}
	if _, ok := horizonOrder[c.Horizon]; !ok {
		return canonical.Violation("horizon", "invalid horizon %q", string(c.Horizon))
	}
	if err := canonical.CheckUnit("resonance", c.Resonance); err != nil {
		return err
	}
	if err := canonical.CheckUnit("density", c.Density); err != nil {
		return err
	}
	if err := canonical.CheckFinite("velocity", c.Velocity); err != nil {
		return err
	}
	return nil
}

// CanonicalMap returns the hash input form of the coordinate. Adjacency is
// re-normalized so that a hand-built Coordinate hashes identically to one
// from NewCoordinate.
func (c Coordinate) CanonicalMap() map[string]any {
	return map[string]any{
		"adjacency": NormalizeAdjacency(c.Adjacency),
		"density":   c.Density,
		"horizon":   string(c.Horizon),
		"lineage":   c.Lineage,
		"realm":     string(c.Realm),
		"resonance": c.Resonance,
		"velocity":  c.Velocity,
	}
}

// Clone returns a deep copy.
func (c Coordinate) Clone() Coordinate {
	out := c
	out.Adjacency = append([]string(nil), c.Adjacency...)
	return out
}

// NormalizeAdjacency de-duplicates and lexicographically sorts a set of
// entity ids. Always returns a non-nil slice so an empty set serializes
// as [] rather than null.
func NormalizeAdjacency(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
