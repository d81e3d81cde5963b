package stat7

import (
	"time"

	"github.com/google/uuid"

	"github.com/roach88/stat7/internal/canonical"
)

// EntityType classifies an entity at genesis.
type EntityType string

const (
	EntityConcept   EntityType = "concept"
	EntityArtifact  EntityType = "artifact"
	EntityAgent     EntityType = "agent"
	EntityLineage   EntityType = "lineage"
	EntityAdjacency EntityType = "adjacency"
	EntityHorizon   EntityType = "horizon"
	EntityFragment  EntityType = "fragment"
)

// ValidEntityTypes defines the allowed entity type values.
var ValidEntityTypes = map[EntityType]bool{
	EntityConcept:   true,
	EntityArtifact:  true,
	EntityAgent:     true,
	EntityLineage:   true,
	EntityAdjacency: true,
	EntityHorizon:   true,
	EntityFragment:  true,
}

// ParseEntityType validates an entity type string.
func ParseEntityType(s string) (EntityType, error) {
	et := EntityType(s)
	if !ValidEntityTypes[et] {
		return "", canonical.Violation("entity_type", "invalid entity type %q", s)
	}
	return et, nil
}

// IdentityCore is the immutable per-entity header, created once at genesis
// and never mutated thereafter. CanonicalHash is derived from the other
// fields and excluded from its own hash input.
type IdentityCore struct {
	ID            uuid.UUID
	EntityType    EntityType
	CreatedAt     time.Time
	SemanticHash  string
	CanonicalHash string
}

// NewIdentityCore constructs an identity core and computes its canonical
// hash. CreatedAt is clamped to canonical resolution (UTC, milliseconds) so
// the hashed timestamp is exactly the persisted one.
func NewIdentityCore(id uuid.UUID, entityType EntityType, createdAt time.Time, semanticHash string) (IdentityCore, error) {
	if !ValidEntityTypes[entityType] {
		return IdentityCore{}, canonical.Violation("entity_type", "invalid entity type %q", string(entityType))
	}
	if id == uuid.Nil {
		return IdentityCore{}, canonical.Violation("id", "entity id must not be the nil UUID")
	}

	core := IdentityCore{
		ID:           id,
		EntityType:   entityType,
		CreatedAt:    canonical.TruncateTimestamp(createdAt),
		SemanticHash: semanticHash,
	}

	hash, err := IdentityHash(core)
	if err != nil {
		return IdentityCore{}, err
	}
	core.CanonicalHash = hash
	return core, nil
}

// CanonicalMap returns the hash input form: every identity field except the
// derived canonical_hash.
func (ic IdentityCore) CanonicalMap() map[string]any {
	return map[string]any{
		"created_at":    ic.CreatedAt,
		"entity_type":   string(ic.EntityType),
		"id":            ic.ID.String(),
		"semantic_hash": ic.SemanticHash,
	}
}
