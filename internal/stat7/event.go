package stat7

import (
	"time"

	"github.com/google/uuid"

	"github.com/roach88/stat7/internal/canonical"
)

// MutationType identifies what a bit-chain event did to its manifestation.
type MutationType string

const (
	// MutationGenesis is the first event of every manifestation. Its payload
	// is the full initial mutable snapshot; its previous_state_hash is null.
	MutationGenesis MutationType = "genesis"

	MutationStateSet       MutationType = "state-set"
	MutationStateDelete    MutationType = "state-delete"
	MutationLuminositySet  MutationType = "luminosity-set"
	MutationCoordinatesSet MutationType = "coordinates-set"
	MutationHorizonAdvance MutationType = "horizon-advance"
	MutationLinkSet        MutationType = "link-set"
	MutationLinkRemove     MutationType = "link-remove"
)

// ValidMutationTypes defines the allowed mutation types.
var ValidMutationTypes = map[MutationType]bool{
	MutationGenesis:        true,
	MutationStateSet:       true,
	MutationStateDelete:    true,
	MutationLuminositySet:  true,
	MutationCoordinatesSet: true,
	MutationHorizonAdvance: true,
	MutationLinkSet:        true,
	MutationLinkRemove:     true,
}

// ParseMutationType validates a mutation type string.
func ParseMutationType(s string) (MutationType, error) {
	mt := MutationType(s)
	if !ValidMutationTypes[mt] {
		return "", canonical.Violation("mutation_type", "invalid mutation type %q", s)
	}
	return mt, nil
}

// BitChainEvent is one append-only mutation record. Immutable once
// committed; the log's order is the sole source of temporal truth.
//
// Payload carries the mutation document, which is what lets the replay
// validator recompute state from the log alone. PreviousStateHash is nil
// only for the genesis event.
type BitChainEvent struct {
	EventID           uuid.UUID
	Actor             *string
	MutationType      MutationType
	Payload           map[string]any
	PreviousStateHash *string
	NewStateHash      string
	Timestamp         time.Time
}

// CanonicalMap returns the hash input form of the event. Every field is
// included: events are audit records, nothing about them is derived-from-
// themselves.
func (e BitChainEvent) CanonicalMap() map[string]any {
	var actor any
	if e.Actor != nil {
		actor = *e.Actor
	}
	var prev any
	if e.PreviousStateHash != nil {
		prev = *e.PreviousStateHash
	}
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return map[string]any{
		"actor":               actor,
		"event_id":            e.EventID.String(),
		"mutation_type":       string(e.MutationType),
		"new_state_hash":      e.NewStateHash,
		"payload":             payload,
		"previous_state_hash": prev,
		"timestamp":           e.Timestamp,
	}
}

// Clone returns a deep copy of the event.
func (e BitChainEvent) Clone() BitChainEvent {
	out := e
	if e.Actor != nil {
		actor := *e.Actor
		out.Actor = &actor
	}
	if e.PreviousStateHash != nil {
		prev := *e.PreviousStateHash
		out.PreviousStateHash = &prev
	}
	out.Payload = CloneValueMap(e.Payload)
	return out
}
