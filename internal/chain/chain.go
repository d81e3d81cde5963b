package chain

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/stat7/internal/canonical"
	"github.com/roach88/stat7/internal/stat7"
)

// Chain owns the append path of one manifestation's bit-chain event log.
//
// Appends within a manifestation are serialized by a mutex so every append
// observes a consistent head when validating previous_state_hash. Hashing
// and appends across independent manifestations need no coordination.
type Chain struct {
	mu sync.Mutex
	m  *stat7.Manifestation

	now   func() time.Time
	newID func() uuid.UUID
}

// Option configures a Chain.
type Option func(*Chain)

// WithClock injects the timestamp source for generated events.
// Tests and the scenario harness use this for reproducible logs.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

// WithIDSource injects the event id source. IDs must be UUIDv4.
func WithIDSource(newID func() uuid.UUID) Option {
	return func(c *Chain) { c.newID = newID }
}

// New wraps an existing manifestation. The manifestation is mutated in
// place on successful appends; on any failure it is left exactly as it was.
func New(m *stat7.Manifestation, opts ...Option) *Chain {
	c := &Chain{
		m:     m,
		now:   time.Now,
		newID: uuid.New,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Manifestation returns the underlying manifestation.
func (c *Chain) Manifestation() *stat7.Manifestation {
	return c.m
}

// Snapshot returns a deep copy taken under the append lock, safe for
// concurrent reads and replay while appends continue.
func (c *Chain) Snapshot() *stat7.Manifestation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m.Clone()
}

// GenesisInit is the initial mutable snapshot of a manifestation. It
// becomes the payload of the genesis event, so replay can rebuild state
// from the log alone.
type GenesisInit struct {
	Coordinates     stat7.Coordinate
	State           map[string]any
	LuminosityLevel int
	Links           []stat7.EntanglementLink
	Actor           *string
}

// Genesis creates a manifestation for an entity on a reality branch and
// commits its first bit-chain event. The manifestation's timestamp is the
// identity core's creation instant; the genesis event is stamped by the
// chain's clock.
func Genesis(core stat7.IdentityCore, realityBranch string, init GenesisInit, opts ...Option) (*Chain, error) {
	shell, err := stat7.NewShell(core.ID, realityBranch, core.CreatedAt)
	if err != nil {
		return nil, err
	}

	c := New(shell, opts...)

	payload := map[string]any{
		"coordinates":      init.Coordinates.CanonicalMap(),
		"luminosity_level": init.LuminosityLevel,
		"state":            stat7.CloneValueMap(init.State),
	}
	if len(init.Links) > 0 {
		linkMaps := make([]any, len(init.Links))
		for i, l := range stat7.SortLinks(init.Links) {
			linkMaps[i] = l.CanonicalMap()
		}
		payload["entanglement_links"] = linkMaps
	}

	if _, err := c.Apply(stat7.MutationGenesis, init.Actor, payload); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply constructs an event for the given mutation and appends it: event id
// from the chain's id source, timestamp from its clock, previous_state_hash
// from the current head, new_state_hash computed from the post-mutation
// state.
func (c *Chain) Apply(mutationType stat7.MutationType, actor *string, payload map[string]any) (stat7.BitChainEvent, error) {
	if payload == nil {
		payload = map[string]any{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(mutationType, actor, payload)
}

func (c *Chain) applyLocked(mutationType stat7.MutationType, actor *string, payload map[string]any) (stat7.BitChainEvent, error) {
	ev := stat7.BitChainEvent{
		EventID:      c.newID(),
		Actor:        actor,
		MutationType: mutationType,
		Payload:      payload,
		Timestamp:    canonical.TruncateTimestamp(c.now()),
	}

	if len(c.m.Events) > 0 {
		head, err := stat7.ManifestationHash(c.m)
		if err != nil {
			return stat7.BitChainEvent{}, err
		}
		ev.PreviousStateHash = &head
	}

	if err := c.appendLocked(&ev); err != nil {
		return stat7.BitChainEvent{}, err
	}
	return ev, nil
}

// AdvanceHorizon appends a horizon-advance event and reports whether the
// lifecycle actually moved. At the terminal stage nothing is appended and
// no error is returned — advancing past crystallization is a no-op.
//
// The terminal check and the append happen under one lock acquisition, so
// concurrent advances from the penultimate stage produce exactly one event.
func (c *Chain) AdvanceHorizon(actor *string) (stat7.BitChainEvent, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.m.Coordinates.Horizon.Terminal() {
		return stat7.BitChainEvent{}, false, nil
	}

	ev, err := c.applyLocked(stat7.MutationHorizonAdvance, actor, map[string]any{})
	if err != nil {
		return stat7.BitChainEvent{}, false, err
	}
	return ev, true, nil
}

// Append validates and commits a fully-formed event.
//
// Validation: previous_state_hash must equal the current computed state
// hash (null only for the very first event); the event id must be unique
// within the manifestation; a caller-supplied new_state_hash must match the
// recomputed post-mutation hash (left empty, it is filled in). The append
// is atomic — on any failure the log and every derived hash are untouched.
func (c *Chain) Append(ev stat7.BitChainEvent) (stat7.BitChainEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.appendLocked(&ev); err != nil {
		return stat7.BitChainEvent{}, err
	}
	return ev, nil
}

func (c *Chain) appendLocked(ev *stat7.BitChainEvent) error {
	if !stat7.ValidMutationTypes[ev.MutationType] {
		return canonical.Violation("mutation_type", "invalid mutation type %q", string(ev.MutationType))
	}
	if ev.EventID == uuid.Nil {
		return canonical.Violation("event_id", "must not be the nil UUID")
	}
	if ev.EventID.Version() != 4 {
		return canonical.Violation("event_id", "must be UUIDv4, got version %d", ev.EventID.Version())
	}

	for _, existing := range c.m.Events {
		if existing.EventID == ev.EventID {
			return &ChainIntegrityViolation{
				Code:    ErrCodeDuplicateEventID,
				Message: "event id already present in manifestation log",
				EventID: ev.EventID.String(),
			}
		}
	}

	if len(c.m.Events) == 0 {
		if ev.PreviousStateHash != nil {
			return &ChainIntegrityViolation{
				Code:    ErrCodeOutOfOrder,
				Message: "first event must have null previous_state_hash",
				EventID: ev.EventID.String(),
			}
		}
		if ev.MutationType != stat7.MutationGenesis {
			return &ChainIntegrityViolation{
				Code:    ErrCodeOutOfOrder,
				Message: "first event must be a genesis mutation",
				EventID: ev.EventID.String(),
			}
		}
	} else {
		if ev.PreviousStateHash == nil {
			return &ChainIntegrityViolation{
				Code:    ErrCodeOutOfOrder,
				Message: "null previous_state_hash is only valid for the first event",
				EventID: ev.EventID.String(),
			}
		}
		head, err := stat7.ManifestationHash(c.m)
		if err != nil {
			return err
		}
		if *ev.PreviousStateHash != head {
			return &ChainIntegrityViolation{
				Code:     ErrCodePrevHashMismatch,
				Message:  "previous_state_hash does not match current state",
				EventID:  ev.EventID.String(),
				Expected: head,
				Actual:   *ev.PreviousStateHash,
			}
		}
		if ev.MutationType == stat7.MutationGenesis {
			return &ChainIntegrityViolation{
				Code:    ErrCodeOutOfOrder,
				Message: "genesis mutation is only valid as the first event",
				EventID: ev.EventID.String(),
			}
		}
	}

	// Apply to a clone: a failed mutation or validation leaves the
	// manifestation exactly as it was.
	candidate := c.m.Clone()
	if err := applyMutation(candidate, ev.MutationType, ev.Payload); err != nil {
		return err
	}
	if err := candidate.Validate(); err != nil {
		return err
	}

	newHash, err := stat7.ManifestationHash(candidate)
	if err != nil {
		return err
	}
	if ev.NewStateHash != "" && ev.NewStateHash != newHash {
		return &ChainIntegrityViolation{
			Code:     ErrCodeNewHashMismatch,
			Message:  "new_state_hash does not match post-mutation state",
			EventID:  ev.EventID.String(),
			Expected: newHash,
			Actual:   ev.NewStateHash,
		}
	}
	ev.NewStateHash = newHash

	nextChain, err := ChainStep(c.m.ChainIntegrityHash, *ev)
	if err != nil {
		return err
	}

	candidate.Events = append(candidate.Events, ev.Clone())
	candidate.ChainIntegrityHash = nextChain
	if err := candidate.RefreshDerived(); err != nil {
		return err
	}

	// Commit.
	*c.m = *candidate
	return nil
}
