package store

import (
	"context"
	"fmt"

	"github.com/roach88/stat7/internal/canonical"
	"github.com/roach88/stat7/internal/stat7"
)

// PutIdentity inserts an identity core.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - identity cores are
// immutable, so a duplicate write of the same core is silently ignored.
func (s *Store) PutIdentity(ctx context.Context, core stat7.IdentityCore) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identity_cores
		(id, entity_type, created_at, semantic_hash, canonical_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		core.ID.String(),
		string(core.EntityType),
		canonical.FormatTimestamp(core.CreatedAt),
		core.SemanticHash,
		core.CanonicalHash,
	)
	if err != nil {
		return fmt.Errorf("put identity: %w", err)
	}
	return nil
}

// PutManifestation upserts a manifestation row and appends any event rows
// not yet persisted, all in one transaction.
//
// Events are written by index with ON CONFLICT DO NOTHING, so persisting
// the same manifestation twice is idempotent and persisting after new
// appends writes only the tail. The doc and derived-hash columns are
// always refreshed to the current state.
func (s *Store) PutManifestation(ctx context.Context, m *stat7.Manifestation) error {
	doc, err := marshalDoc(m)
	if err != nil {
		return fmt.Errorf("put manifestation: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put manifestation: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO manifestations
		(entity_id, reality_branch, timestamp, doc, canonical_hash, adjacency_hash, stat7_address, chain_integrity_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, reality_branch) DO UPDATE SET
			doc = excluded.doc,
			canonical_hash = excluded.canonical_hash,
			adjacency_hash = excluded.adjacency_hash,
			stat7_address = excluded.stat7_address,
			chain_integrity_hash = excluded.chain_integrity_hash
	`,
		m.EntityID.String(),
		m.RealityBranch,
		canonical.FormatTimestamp(m.Timestamp),
		doc,
		m.CanonicalHash,
		m.AdjacencyHash,
		m.Stat7Address,
		m.ChainIntegrityHash,
	)
	if err != nil {
		return fmt.Errorf("put manifestation: upsert: %w", err)
	}

	var manifestationID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM manifestations
		WHERE entity_id = ? AND reality_branch = ?
	`, m.EntityID.String(), m.RealityBranch).Scan(&manifestationID)
	if err != nil {
		return fmt.Errorf("put manifestation: select row id: %w", err)
	}

	for idx, ev := range m.Events {
		payload, err := marshalPayload(ev.Payload)
		if err != nil {
			return fmt.Errorf("put manifestation: event %d: %w", idx, err)
		}

		var actor any
		if ev.Actor != nil {
			actor = *ev.Actor
		}
		var prev any
		if ev.PreviousStateHash != nil {
			prev = *ev.PreviousStateHash
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO bit_chain_events
			(manifestation_id, idx, event_id, actor, mutation_type, payload, previous_state_hash, new_state_hash, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(manifestation_id, idx) DO NOTHING
		`,
			manifestationID,
			idx,
			ev.EventID.String(),
			actor,
			string(ev.MutationType),
			payload,
			prev,
			ev.NewStateHash,
			canonical.FormatTimestamp(ev.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("put manifestation: event %d: %w", idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put manifestation: commit: %w", err)
	}
	return nil
}
