package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/stat7/internal/canonical"
	"github.com/roach88/stat7/internal/stat7"
)

// GetIdentity retrieves an identity core by entity id.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetIdentity(ctx context.Context, id uuid.UUID) (stat7.IdentityCore, error) {
	var (
		core      stat7.IdentityCore
		idCol     string
		typeCol   string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, entity_type, created_at, semantic_hash, canonical_hash
		FROM identity_cores
		WHERE id = ?
	`, id.String()).Scan(&idCol, &typeCol, &createdAt, &core.SemanticHash, &core.CanonicalHash)
	if err != nil {
		return stat7.IdentityCore{}, err
	}

	core.ID, err = uuid.Parse(idCol)
	if err != nil {
		return stat7.IdentityCore{}, fmt.Errorf("get identity: parse id: %w", err)
	}
	core.EntityType, err = stat7.ParseEntityType(typeCol)
	if err != nil {
		return stat7.IdentityCore{}, fmt.Errorf("get identity: %w", err)
	}
	core.CreatedAt, err = canonical.ParseTimestamp(createdAt)
	if err != nil {
		return stat7.IdentityCore{}, fmt.Errorf("get identity: %w", err)
	}
	return core, nil
}

// GetManifestation retrieves a manifestation and its full event log.
// Events are read ORDER BY idx ASC - the log's order is the sole temporal
// truth, so no other ordering is ever used.
// Returns sql.ErrNoRows if the manifestation does not exist.
func (s *Store) GetManifestation(ctx context.Context, entityID uuid.UUID, realityBranch string) (*stat7.Manifestation, error) {
	var (
		rowID     int64
		timestamp string
		doc       string
	)
	m := &stat7.Manifestation{EntityID: entityID, RealityBranch: realityBranch}

	err := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, doc, canonical_hash, adjacency_hash, stat7_address, chain_integrity_hash
		FROM manifestations
		WHERE entity_id = ? AND reality_branch = ?
	`, entityID.String(), realityBranch).Scan(
		&rowID, &timestamp, &doc,
		&m.CanonicalHash, &m.AdjacencyHash, &m.Stat7Address, &m.ChainIntegrityHash,
	)
	if err != nil {
		return nil, err
	}

	m.Timestamp, err = canonical.ParseTimestamp(timestamp)
	if err != nil {
		return nil, fmt.Errorf("get manifestation: %w", err)
	}
	if err := unmarshalDoc(doc, m); err != nil {
		return nil, fmt.Errorf("get manifestation: %w", err)
	}

	m.Events, err = s.readEvents(ctx, rowID)
	if err != nil {
		return nil, fmt.Errorf("get manifestation: %w", err)
	}
	return m, nil
}

// ListBranches returns the reality branches that carry a manifestation of
// the given entity, in byte order.
func (s *Store) ListBranches(ctx context.Context, entityID uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reality_branch FROM manifestations
		WHERE entity_id = ?
		ORDER BY reality_branch COLLATE BINARY ASC
	`, entityID.String())
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	branches := []string{}
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("list branches: %w", err)
		}
		branches = append(branches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return branches, nil
}

// readEvents returns the event log for a manifestation row in index order.
func (s *Store) readEvents(ctx context.Context, manifestationID int64) ([]stat7.BitChainEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, actor, mutation_type, payload, previous_state_hash, new_state_hash, timestamp
		FROM bit_chain_events
		WHERE manifestation_id = ?
		ORDER BY idx ASC
	`, manifestationID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []stat7.BitChainEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (stat7.BitChainEvent, error) {
	var (
		ev        stat7.BitChainEvent
		idCol     string
		actor     sql.NullString
		typeCol   string
		payload   string
		prev      sql.NullString
		timestamp string
	)
	err := rows.Scan(&idCol, &actor, &typeCol, &payload, &prev, &ev.NewStateHash, &timestamp)
	if err != nil {
		return stat7.BitChainEvent{}, fmt.Errorf("scan event: %w", err)
	}

	ev.EventID, err = parseEventID(idCol)
	if err != nil {
		return stat7.BitChainEvent{}, err
	}
	if actor.Valid {
		a := actor.String
		ev.Actor = &a
	}
	ev.MutationType, err = stat7.ParseMutationType(typeCol)
	if err != nil {
		return stat7.BitChainEvent{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Payload, err = unmarshalPayload(payload)
	if err != nil {
		return stat7.BitChainEvent{}, fmt.Errorf("scan event: %w", err)
	}
	if prev.Valid {
		p := prev.String
		ev.PreviousStateHash = &p
	}
	ev.Timestamp, err = canonical.ParseTimestamp(timestamp)
	if err != nil {
		return stat7.BitChainEvent{}, fmt.Errorf("scan event: %w", err)
	}
	return ev, nil
}
