package stat7

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stat7/internal/canonical"
)

func TestNewShellValidation(t *testing.T) {
	_, err := NewShell(uuid.Nil, "prime", time.Now())
	require.Error(t, err)

	_, err = NewShell(uuid.New(), "", time.Now())
	require.Error(t, err)

	m, err := NewShell(uuid.New(), "prime", time.Now())
	require.NoError(t, err)
	assert.NotNil(t, m.State)
	assert.Empty(t, m.Events)
}

func TestShellResetsMutableState(t *testing.T) {
	m := testManifestation(t)
	m.State["mood"] = "stormy"
	m.LuminosityLevel = 7

	shell := m.Shell()
	assert.Equal(t, m.EntityID, shell.EntityID)
	assert.Equal(t, m.RealityBranch, shell.RealityBranch)
	assert.Equal(t, m.Timestamp, shell.Timestamp)
	assert.Empty(t, shell.State)
	assert.Zero(t, shell.LuminosityLevel)
	assert.Empty(t, shell.Events)
	assert.Empty(t, shell.CanonicalHash)
}

func TestManifestationValidate(t *testing.T) {
	m := testManifestation(t)
	require.NoError(t, m.Validate())

	m.LuminosityLevel = 8
	err := m.Validate()
	require.Error(t, err)
	assert.True(t, canonical.IsSchemaViolation(err))

	m.LuminosityLevel = -1
	require.Error(t, m.Validate())

	m.LuminosityLevel = 0
	m.EntanglementLinks = []EntanglementLink{{TargetID: "t", ResonanceStrength: 2.0, Confidence: 0.5}}
	require.Error(t, m.Validate())
}

func TestManifestationCloneIsDeep(t *testing.T) {
	m := testManifestation(t)
	m.State["nested"] = map[string]any{"inner": []any{1, 2}}
	m.EntanglementLinks = []EntanglementLink{{TargetID: "t1", ResonanceStrength: 0.5, Type: "echo", Confidence: 0.5}}
	actor := "keeper"
	m.Events = []BitChainEvent{{
		EventID:      uuid.New(),
		Actor:        &actor,
		MutationType: MutationGenesis,
		Payload:      map[string]any{"state": map[string]any{}},
		NewStateHash: "h",
		Timestamp:    time.Now(),
	}}

	clone := m.Clone()
	clone.State["nested"].(map[string]any)["inner"].([]any)[0] = 99
	clone.EntanglementLinks[0].TargetID = "mutated"
	*clone.Events[0].Actor = "impostor"
	clone.Events[0].Payload["state"] = "corrupted"

	assert.Equal(t, 1, m.State["nested"].(map[string]any)["inner"].([]any)[0])
	assert.Equal(t, "t1", m.EntanglementLinks[0].TargetID)
	assert.Equal(t, "keeper", *m.Events[0].Actor)
	assert.Equal(t, map[string]any{}, m.Events[0].Payload["state"])
}

func TestStateMapShape(t *testing.T) {
	m := testManifestation(t)
	m.State["mood"] = "calm"

	sm := m.StateMap()
	assert.Equal(t, m.EntityID.String(), sm["entity_id"])
	assert.Equal(t, "prime", sm["reality_branch"])
	assert.Equal(t, 3, sm["luminosity_level"])
	assert.Contains(t, sm, "coordinates")
	assert.Contains(t, sm, "entanglement_links")
	assert.Contains(t, sm, "state")
	assert.Contains(t, sm, "timestamp")

	// Derived fields never appear in the hash input.
	assert.NotContains(t, sm, "canonical_hash")
	assert.NotContains(t, sm, "stat7_address")
	assert.NotContains(t, sm, "adjacency_hash")
	assert.NotContains(t, sm, "chain_integrity_hash")
	assert.NotContains(t, sm, "bit_chain_events")
}

func TestRefreshDerived(t *testing.T) {
	m := testManifestation(t)
	require.NoError(t, m.RefreshDerived())

	assert.Len(t, m.CanonicalHash, 64)
	assert.Len(t, m.AdjacencyHash, 64)
	assert.Contains(t, m.Stat7Address, "stat7://data/1/")
	assert.Empty(t, m.ChainIntegrityHash, "chain hash is owned by the event log")

	adjHash, err := AdjacencyHash(m.Coordinates.Adjacency)
	require.NoError(t, err)
	assert.Equal(t, adjHash, m.AdjacencyHash)
}

func TestSortLinksStable(t *testing.T) {
	links := []EntanglementLink{
		{TargetID: "c"}, {TargetID: "a"}, {TargetID: "b"},
	}
	sorted := SortLinks(links)
	assert.Equal(t, "a", sorted[0].TargetID)
	assert.Equal(t, "b", sorted[1].TargetID)
	assert.Equal(t, "c", sorted[2].TargetID)
	// Input untouched.
	assert.Equal(t, "c", links[0].TargetID)
}

func TestEventCanonicalMapNullables(t *testing.T) {
	ev := BitChainEvent{
		EventID:      uuid.MustParse("de305d54-75b4-431b-adb2-eb6b9e546014"),
		MutationType: MutationGenesis,
		NewStateHash: "abc",
		Timestamp:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	m := ev.CanonicalMap()
	assert.Nil(t, m["actor"])
	assert.Nil(t, m["previous_state_hash"])
	assert.Equal(t, map[string]any{}, m["payload"])

	actor := "keeper"
	prev := "prevhash"
	ev.Actor = &actor
	ev.PreviousStateHash = &prev
	m = ev.CanonicalMap()
	assert.Equal(t, "keeper", m["actor"])
	assert.Equal(t, "prevhash", m["previous_state_hash"])
}
