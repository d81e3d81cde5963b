package chain

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stat7/internal/stat7"
	"github.com/roach88/stat7/internal/testutil"
)

func testChain(t *testing.T) *Chain {
	t.Helper()

	epoch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := testutil.NewDeterministicClock(epoch)
	ids := testutil.NewSequentialIDSource()

	core, err := stat7.NewIdentityCore(
		uuid.MustParse("aa0e8400-e29b-41d4-a716-446655440000"),
		stat7.EntityConcept,
		epoch,
		"sem-1",
	)
	require.NoError(t, err)

	coord, err := stat7.NewCoordinate(
		stat7.RealmData, "1", []string{"n-1"}, stat7.HorizonGenesis,
		0.5, 2.0, 0.25,
	)
	require.NoError(t, err)

	c, err := Genesis(core, "prime", GenesisInit{
		Coordinates:     coord,
		State:           map[string]any{"mood": "calm"},
		LuminosityLevel: 3,
	}, WithClock(clock.Now), WithIDSource(ids.Next))
	require.NoError(t, err)
	return c
}

func TestGenesisCommitsFirstEvent(t *testing.T) {
	c := testChain(t)
	m := c.Manifestation()

	require.Len(t, m.Events, 1)
	ev := m.Events[0]

	assert.Equal(t, stat7.MutationGenesis, ev.MutationType)
	assert.Nil(t, ev.PreviousStateHash)
	assert.Len(t, ev.NewStateHash, 64)

	assert.Equal(t, stat7.RealmData, m.Coordinates.Realm)
	assert.Equal(t, 3, m.LuminosityLevel)
	assert.Equal(t, "calm", m.State["mood"])

	assert.Len(t, m.CanonicalHash, 64)
	assert.Len(t, m.ChainIntegrityHash, 64)
	assert.NotEmpty(t, m.Stat7Address)
	assert.Equal(t, ev.NewStateHash, m.CanonicalHash)
}

func TestApplyChainsPreviousStateHash(t *testing.T) {
	c := testChain(t)
	genesisHash := c.Manifestation().Events[0].NewStateHash

	ev, err := c.Apply(stat7.MutationStateSet, nil, map[string]any{
		"entries": map[string]any{"mood": "stormy"},
	})
	require.NoError(t, err)

	require.NotNil(t, ev.PreviousStateHash)
	assert.Equal(t, genesisHash, *ev.PreviousStateHash)
	assert.NotEqual(t, genesisHash, ev.NewStateHash)

	m := c.Manifestation()
	assert.Equal(t, "stormy", m.State["mood"])
	assert.Len(t, m.Events, 2)
	assert.Equal(t, ev.NewStateHash, m.CanonicalHash)
}

func TestAppendRejectsStalePrevHash(t *testing.T) {
	c := testChain(t)

	stale := "deadbeef"
	_, err := c.Append(stat7.BitChainEvent{
		EventID:           uuid.New(),
		MutationType:      stat7.MutationStateSet,
		Payload:           map[string]any{"entries": map[string]any{"x": int64(1)}},
		PreviousStateHash: &stale,
		Timestamp:         time.Now().UTC(),
	})
	require.Error(t, err)
	require.True(t, IsIntegrityViolation(err))

	var cv *ChainIntegrityViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, ErrCodePrevHashMismatch, cv.Code)
	assert.Equal(t, stale, cv.Actual)

	assert.Len(t, c.Manifestation().Events, 1)
}

func TestAppendRejectsDuplicateEventID(t *testing.T) {
	c := testChain(t)
	m := c.Manifestation()

	head, err := stat7.ManifestationHash(m)
	require.NoError(t, err)

	_, err = c.Append(stat7.BitChainEvent{
		EventID:           m.Events[0].EventID,
		MutationType:      stat7.MutationStateSet,
		Payload:           map[string]any{"entries": map[string]any{"x": int64(1)}},
		PreviousStateHash: &head,
		Timestamp:         time.Now().UTC(),
	})
	require.Error(t, err)

	var cv *ChainIntegrityViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, ErrCodeDuplicateEventID, cv.Code)
}

func TestAppendRejectsNullPrevHashAfterGenesis(t *testing.T) {
	c := testChain(t)

	_, err := c.Append(stat7.BitChainEvent{
		EventID:      uuid.New(),
		MutationType: stat7.MutationStateSet,
		Payload:      map[string]any{"entries": map[string]any{"x": int64(1)}},
		Timestamp:    time.Now().UTC(),
	})
	require.Error(t, err)

	var cv *ChainIntegrityViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, ErrCodeOutOfOrder, cv.Code)
}

func TestAppendRejectsWrongNewStateHash(t *testing.T) {
	c := testChain(t)

	head, err := stat7.ManifestationHash(c.Manifestation())
	require.NoError(t, err)

	_, err = c.Append(stat7.BitChainEvent{
		EventID:           uuid.New(),
		MutationType:      stat7.MutationStateSet,
		Payload:           map[string]any{"entries": map[string]any{"x": int64(1)}},
		PreviousStateHash: &head,
		NewStateHash:      "0000000000000000000000000000000000000000000000000000000000000000",
		Timestamp:         time.Now().UTC(),
	})
	require.Error(t, err)

	var cv *ChainIntegrityViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, ErrCodeNewHashMismatch, cv.Code)
	assert.Len(t, c.Manifestation().Events, 1)
}

func TestFailedAppendLeavesManifestationUntouched(t *testing.T) {
	c := testChain(t)
	before := c.Snapshot()

	// luminosity out of range fails validation after the mutation applies
	// to the clone.
	_, err := c.Apply(stat7.MutationLuminositySet, nil, map[string]any{"level": 12})
	require.Error(t, err)

	after := c.Manifestation()
	assert.Equal(t, before.LuminosityLevel, after.LuminosityLevel)
	assert.Equal(t, before.CanonicalHash, after.CanonicalHash)
	assert.Equal(t, before.ChainIntegrityHash, after.ChainIntegrityHash)
	assert.Len(t, after.Events, len(before.Events))
}

func TestStateDeleteRemovesKeys(t *testing.T) {
	c := testChain(t)

	_, err := c.Apply(stat7.MutationStateDelete, nil, map[string]any{
		"keys": []string{"mood"},
	})
	require.NoError(t, err)

	_, ok := c.Manifestation().State["mood"]
	assert.False(t, ok)
}

func TestCoordinatesSetPinsHorizon(t *testing.T) {
	c := testChain(t)

	coord, err := stat7.NewCoordinate(
		stat7.RealmNarrative, "2.7", []string{"n-9"}, stat7.HorizonCrystallization,
		0.9, 1.0, 0.1,
	)
	require.NoError(t, err)

	_, err = c.Apply(stat7.MutationCoordinatesSet, nil, map[string]any{
		"coordinates": coord.CanonicalMap(),
	})
	require.NoError(t, err)

	m := c.Manifestation()
	assert.Equal(t, stat7.RealmNarrative, m.Coordinates.Realm)
	assert.Equal(t, "2.7", m.Coordinates.Lineage)
	// horizon only moves through horizon-advance
	assert.Equal(t, stat7.HorizonGenesis, m.Coordinates.Horizon)
}

func TestAdvanceHorizonWalksLifecycle(t *testing.T) {
	c := testChain(t)

	stages := []stat7.Horizon{
		stat7.HorizonEmergence,
		stat7.HorizonPeak,
		stat7.HorizonDecay,
		stat7.HorizonCrystallization,
	}
	for _, want := range stages {
		_, advanced, err := c.AdvanceHorizon(nil)
		require.NoError(t, err)
		require.True(t, advanced)
		assert.Equal(t, want, c.Manifestation().Coordinates.Horizon)
	}

	// terminal stage: silent no-op, nothing appended
	eventsBefore := len(c.Manifestation().Events)
	_, advanced, err := c.AdvanceHorizon(nil)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, stat7.HorizonCrystallization, c.Manifestation().Coordinates.Horizon)
	assert.Len(t, c.Manifestation().Events, eventsBefore)
}

func TestLinkSetUpsertsByTargetID(t *testing.T) {
	c := testChain(t)

	for _, link := range []map[string]any{
		{"target_id": "zz", "resonance_strength": 0.4, "type": "echo", "confidence": 0.9},
		{"target_id": "aa", "resonance_strength": 0.6, "type": "echo", "confidence": 0.8},
		{"target_id": "zz", "resonance_strength": 0.7, "type": "mirror", "confidence": 0.5},
	} {
		_, err := c.Apply(stat7.MutationLinkSet, nil, map[string]any{"link": link})
		require.NoError(t, err)
	}

	links := c.Manifestation().EntanglementLinks
	require.Len(t, links, 2)
	assert.Equal(t, "aa", links[0].TargetID)
	assert.Equal(t, "zz", links[1].TargetID)
	assert.Equal(t, "mirror", links[1].Type)

	_, err := c.Apply(stat7.MutationLinkRemove, nil, map[string]any{"target_id": "aa"})
	require.NoError(t, err)
	require.Len(t, c.Manifestation().EntanglementLinks, 1)
	assert.Equal(t, "zz", c.Manifestation().EntanglementLinks[0].TargetID)
}

func TestChainHashMatchesRecompute(t *testing.T) {
	c := testChain(t)

	_, err := c.Apply(stat7.MutationStateSet, nil, map[string]any{
		"entries": map[string]any{"mood": "stormy"},
	})
	require.NoError(t, err)
	_, _, err = c.AdvanceHorizon(nil)
	require.NoError(t, err)

	m := c.Manifestation()
	recomputed, err := RecomputeChainHash(m.Events)
	require.NoError(t, err)
	assert.Equal(t, recomputed, m.ChainIntegrityHash)
}

func TestConcurrentAppendsKeepChainConsistent(t *testing.T) {
	c := testChain(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Apply(stat7.MutationStateSet, nil, map[string]any{
				"entries": map[string]any{"slot": int64(i)},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	m := c.Snapshot()
	require.Len(t, m.Events, 9)

	report := Validate(m)
	assert.True(t, report.OK, report.Message)
}

func TestGenesisCopiesInitialState(t *testing.T) {
	epoch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := testutil.NewDeterministicClock(epoch)
	ids := testutil.NewSequentialIDSource()

	core, err := stat7.NewIdentityCore(
		uuid.MustParse("aa0e8400-e29b-41d4-a716-446655440000"),
		stat7.EntityConcept,
		epoch,
		"sem-1",
	)
	require.NoError(t, err)

	coord, err := stat7.NewCoordinate(
		stat7.RealmData, "1", []string{"n-1"}, stat7.HorizonGenesis,
		0.5, 2.0, 0.25,
	)
	require.NoError(t, err)

	init := map[string]any{"mood": "calm"}
	c, err := Genesis(core, "prime", GenesisInit{
		Coordinates:     coord,
		State:           init,
		LuminosityLevel: 3,
	}, WithClock(clock.Now), WithIDSource(ids.Next))
	require.NoError(t, err)

	// Mutating the caller's map must not reach the chain.
	init["mood"] = "forged"

	m := c.Snapshot()
	assert.Equal(t, "calm", m.State["mood"])
	assert.Equal(t, "calm", m.Events[0].Payload["state"].(map[string]any)["mood"])
	assert.True(t, Validate(m).OK)
}

func TestApplyCopiesStateEntries(t *testing.T) {
	c := testChain(t)

	nested := map[string]any{"tone": "low"}
	_, err := c.Apply(stat7.MutationStateSet, nil, map[string]any{
		"entries": map[string]any{"signal": nested},
	})
	require.NoError(t, err)

	// Mutating the caller's nested map must not reach committed state.
	nested["tone"] = "forged"

	m := c.Snapshot()
	assert.Equal(t, "low", m.State["signal"].(map[string]any)["tone"])
	assert.True(t, Validate(m).OK)
}

func TestConcurrentAdvancesAppendExactlyOneEvent(t *testing.T) {
	c := testChain(t)

	// genesis -> emergence -> peak -> decay
	for i := 0; i < 3; i++ {
		_, advanced, err := c.AdvanceHorizon(nil)
		require.NoError(t, err)
		require.True(t, advanced)
	}
	eventsBefore := len(c.Manifestation().Events)

	var wg sync.WaitGroup
	var moved atomic.Int32
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, advanced, err := c.AdvanceHorizon(nil)
			assert.NoError(t, err)
			if advanced {
				moved.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), moved.Load())
	m := c.Snapshot()
	assert.Equal(t, stat7.HorizonCrystallization, m.Coordinates.Horizon)
	assert.Len(t, m.Events, eventsBefore+1)
	assert.True(t, Validate(m).OK)
}
