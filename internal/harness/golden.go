package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stat7/internal/canonical"
)

// TraceSnapshot renders a scenario result as canonical bytes: the full
// event log, every derived hash, and the replay verdict. Canonical
// serialization makes the snapshot stable across runs and platforms.
func TraceSnapshot(res *Result) ([]byte, error) {
	m := res.Manifestation

	events := make([]any, len(m.Events))
	for i, ev := range m.Events {
		events[i] = ev.CanonicalMap()
	}

	snap := map[string]any{
		"canonical_hash":       m.CanonicalHash,
		"chain_integrity_hash": m.ChainIntegrityHash,
		"entity_id":            m.EntityID.String(),
		"events":               events,
		"replay": map[string]any{
			"check":      string(res.Report.Check),
			"fail_index": res.Report.FailIndex,
			"ok":         res.Report.OK,
		},
		"scenario_name": res.Scenario.Name,
		"stat7_address": m.Stat7Address,
	}
	return canonical.Marshal(snap)
}

// AssertGolden compares the scenario's trace snapshot against its
// golden file in testdata/golden. Regenerate with go test -update.
func AssertGolden(t *testing.T, res *Result) {
	t.Helper()

	data, err := TraceSnapshot(res)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, res.Scenario.Name, data)
}
