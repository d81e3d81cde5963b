package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stat7/internal/store"
)

const testDefinition = `
entity:
  id: "aa0e8400-e29b-41d4-a716-446655440000"
  type: concept
  semantic_hash: "sem-1"
reality_branch: prime
actor: keeper
coordinates:
  realm: data
  lineage: "1"
  adjacency: ["n-1"]
  horizon: genesis
  resonance: 0.5
  velocity: 2.0
  density: 0.25
luminosity_level: 3
state:
  mood: calm
`

func writeDefinition(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entity.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testDefinition), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	defPath := writeDefinition(t)

	_, err := runCommand(t, "--format", "xml", "address", "-f", defPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestAddressCommand(t *testing.T) {
	defPath := writeDefinition(t)

	out, err := runCommand(t, "address", "-f", defPath)
	require.NoError(t, err)

	addr := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(addr, "stat7://data/1/"), addr)
	assert.True(t, strings.HasSuffix(addr, "/genesis?r=0.5&v=2.0&d=0.25"), addr)
}

func TestAddressCommandJSON(t *testing.T) {
	defPath := writeDefinition(t)

	out, err := runCommand(t, "--format", "json", "address", "-f", defPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "data", data["realm"])
	assert.Len(t, data["adjacency_hash"], 64)
}

func TestAddressCommandRejectsBadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entity: {type: ghost}\n"), 0o644))

	_, err := runCommand(t, "address", "-f", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHashCommand(t *testing.T) {
	defPath := writeDefinition(t)

	out, err := runCommand(t, "--format", "json", "hash", "-f", defPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]any)
	assert.Len(t, data["identity_hash"], 64)
	assert.Len(t, data["adjacency_hash"], 64)
	assert.Len(t, data["manifestation_hash"], 64)
}

func TestGenesisAppendReplayFlow(t *testing.T) {
	defPath := writeDefinition(t)
	dbPath := filepath.Join(t.TempDir(), "stat7.db")
	entityID := "aa0e8400-e29b-41d4-a716-446655440000"

	out, err := runCommand(t, "--format", "json", "genesis", "-f", defPath, "--db", dbPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, entityID, data["entity_id"])
	assert.Equal(t, true, data["persisted"])

	// Append a state mutation.
	out, err = runCommand(t, "--format", "json", "append",
		"--db", dbPath, "--id", entityID,
		"--type", "state-set", "--set", "mood=stormy", "--actor", "keeper")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data = resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["event_count"])

	// Advance the horizon.
	_, err = runCommand(t, "append", "--db", dbPath, "--id", entityID, "--type", "horizon-advance")
	require.NoError(t, err)

	// Replay verifies the persisted chain.
	out, err = runCommand(t, "replay", "--db", dbPath, "--id", entityID)
	require.NoError(t, err)
	assert.Contains(t, out, "Chain integrity verified")

	// Show dumps the log.
	out, err = runCommand(t, "--format", "json", "show", "--db", dbPath, "--id", entityID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data = resp.Data.(map[string]any)
	events := data["events"].([]any)
	assert.Len(t, events, 3)
	assert.Equal(t, "emergence", data["horizon"])
}

func TestReplayDetectsTamperedRow(t *testing.T) {
	defPath := writeDefinition(t)
	dbPath := filepath.Join(t.TempDir(), "stat7.db")
	entityID := "aa0e8400-e29b-41d4-a716-446655440000"

	_, err := runCommand(t, "genesis", "-f", defPath, "--db", dbPath)
	require.NoError(t, err)
	_, err = runCommand(t, "append", "--db", dbPath, "--id", entityID,
		"--type", "state-set", "--set", "mood=stormy")
	require.NoError(t, err)

	// Tamper with the persisted event payload behind the chain's back.
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE bit_chain_events SET payload = ? WHERE idx = 1`,
		`{"entries":{"mood":"serene"}}`)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := runCommand(t, "replay", "--db", dbPath, "--id", entityID)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Replay divergence detected")
	assert.Contains(t, out, "at event: 1")
}

func TestAppendRejectsUnknownEntity(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stat7.db")

	// Initialize an empty database.
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = runCommand(t, "append", "--db", dbPath,
		"--id", "bb0e8400-e29b-41d4-a716-446655440000",
		"--type", "state-set", "--set", "x=1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAppendTerminalHorizonIsNoOp(t *testing.T) {
	defPath := writeDefinition(t)
	dbPath := filepath.Join(t.TempDir(), "stat7.db")
	entityID := "aa0e8400-e29b-41d4-a716-446655440000"

	_, err := runCommand(t, "genesis", "-f", defPath, "--db", dbPath)
	require.NoError(t, err)

	// genesis -> emergence -> peak -> decay -> crystallization
	for i := 0; i < 4; i++ {
		_, err = runCommand(t, "append", "--db", dbPath, "--id", entityID, "--type", "horizon-advance")
		require.NoError(t, err)
	}

	out, err := runCommand(t, "append", "--db", dbPath, "--id", entityID, "--type", "horizon-advance")
	require.NoError(t, err)
	assert.Contains(t, out, "no event appended")
}
