package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stat7/internal/stat7"
)

const validDoc = `
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
entanglement_links:
  - target_id: "n-9"
    resonance_strength: 0.4
    type: echo
    confidence: 0.9
`

func TestParseAcceptsValidDocument(t *testing.T) {
	def, err := Parse([]byte(validDoc))
	require.NoError(t, err)

	assert.Equal(t, "concept", def.Entity.Type)
	assert.Equal(t, "prime", def.RealityBranch)
	assert.Equal(t, "keeper", def.Actor)
	assert.Equal(t, 3, def.LuminosityLevel)
	assert.Equal(t, "calm", def.State["mood"])
	require.Len(t, def.EntanglementLinks, 1)
	assert.Equal(t, "n-9", def.EntanglementLinks[0].TargetID)
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "invalid realm",
			doc: `
entity: {type: concept}
reality_branch: prime
coordinates: {realm: dreams, lineage: "1", horizon: genesis, resonance: 0.5, velocity: 0.0, density: 0.5}
`,
		},
		{
			name: "invalid entity type",
			doc: `
entity: {type: ghost}
reality_branch: prime
coordinates: {realm: data, lineage: "1", horizon: genesis, resonance: 0.5, velocity: 0.0, density: 0.5}
`,
		},
		{
			name: "resonance above one",
			doc: `
entity: {type: concept}
reality_branch: prime
coordinates: {realm: data, lineage: "1", horizon: genesis, resonance: 1.5, velocity: 0.0, density: 0.5}
`,
		},
		{
			name: "negative density",
			doc: `
entity: {type: concept}
reality_branch: prime
coordinates: {realm: data, lineage: "1", horizon: genesis, resonance: 0.5, velocity: 0.0, density: -0.1}
`,
		},
		{
			name: "luminosity out of range",
			doc: `
entity: {type: concept}
reality_branch: prime
coordinates: {realm: data, lineage: "1", horizon: genesis, resonance: 0.5, velocity: 0.0, density: 0.5}
luminosity_level: 9
`,
		},
		{
			name: "missing reality branch",
			doc: `
entity: {type: concept}
coordinates: {realm: data, lineage: "1", horizon: genesis, resonance: 0.5, velocity: 0.0, density: 0.5}
`,
		},
		{
			name: "invalid horizon",
			doc: `
entity: {type: concept}
reality_branch: prime
coordinates: {realm: data, lineage: "1", horizon: twilight, resonance: 0.5, velocity: 0.0, density: 0.5}
`,
		},
		{
			name: "malformed entity id",
			doc: `
entity: {id: "not-a-uuid", type: concept}
reality_branch: prime
coordinates: {realm: data, lineage: "1", horizon: genesis, resonance: 0.5, velocity: 0.0, density: 0.5}
`,
		},
		{
			name: "link confidence out of range",
			doc: `
entity: {type: concept}
reality_branch: prime
coordinates: {realm: data, lineage: "1", horizon: genesis, resonance: 0.5, velocity: 0.0, density: 0.5}
entanglement_links:
  - {target_id: "x", resonance_strength: 0.5, type: echo, confidence: 1.2}
`,
		},
		{
			name: "empty document",
			doc:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)

			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestDefinitionConversions(t *testing.T) {
	def, err := Parse([]byte(validDoc))
	require.NoError(t, err)

	coord, err := def.Coordinate()
	require.NoError(t, err)
	assert.Equal(t, stat7.RealmData, coord.Realm)
	assert.Equal(t, stat7.HorizonGenesis, coord.Horizon)
	assert.Equal(t, []string{"n-1"}, coord.Adjacency)

	links, err := def.Links()
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, 0.4, links[0].ResonanceStrength)

	et, err := def.EntityType()
	require.NoError(t, err)
	assert.Equal(t, stat7.EntityConcept, et)
}
