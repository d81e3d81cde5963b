package stat7

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stat7/internal/canonical"
)

func TestComputeAddressGenesisEntity(t *testing.T) {
	// The canonical worked example: LUCA-0000 at the origin of the void.
	coord, err := NewCoordinate(RealmVoid, "0", nil, HorizonGenesis, 1.0, 0.0, 0.0)
	require.NoError(t, err)

	addr, err := ComputeAddress(coord)
	require.NoError(t, err)

	expected := fmt.Sprintf("stat7://void/0/%s/genesis?r=1.0&v=0.0&d=0.0", EmptyAdjacencyHash())
	assert.Equal(t, expected, addr)
}

func TestComputeAddressNormalizedFloats(t *testing.T) {
	coord, err := NewCoordinate(RealmPattern, "42", []string{"b", "a"}, HorizonPeak, 0.1+0.2, -1.5, 0.25)
	require.NoError(t, err)

	addr, err := ComputeAddress(coord)
	require.NoError(t, err)

	adjHash, err := AdjacencyHash([]string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t,
		fmt.Sprintf("stat7://pattern/42/%s/peak?r=0.3&v=-1.5&d=0.25", adjHash),
		addr)
}

func TestComputeAddressMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		coord Coordinate
		field string
	}{
		{"missing realm", Coordinate{Lineage: "1", Horizon: HorizonGenesis}, "realm"},
		{"missing lineage", Coordinate{Realm: RealmVoid, Horizon: HorizonGenesis}, "lineage"},
		{"missing horizon", Coordinate{Realm: RealmVoid, Lineage: "1"}, "horizon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeAddress(tt.coord)
			require.Error(t, err)
			assert.True(t, IsAddressError(err))

			var ae *AddressComputationError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.field, ae.Field)
		})
	}
}

func TestComputeAddressAdjacencyOrderIndependent(t *testing.T) {
	c1, err := NewCoordinate(RealmSystem, "9", []string{"x", "y", "z"}, HorizonDecay, 0.5, 0, 0.5)
	require.NoError(t, err)
	c2, err := NewCoordinate(RealmSystem, "9", []string{"z", "x", "y"}, HorizonDecay, 0.5, 0, 0.5)
	require.NoError(t, err)

	a1, err := ComputeAddress(c1)
	require.NoError(t, err)
	a2, err := ComputeAddress(c2)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
}

func TestParseAddressRoundTrip(t *testing.T) {
	coord, err := NewCoordinate(RealmNarrative, "12", []string{"p", "q"}, HorizonDecay, 0.75, -2.25, 0.125)
	require.NoError(t, err)

	s, err := ComputeAddress(coord)
	require.NoError(t, err)

	addr, err := ParseAddress(s)
	require.NoError(t, err)
	assert.Equal(t, RealmNarrative, addr.Realm)
	assert.Equal(t, "12", addr.Lineage)
	assert.Equal(t, HorizonDecay, addr.Horizon)
	assert.Equal(t, 0.75, addr.Resonance)
	assert.Equal(t, -2.25, addr.Velocity)
	assert.Equal(t, 0.125, addr.Density)

	adjHash, err := AdjacencyHash([]string{"p", "q"})
	require.NoError(t, err)
	assert.Equal(t, adjHash, addr.AdjacencyHash)
}

func TestParseAddressStrict(t *testing.T) {
	valid := fmt.Sprintf("stat7://void/0/%s/genesis?r=1.0&v=0.0&d=0.0", EmptyAdjacencyHash())
	_, err := ParseAddress(valid)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
	}{
		{"wrong scheme", "http://void/0/abc/genesis?r=1.0&v=0.0&d=0.0"},
		{"missing query", "stat7://void/0/abc/genesis"},
		{"too few segments", "stat7://void/0/genesis?r=1.0&v=0.0&d=0.0"},
		{"bad realm", fmt.Sprintf("stat7://limbo/0/%s/genesis?r=1.0&v=0.0&d=0.0", EmptyAdjacencyHash())},
		{"bad horizon", fmt.Sprintf("stat7://void/0/%s/dawn?r=1.0&v=0.0&d=0.0", EmptyAdjacencyHash())},
		{"short adjacency hash", "stat7://void/0/abcdef/genesis?r=1.0&v=0.0&d=0.0"},
		{"alphabetical param order", fmt.Sprintf("stat7://void/0/%s/genesis?d=0.0&r=1.0&v=0.0", EmptyAdjacencyHash())},
		{"missing param", fmt.Sprintf("stat7://void/0/%s/genesis?r=1.0&v=0.0", EmptyAdjacencyHash())},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.input)
			require.Error(t, err)
			assert.True(t, canonical.IsSchemaViolation(err))
		})
	}
}
