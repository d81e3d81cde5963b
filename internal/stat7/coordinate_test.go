package stat7

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stat7/internal/canonical"
)

func TestNewCoordinateValid(t *testing.T) {
	c, err := NewCoordinate(RealmVoid, "0", nil, HorizonGenesis, 1.0, 0.0, 0.0)
	require.NoError(t, err)
	assert.Equal(t, RealmVoid, c.Realm)
	assert.NotNil(t, c.Adjacency, "empty adjacency must serialize as [], not null")
	assert.Empty(t, c.Adjacency)
}

func TestNewCoordinateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name      string
		realm     Realm
		horizon   Horizon
		resonance float64
		velocity  float64
		density   float64
	}{
		{"bad realm", "underworld", HorizonGenesis, 0.5, 0, 0.5},
		{"bad horizon", RealmData, "twilight", 0.5, 0, 0.5},
		{"resonance below range", RealmData, HorizonPeak, -0.01, 0, 0.5},
		{"resonance above range", RealmData, HorizonPeak, 1.01, 0, 0.5},
		{"density above range", RealmData, HorizonPeak, 0.5, 0, 1.5},
		{"NaN resonance", RealmData, HorizonPeak, math.NaN(), 0, 0.5},
		{"Inf velocity", RealmData, HorizonPeak, 0.5, math.Inf(1), 0.5},
		{"NaN density", RealmData, HorizonPeak, 0.5, 0, math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCoordinate(tt.realm, "7", nil, tt.horizon, tt.resonance, tt.velocity, tt.density)
			require.Error(t, err)
			assert.True(t, canonical.IsSchemaViolation(err))
		})
	}
}

func TestNormalizeAdjacency(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil", nil, []string{}},
		{"already sorted", []string{"a", "b"}, []string{"a", "b"}},
		{"unsorted", []string{"c", "a", "b"}, []string{"a", "b", "c"}},
		{"duplicates removed", []string{"b", "a", "b", "a"}, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAdjacency(tt.input))
		})
	}
}

func TestCoordinateCanonicalMapNormalizesAdjacency(t *testing.T) {
	c := Coordinate{
		Realm:     RealmPattern,
		Lineage:   "3",
		Adjacency: []string{"z", "a", "z"},
		Horizon:   HorizonPeak,
		Resonance: 0.5,
		Density:   0.5,
	}

	m := c.CanonicalMap()
	assert.Equal(t, []string{"a", "z"}, m["adjacency"])
}

func TestCoordinateCloneIsIndependent(t *testing.T) {
	c, err := NewCoordinate(RealmData, "1", []string{"x"}, HorizonEmergence, 0.2, 1.5, 0.8)
	require.NoError(t, err)

	clone := c.Clone()
	clone.Adjacency[0] = "mutated"
	assert.Equal(t, "x", c.Adjacency[0])
}

func TestHorizonAdvance(t *testing.T) {
	h := HorizonGenesis
	var ok bool

	stages := []Horizon{HorizonEmergence, HorizonPeak, HorizonDecay, HorizonCrystallization}
	for _, want := range stages {
		h, ok = h.Next()
		require.True(t, ok)
		assert.Equal(t, want, h)
	}

	// Terminal stage never advances and never errors.
	next, ok := HorizonCrystallization.Next()
	assert.False(t, ok)
	assert.Equal(t, HorizonCrystallization, next)
	assert.True(t, HorizonCrystallization.Terminal())
}

func TestHorizonBefore(t *testing.T) {
	assert.True(t, HorizonGenesis.Before(HorizonEmergence))
	assert.True(t, HorizonGenesis.Before(HorizonCrystallization))
	assert.False(t, HorizonPeak.Before(HorizonPeak))
	assert.False(t, HorizonDecay.Before(HorizonGenesis))
}

func TestParseRealmStrict(t *testing.T) {
	r, err := ParseRealm("narrative")
	require.NoError(t, err)
	assert.Equal(t, RealmNarrative, r)

	for _, bad := range []string{"Narrative", "NARRATIVE", "", "cosmos"} {
		_, err := ParseRealm(bad)
		require.Error(t, err, "realm %q should be rejected", bad)
		assert.True(t, canonical.IsSchemaViolation(err))
	}
}
