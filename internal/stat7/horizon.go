package stat7

import "github.com/roach88/stat7/internal/canonical"

// Horizon is the monotonic lifecycle stage axis.
//
// Stages advance strictly forward: genesis → emergence → peak → decay →
// crystallization. Crystallization is terminal — an attempt to advance past
// it is a no-op, never an error and never a regression.
type Horizon string

const (
	HorizonGenesis         Horizon = "genesis"
	HorizonEmergence       Horizon = "emergence"
	HorizonPeak            Horizon = "peak"
	HorizonDecay           Horizon = "decay"
	HorizonCrystallization Horizon = "crystallization"
)

// horizonOrder maps each stage to its position in the lifecycle.
var horizonOrder = map[Horizon]int{
	HorizonGenesis:         0,
	HorizonEmergence:       1,
	HorizonPeak:            2,
	HorizonDecay:           3,
	HorizonCrystallization: 4,
}

// horizonStages lists stages in lifecycle order for Next lookups.
var horizonStages = []Horizon{
	HorizonGenesis,
	HorizonEmergence,
	HorizonPeak,
	HorizonDecay,
	HorizonCrystallization,
}

// ParseHorizon validates a horizon string.
func ParseHorizon(s string) (Horizon, error) {
	h := Horizon(s)
	if _, ok := horizonOrder[h]; !ok {
		return "", canonical.Violation("horizon", "invalid horizon %q", s)
	}
	return h, nil
}

// String returns the canonical lowercase name.
func (h Horizon) String() string { return string(h) }

// Terminal reports whether h is the final lifecycle stage.
func (h Horizon) Terminal() bool { return h == HorizonCrystallization }

// Next returns the following stage and true, or h itself and false when h
// is terminal.
func (h Horizon) Next() (Horizon, bool) {
	idx, ok := horizonOrder[h]
	if !ok || idx >= len(horizonStages)-1 {
		return h, false
	}
	return horizonStages[idx+1], true
}

// Before reports whether h precedes other in the lifecycle.
// Used to reject regressions when coordinates are replaced wholesale.
func (h Horizon) Before(other Horizon) bool {
	return horizonOrder[h] < horizonOrder[other]
}
