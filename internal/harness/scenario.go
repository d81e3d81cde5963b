package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is one YAML scenario file: an entity definition, the
// mutation steps applied after genesis, an optional tamper, and the
// expected replay outcome.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Epoch pins the deterministic clock. Canonical timestamp form;
	// empty means the default epoch.
	Epoch string `yaml:"epoch"`

	// Definition is a full entity definition document, validated
	// through the same schema path as the CLI. It must pin entity.id
	// so the run is reproducible.
	Definition map[string]any `yaml:"definition"`

	Steps  []Step      `yaml:"steps"`
	Tamper *Tamper     `yaml:"tamper"`
	Expect Expectation `yaml:"expect"`
}

// Step is one mutation applied to the chain after genesis. Type selects
// the mutation; the remaining fields feed its payload.
type Step struct {
	Type  string `yaml:"type"`
	Actor string `yaml:"actor"`

	Entries     map[string]any `yaml:"entries"`     // state-set
	Keys        []string       `yaml:"keys"`        // state-delete
	Level       int            `yaml:"level"`       // luminosity-set
	Coordinates map[string]any `yaml:"coordinates"` // coordinates-set
	Link        map[string]any `yaml:"link"`        // link-set
	TargetID    string         `yaml:"target_id"`   // link-remove
}

// Tamper mutates one committed event behind the chain's back, after the
// scenario's steps have run. Used to exercise replay detection.
type Tamper struct {
	EventIndex   int            `yaml:"event_index"`
	NewStateHash string         `yaml:"new_state_hash"`
	Payload      map[string]any `yaml:"payload"`
}

// Expectation is the asserted outcome of replaying the (possibly
// tampered) manifestation.
type Expectation struct {
	ReplayOK  bool   `yaml:"replay_ok"`
	FailIndex *int   `yaml:"fail_index"`
	Check     string `yaml:"check"`
	Events    int    `yaml:"events"`
	Horizon   string `yaml:"horizon"`
}

// LoadScenario reads and decodes one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decoding scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s: missing name", path)
	}
	if len(sc.Definition) == 0 {
		return nil, fmt.Errorf("scenario %s: missing definition", path)
	}
	return &sc, nil
}

// LoadScenarios loads every *.yaml scenario in a directory, sorted by
// file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		sc, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}
