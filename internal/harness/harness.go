package harness

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/roach88/stat7/internal/canonical"
	"github.com/roach88/stat7/internal/chain"
	"github.com/roach88/stat7/internal/schema"
	"github.com/roach88/stat7/internal/stat7"
	"github.com/roach88/stat7/internal/testutil"
)

// DefaultEpoch is the deterministic clock epoch used when a scenario
// does not pin one.
var DefaultEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Result is the outcome of one scenario run: the final manifestation
// (tampered, if the scenario says so) and its replay report.
type Result struct {
	Scenario      *Scenario
	Core          stat7.IdentityCore
	Manifestation *stat7.Manifestation
	Report        chain.ReplayReport
}

// Run executes a scenario: validate the definition, commit genesis,
// apply each step, snapshot the chain, apply any tamper, and replay.
//
// The clock and id source are deterministic, so two runs of the same
// scenario produce byte-identical event logs.
func Run(sc *Scenario) (*Result, error) {
	epoch := DefaultEpoch
	if sc.Epoch != "" {
		t, err := canonical.ParseTimestamp(sc.Epoch)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: epoch: %w", sc.Name, err)
		}
		epoch = t
	}
	clock := testutil.NewDeterministicClock(epoch)
	ids := testutil.NewSequentialIDSource()

	defBytes, err := yaml.Marshal(sc.Definition)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: encoding definition: %w", sc.Name, err)
	}
	def, err := schema.Parse(defBytes)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	if def.Entity.ID == "" {
		return nil, fmt.Errorf("scenario %s: definition must pin entity.id", sc.Name)
	}

	core, c, err := genesisChain(def, clock, ids)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	for i, step := range sc.Steps {
		if err := applyStep(c, step); err != nil {
			return nil, fmt.Errorf("scenario %s: step %d (%s): %w", sc.Name, i, step.Type, err)
		}
	}

	m := c.Snapshot()
	if sc.Tamper != nil {
		if err := applyTamper(m, sc.Tamper); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
	}

	return &Result{
		Scenario:      sc,
		Core:          core,
		Manifestation: m,
		Report:        chain.Validate(m),
	}, nil
}

// genesisChain builds the identity core and a genesis-committed chain
// from a validated definition, on the deterministic clock and ids.
func genesisChain(def *schema.Definition, clock *testutil.DeterministicClock, ids *testutil.SequentialIDSource) (stat7.IdentityCore, *chain.Chain, error) {
	entityType, err := def.EntityType()
	if err != nil {
		return stat7.IdentityCore{}, nil, err
	}
	id, err := uuid.Parse(def.Entity.ID)
	if err != nil {
		return stat7.IdentityCore{}, nil, err
	}
	core, err := stat7.NewIdentityCore(id, entityType, clock.Now(), def.Entity.SemanticHash)
	if err != nil {
		return stat7.IdentityCore{}, nil, err
	}

	coord, err := def.Coordinate()
	if err != nil {
		return stat7.IdentityCore{}, nil, err
	}
	links, err := def.Links()
	if err != nil {
		return stat7.IdentityCore{}, nil, err
	}

	var actor *string
	if def.Actor != "" {
		a := def.Actor
		actor = &a
	}

	c, err := chain.Genesis(core, def.RealityBranch, chain.GenesisInit{
		Coordinates:     coord,
		State:           def.State,
		LuminosityLevel: def.LuminosityLevel,
		Links:           links,
		Actor:           actor,
	}, chain.WithClock(clock.Now), chain.WithIDSource(ids.Next))
	if err != nil {
		return stat7.IdentityCore{}, nil, err
	}
	return core, c, nil
}

// applyStep appends one scenario step to the chain.
func applyStep(c *chain.Chain, step Step) error {
	mutationType, err := stat7.ParseMutationType(step.Type)
	if err != nil {
		return err
	}

	var actor *string
	if step.Actor != "" {
		a := step.Actor
		actor = &a
	}

	if mutationType == stat7.MutationHorizonAdvance {
		_, _, err := c.AdvanceHorizon(actor)
		return err
	}

	payload, err := stepPayload(mutationType, step)
	if err != nil {
		return err
	}
	_, err = c.Apply(mutationType, actor, payload)
	return err
}

// stepPayload assembles the mutation document from the step's fields.
func stepPayload(mutationType stat7.MutationType, step Step) (map[string]any, error) {
	switch mutationType {
	case stat7.MutationStateSet:
		if len(step.Entries) == 0 {
			return nil, fmt.Errorf("state-set requires entries")
		}
		return map[string]any{"entries": step.Entries}, nil

	case stat7.MutationStateDelete:
		if len(step.Keys) == 0 {
			return nil, fmt.Errorf("state-delete requires keys")
		}
		return map[string]any{"keys": step.Keys}, nil

	case stat7.MutationLuminositySet:
		return map[string]any{"level": step.Level}, nil

	case stat7.MutationCoordinatesSet:
		if len(step.Coordinates) == 0 {
			return nil, fmt.Errorf("coordinates-set requires a coordinates document")
		}
		return map[string]any{"coordinates": step.Coordinates}, nil

	case stat7.MutationLinkSet:
		if len(step.Link) == 0 {
			return nil, fmt.Errorf("link-set requires a link document")
		}
		return map[string]any{"link": step.Link}, nil

	case stat7.MutationLinkRemove:
		if step.TargetID == "" {
			return nil, fmt.Errorf("link-remove requires target_id")
		}
		return map[string]any{"target_id": step.TargetID}, nil

	default:
		return nil, fmt.Errorf("mutation type %q is not valid as a scenario step", mutationType)
	}
}

// applyTamper corrupts one committed event in the snapshot. The chain
// that produced the snapshot is not touched.
func applyTamper(m *stat7.Manifestation, tamper *Tamper) error {
	if tamper.EventIndex < 0 || tamper.EventIndex >= len(m.Events) {
		return fmt.Errorf("tamper event_index %d out of range [0,%d)", tamper.EventIndex, len(m.Events))
	}
	ev := &m.Events[tamper.EventIndex]
	if tamper.NewStateHash != "" {
		ev.NewStateHash = tamper.NewStateHash
	}
	if tamper.Payload != nil {
		ev.Payload = tamper.Payload
	}
	return nil
}
