package cli

import (
	"time"

	"github.com/google/uuid"

	"github.com/roach88/stat7/internal/chain"
	"github.com/roach88/stat7/internal/schema"
	"github.com/roach88/stat7/internal/stat7"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeNotFound = "E005" // Path or entity not found

	ErrCodeSchema = "E101" // Definition document failed schema validation
	ErrCodeChain  = "E201" // Chain integrity violation on append
	ErrCodeReplay = "E202" // Replay validation divergence
)

// buildFromDefinition turns a validated definition document into an
// identity core and a genesis-committed chain. Nothing is persisted;
// the caller decides whether the result reaches a store.
func buildFromDefinition(def *schema.Definition, now time.Time) (stat7.IdentityCore, *chain.Chain, error) {
	entityType, err := def.EntityType()
	if err != nil {
		return stat7.IdentityCore{}, nil, err
	}

	id := uuid.New()
	if def.Entity.ID != "" {
		id, err = uuid.Parse(def.Entity.ID)
		if err != nil {
			return stat7.IdentityCore{}, nil, err
		}
	}

	core, err := stat7.NewIdentityCore(id, entityType, now, def.Entity.SemanticHash)
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
	})
	if err != nil {
		return stat7.IdentityCore{}, nil, err
	}
	return core, c, nil
}
