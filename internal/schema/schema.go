// Package schema validates entity definition documents before genesis.
//
// Definitions arrive as YAML and are checked against an embedded CUE
// schema (enums, [0,1] ranges, luminosity bounds) using the CUE Go API
// directly, not a CLI subprocess. Validation failures carry source
// positions where CUE provides them.
package schema

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/stat7/internal/stat7"
)

//go:embed entity.cue
var entitySchema string

// Definition is a validated entity definition document.
type Definition struct {
	Entity struct {
		ID           string `yaml:"id"`
		Type         string `yaml:"type"`
		SemanticHash string `yaml:"semantic_hash"`
	} `yaml:"entity"`
	RealityBranch     string         `yaml:"reality_branch"`
	Actor             string         `yaml:"actor"`
	Coordinates       CoordinateDoc  `yaml:"coordinates"`
	LuminosityLevel   int            `yaml:"luminosity_level"`
	State             map[string]any `yaml:"state"`
	EntanglementLinks []LinkDoc      `yaml:"entanglement_links"`
}

// CoordinateDoc is the coordinates block of a definition.
type CoordinateDoc struct {
	Realm     string   `yaml:"realm"`
	Lineage   string   `yaml:"lineage"`
	Adjacency []string `yaml:"adjacency"`
	Horizon   string   `yaml:"horizon"`
	Resonance float64  `yaml:"resonance"`
	Velocity  float64  `yaml:"velocity"`
	Density   float64  `yaml:"density"`
}

// LinkDoc is one entanglement link of a definition.
type LinkDoc struct {
	TargetID          string  `yaml:"target_id"`
	ResonanceStrength float64 `yaml:"resonance_strength"`
	Type              string  `yaml:"type"`
	Confidence        float64 `yaml:"confidence"`
}

// ValidationError reports a definition document that fails the schema,
// with source position when CUE provides one.
type ValidationError struct {
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Load reads, validates, and decodes a definition document from disk.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition: %w", err)
	}
	return Parse(data)
}

// Parse validates YAML bytes against the embedded schema and decodes
// them into a Definition.
func Parse(data []byte) (*Definition, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("parsing YAML: %v", err)}
	}
	if doc == nil {
		return nil, &ValidationError{Message: "empty definition document"}
	}

	if err := validate(doc); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("decoding definition: %v", err)}
	}
	return &def, nil
}

// validate unifies the document with #Definition and requires the result
// to be concrete.
func validate(doc map[string]any) error {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileString(entitySchema, cue.Filename("entity.cue"))
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compiling embedded schema: %w", err)
	}

	defSchema := schemaVal.LookupPath(cue.ParsePath("#Definition"))
	if err := defSchema.Err(); err != nil {
		return fmt.Errorf("resolving #Definition: %w", err)
	}

	docVal := ctx.Encode(doc)
	if err := docVal.Err(); err != nil {
		return &ValidationError{Message: fmt.Sprintf("encoding document: %v", err)}
	}

	unified := defSchema.Unify(docVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &ValidationError{Message: first.Error(), Pos: positions[0]}
	}
	return &ValidationError{Message: first.Error()}
}

// Coordinate converts the coordinates block to a validated Coordinate.
func (d *Definition) Coordinate() (stat7.Coordinate, error) {
	realm, err := stat7.ParseRealm(d.Coordinates.Realm)
	if err != nil {
		return stat7.Coordinate{}, err
	}
	horizon, err := stat7.ParseHorizon(d.Coordinates.Horizon)
	if err != nil {
		return stat7.Coordinate{}, err
	}
	return stat7.NewCoordinate(
		realm, d.Coordinates.Lineage, d.Coordinates.Adjacency, horizon,
		d.Coordinates.Resonance, d.Coordinates.Velocity, d.Coordinates.Density,
	)
}

// Links converts the entanglement link docs to validated links.
func (d *Definition) Links() ([]stat7.EntanglementLink, error) {
	if len(d.EntanglementLinks) == 0 {
		return nil, nil
	}
	out := make([]stat7.EntanglementLink, 0, len(d.EntanglementLinks))
	for _, l := range d.EntanglementLinks {
		link := stat7.EntanglementLink{
			TargetID:          l.TargetID,
			ResonanceStrength: l.ResonanceStrength,
			Type:              l.Type,
			Confidence:        l.Confidence,
		}
		if err := link.Validate(); err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, nil
}

// EntityType returns the validated entity type.
func (d *Definition) EntityType() (stat7.EntityType, error) {
	return stat7.ParseEntityType(d.Entity.Type)
}
