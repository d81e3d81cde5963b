package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stat7/internal/schema"
	"github.com/roach88/stat7/internal/store"
)

// GenesisOptions holds flags for the genesis command.
type GenesisOptions struct {
	*RootOptions
	File     string
	Database string
}

// GenesisResult is the output payload of a successful genesis.
type GenesisResult struct {
	EntityID      string `json:"entity_id"`
	RealityBranch string `json:"reality_branch"`
	Address       string `json:"stat7_address"`
	CanonicalHash string `json:"canonical_hash"`
	AdjacencyHash string `json:"adjacency_hash"`
	ChainHash     string `json:"chain_integrity_hash"`
	Persisted     bool   `json:"persisted"`
}

// NewGenesisCommand creates the genesis command.
func NewGenesisCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenesisOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Create an entity from a definition document",
		Long: `Validate an entity definition document, create its identity core and
genesis manifestation, and print the resulting STAT7 address.

With --db, the identity, manifestation, and genesis event are persisted.
Without it, the entity is constructed in memory only.

Exit codes:
  0 - Entity created
  2 - Command error (invalid document, database error)

Examples:
  stat7 genesis -f entity.yaml
  stat7 genesis -f entity.yaml --db ./stat7.db
  stat7 genesis -f entity.yaml --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenesis(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "path to entity definition YAML (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (optional)")

	return cmd
}

func runGenesis(opts *GenesisOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	def, err := schema.Load(opts.File)
	if err != nil {
		out.Error(ErrCodeSchema, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid definition document", err)
	}
	out.VerboseLog("definition %s validated", opts.File)

	core, c, err := buildFromDefinition(def, time.Now())
	if err != nil {
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "genesis failed", err)
	}
	m := c.Manifestation()

	persisted := false
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			out.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		ctx := context.Background()
		if err := st.PutIdentity(ctx, core); err != nil {
			out.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to persist identity", err)
		}
		if err := st.PutManifestation(ctx, m); err != nil {
			out.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to persist manifestation", err)
		}
		persisted = true
		out.VerboseLog("persisted entity %s to %s", core.ID, opts.Database)
	}

	result := GenesisResult{
		EntityID:      core.ID.String(),
		RealityBranch: m.RealityBranch,
		Address:       m.Stat7Address,
		CanonicalHash: m.CanonicalHash,
		AdjacencyHash: m.AdjacencyHash,
		ChainHash:     m.ChainIntegrityHash,
		Persisted:     persisted,
	}

	if opts.Format == "json" {
		return out.Success(result)
	}
	return out.Success(result.Address)
}
