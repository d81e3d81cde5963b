package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stat7/internal/schema"
)

// HashOptions holds flags for the hash command.
type HashOptions struct {
	*RootOptions
	File string
}

// HashResult is the output payload of the hash command.
type HashResult struct {
	IdentityHash      string `json:"identity_hash"`
	AdjacencyHash     string `json:"adjacency_hash"`
	ManifestationHash string `json:"manifestation_hash"`
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HashOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print the canonical hashes of a definition document",
		Long: `Construct the entity described by a definition document in memory and
print its identity, adjacency, and manifestation hashes. Nothing is
persisted.

Examples:
  stat7 hash -f entity.yaml
  stat7 hash -f entity.yaml --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "path to entity definition YAML (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runHash(opts *HashOptions, cmd *cobra.Command) error {
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

	core, c, err := buildFromDefinition(def, time.Now())
	if err != nil {
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "hash computation failed", err)
	}
	m := c.Manifestation()

	result := HashResult{
		IdentityHash:      core.CanonicalHash,
		AdjacencyHash:     m.AdjacencyHash,
		ManifestationHash: m.CanonicalHash,
	}

	if opts.Format == "json" {
		return out.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "identity:      %s\n", result.IdentityHash)
	fmt.Fprintf(w, "adjacency:     %s\n", result.AdjacencyHash)
	fmt.Fprintf(w, "manifestation: %s\n", result.ManifestationHash)
	return nil
}
