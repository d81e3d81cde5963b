package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/stat7/internal/schema"
	"github.com/roach88/stat7/internal/stat7"
)

// AddressOptions holds flags for the address command.
type AddressOptions struct {
	*RootOptions
	File string
}

// AddressResult is the output payload of the address command.
type AddressResult struct {
	Address       string `json:"stat7_address"`
	Realm         string `json:"realm"`
	Lineage       string `json:"lineage"`
	AdjacencyHash string `json:"adjacency_hash"`
	Horizon       string `json:"horizon"`
}

// NewAddressCommand creates the address command.
func NewAddressCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddressOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "address",
		Short: "Compute the STAT7 address of a definition document",
		Long: `Compute the canonical STAT7 address for an entity definition without
creating or persisting anything. Pure function of the coordinates.

Examples:
  stat7 address -f entity.yaml
  stat7 address -f entity.yaml --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddress(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "path to entity definition YAML (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runAddress(opts *AddressOptions, cmd *cobra.Command) error {
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

	coord, err := def.Coordinate()
	if err != nil {
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid coordinates", err)
	}

	addr, err := stat7.ComputeAddress(coord)
	if err != nil {
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "address computation failed", err)
	}

	adjHash, err := stat7.AdjacencyHash(coord.Adjacency)
	if err != nil {
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "adjacency hash failed", err)
	}

	result := AddressResult{
		Address:       addr,
		Realm:         string(coord.Realm),
		Lineage:       coord.Lineage,
		AdjacencyHash: adjHash,
		Horizon:       string(coord.Horizon),
	}

	if opts.Format == "json" {
		return out.Success(result)
	}
	return out.Success(result.Address)
}
