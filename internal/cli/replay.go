package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/stat7/internal/chain"
	"github.com/roach88/stat7/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	EntityID string
	Branch   string // optional - specific branch only
}

// ReplayBranchResult holds the replay verdict for a single branch.
type ReplayBranchResult struct {
	RealityBranch string `json:"reality_branch"`
	Events        int    `json:"events"`
	OK            bool   `json:"ok"`
	FailIndex     int    `json:"fail_index"`
	Check         string `json:"check,omitempty"`
	Expected      string `json:"expected,omitempty"`
	Actual        string `json:"actual,omitempty"`
	Message       string `json:"message,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	EntityID string               `json:"entity_id"`
	Branches []ReplayBranchResult `json:"branches"`
	AllOK    bool                 `json:"all_ok"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay an entity's bit-chain and verify integrity",
		Long: `Rebuild each manifestation of the entity from its event log and verify
every hash link, the rolling chain hash, the canonical hash, and the
STAT7 address against recomputation.

Exit codes:
  0 - All manifestations verified
  1 - Integrity divergence detected
  2 - Command error (entity not found, database error)

Examples:
  stat7 replay --db ./stat7.db --id <uuid>
  stat7 replay --db ./stat7.db --id <uuid> --branch prime
  stat7 replay --db ./stat7.db --id <uuid> --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.EntityID, "id", "", "entity UUID (required)")
	_ = cmd.MarkFlagRequired("id")
	cmd.Flags().StringVar(&opts.Branch, "branch", "", "verify specific reality branch only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	entityID, err := uuid.Parse(opts.EntityID)
	if err != nil {
		out.Error(ErrCodeGeneric, fmt.Sprintf("invalid entity id: %v", err), nil)
		return WrapExitError(ExitCommandError, "invalid entity id", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := context.Background()

	var branches []string
	if opts.Branch != "" {
		branches = []string{opts.Branch}
	} else {
		branches, err = st.ListBranches(ctx, entityID)
		if err != nil {
			out.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list branches", err)
		}
	}
	if len(branches) == 0 {
		msg := fmt.Sprintf("entity %s has no manifestations", entityID)
		out.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	result := ReplayResult{
		EntityID: entityID.String(),
		Branches: make([]ReplayBranchResult, 0, len(branches)),
		AllOK:    true,
	}

	for _, branch := range branches {
		m, err := st.GetManifestation(ctx, entityID, branch)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				msg := fmt.Sprintf("no manifestation on branch %q", branch)
				out.Error(ErrCodeNotFound, msg, nil)
				return NewExitError(ExitCommandError, msg)
			}
			out.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load manifestation", err)
		}

		out.VerboseLog("replaying %s/%s: %d events", entityID, branch, len(m.Events))
		report := chain.Validate(m)

		result.Branches = append(result.Branches, ReplayBranchResult{
			RealityBranch: branch,
			Events:        len(m.Events),
			OK:            report.OK,
			FailIndex:     report.FailIndex,
			Check:         string(report.Check),
			Expected:      report.Expected,
			Actual:        report.Actual,
			Message:       report.Message,
		})
		if !report.OK {
			result.AllOK = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(out, result)
	}
	return outputReplayText(cmd, result)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(out *OutputFormatter, result ReplayResult) error {
	if result.AllOK {
		if err := out.Success(result); err != nil {
			return err
		}
		return nil
	}
	if err := out.Error(ErrCodeReplay, "replay divergence detected", result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "replay divergence detected")
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay: entity %s, %d branch(es)\n\n", result.EntityID, len(result.Branches))

	for _, b := range result.Branches {
		status := "✓"
		if !b.OK {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Branch %s: %d events\n", status, b.RealityBranch, b.Events)
		if !b.OK {
			fmt.Fprintf(w, "  check:    %s\n", b.Check)
			if b.FailIndex >= 0 {
				fmt.Fprintf(w, "  at event: %d\n", b.FailIndex)
			}
			if b.Expected != "" || b.Actual != "" {
				fmt.Fprintf(w, "  expected: %s\n", b.Expected)
				fmt.Fprintf(w, "  actual:   %s\n", b.Actual)
			}
			fmt.Fprintf(w, "  %s\n", b.Message)
		}
	}
	fmt.Fprintln(w)

	if result.AllOK {
		fmt.Fprintln(w, "✓ Chain integrity verified")
		return nil
	}
	fmt.Fprintln(w, "✗ Replay divergence detected")
	return NewExitError(ExitFailure, "replay divergence detected")
}
