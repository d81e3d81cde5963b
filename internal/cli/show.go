package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/stat7/internal/canonical"
	"github.com/roach88/stat7/internal/stat7"
	"github.com/roach88/stat7/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	EntityID string
	Branch   string
}

// ShowEvent is the display form of one bit-chain event.
type ShowEvent struct {
	Index             int            `json:"index"`
	EventID           string         `json:"event_id"`
	Actor             *string        `json:"actor"`
	MutationType      string         `json:"mutation_type"`
	Payload           map[string]any `json:"payload"`
	PreviousStateHash *string        `json:"previous_state_hash"`
	NewStateHash      string         `json:"new_state_hash"`
	Timestamp         string         `json:"timestamp"`
}

// ShowResult is the output payload of the show command.
type ShowResult struct {
	EntityID      string         `json:"entity_id"`
	EntityType    string         `json:"entity_type"`
	CreatedAt     string         `json:"created_at"`
	SemanticHash  string         `json:"semantic_hash"`
	IdentityHash  string         `json:"identity_hash"`
	RealityBranch string         `json:"reality_branch"`
	Address       string         `json:"stat7_address"`
	CanonicalHash string         `json:"canonical_hash"`
	AdjacencyHash string         `json:"adjacency_hash"`
	ChainHash     string         `json:"chain_integrity_hash"`
	Luminosity    int            `json:"luminosity_level"`
	Horizon       string         `json:"horizon"`
	State         map[string]any `json:"state"`
	Events        []ShowEvent    `json:"events"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a persisted entity, its manifestation, and its event log",
		Long: `Dump an entity's identity core, manifestation state, derived hashes,
and full bit-chain event log.

Examples:
  stat7 show --db ./stat7.db --id <uuid>
  stat7 show --db ./stat7.db --id <uuid> --branch prime --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.EntityID, "id", "", "entity UUID (required)")
	_ = cmd.MarkFlagRequired("id")
	cmd.Flags().StringVar(&opts.Branch, "branch", "prime", "reality branch")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
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

	core, err := st.GetIdentity(ctx, entityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg := fmt.Sprintf("entity %s not found", entityID)
			out.Error(ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load identity", err)
	}

	m, err := st.GetManifestation(ctx, entityID, opts.Branch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg := fmt.Sprintf("entity %s has no manifestation on branch %q", entityID, opts.Branch)
			out.Error(ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load manifestation", err)
	}

	result := ShowResult{
		EntityID:      core.ID.String(),
		EntityType:    string(core.EntityType),
		CreatedAt:     canonical.FormatTimestamp(core.CreatedAt),
		SemanticHash:  core.SemanticHash,
		IdentityHash:  core.CanonicalHash,
		RealityBranch: m.RealityBranch,
		Address:       m.Stat7Address,
		CanonicalHash: m.CanonicalHash,
		AdjacencyHash: m.AdjacencyHash,
		ChainHash:     m.ChainIntegrityHash,
		Luminosity:    m.LuminosityLevel,
		Horizon:       string(m.Coordinates.Horizon),
		State:         m.State,
		Events:        make([]ShowEvent, 0, len(m.Events)),
	}
	for i, ev := range m.Events {
		result.Events = append(result.Events, showEvent(i, ev))
	}

	if opts.Format == "json" {
		return out.Success(result)
	}
	return outputShowText(cmd, result)
}

func showEvent(index int, ev stat7.BitChainEvent) ShowEvent {
	return ShowEvent{
		Index:             index,
		EventID:           ev.EventID.String(),
		Actor:             ev.Actor,
		MutationType:      string(ev.MutationType),
		Payload:           ev.Payload,
		PreviousStateHash: ev.PreviousStateHash,
		NewStateHash:      ev.NewStateHash,
		Timestamp:         canonical.FormatTimestamp(ev.Timestamp),
	}
}

func outputShowText(cmd *cobra.Command, result ShowResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Entity %s (%s)\n", result.EntityID, result.EntityType)
	fmt.Fprintf(w, "  created:   %s\n", result.CreatedAt)
	fmt.Fprintf(w, "  identity:  %s\n", result.IdentityHash)
	fmt.Fprintf(w, "  branch:    %s\n", result.RealityBranch)
	fmt.Fprintf(w, "  address:   %s\n", result.Address)
	fmt.Fprintf(w, "  canonical: %s\n", result.CanonicalHash)
	fmt.Fprintf(w, "  chain:     %s\n", result.ChainHash)
	fmt.Fprintf(w, "  horizon:   %s, luminosity %d\n", result.Horizon, result.Luminosity)
	fmt.Fprintf(w, "\nEvents (%d):\n", len(result.Events))
	for _, ev := range result.Events {
		actor := "-"
		if ev.Actor != nil {
			actor = *ev.Actor
		}
		fmt.Fprintf(w, "  [%d] %s %s actor=%s new=%s\n",
			ev.Index, ev.Timestamp, ev.MutationType, actor, ev.NewStateHash)
	}
	return nil
}
