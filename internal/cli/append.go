package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/stat7/internal/chain"
	"github.com/roach88/stat7/internal/stat7"
	"github.com/roach88/stat7/internal/store"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	Database string
	EntityID string
	Branch   string
	Type     string
	Actor    string

	Sets   []string // state-set: k=v pairs
	Keys   []string // state-delete
	Level  int      // luminosity-set
	Target string   // link-remove
}

// AppendResult is the output payload of a successful append.
type AppendResult struct {
	EventID       string `json:"event_id"`
	MutationType  string `json:"mutation_type"`
	NewStateHash  string `json:"new_state_hash"`
	ChainHash     string `json:"chain_integrity_hash"`
	Address       string `json:"stat7_address"`
	EventCount    int    `json:"event_count"`
	Advanced      *bool  `json:"advanced,omitempty"` // horizon-advance only
	RealityBranch string `json:"reality_branch"`
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append a mutation event to an entity's bit-chain",
		Long: `Load a persisted manifestation, append one mutation event to its
bit-chain, and persist the result. The append is atomic: a rejected
event leaves both the log and the derived hashes untouched.

Exit codes:
  0 - Event appended
  1 - Chain integrity violation
  2 - Command error (entity not found, bad flags)

Examples:
  stat7 append --db ./stat7.db --id <uuid> --type state-set --set mood=stormy
  stat7 append --db ./stat7.db --id <uuid> --type state-delete --key mood
  stat7 append --db ./stat7.db --id <uuid> --type luminosity-set --level 5
  stat7 append --db ./stat7.db --id <uuid> --type horizon-advance`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.EntityID, "id", "", "entity UUID (required)")
	_ = cmd.MarkFlagRequired("id")
	cmd.Flags().StringVar(&opts.Branch, "branch", "prime", "reality branch")
	cmd.Flags().StringVar(&opts.Type, "type", "", "mutation type (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "actor recorded on the event")
	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "state entry k=v (repeatable, state-set)")
	cmd.Flags().StringArrayVar(&opts.Keys, "key", nil, "state key to delete (repeatable, state-delete)")
	cmd.Flags().IntVar(&opts.Level, "level", 0, "luminosity level 0-7 (luminosity-set)")
	cmd.Flags().StringVar(&opts.Target, "target", "", "link target id (link-remove)")

	return cmd
}

func runAppend(opts *AppendOptions, cmd *cobra.Command) error {
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

	mutationType, err := stat7.ParseMutationType(opts.Type)
	if err != nil {
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid mutation type", err)
	}

	payload, err := buildPayload(mutationType, opts)
	if err != nil {
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid mutation payload", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := context.Background()
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

	var actor *string
	if opts.Actor != "" {
		actor = &opts.Actor
	}

	c := chain.New(m)

	var advanced *bool
	var ev stat7.BitChainEvent
	if mutationType == stat7.MutationHorizonAdvance {
		var ok bool
		ev, ok, err = c.AdvanceHorizon(actor)
		advanced = &ok
	} else {
		ev, err = c.Apply(mutationType, actor, payload)
	}
	if err != nil {
		if chain.IsIntegrityViolation(err) {
			out.Error(ErrCodeChain, err.Error(), nil)
			return WrapExitError(ExitFailure, "chain integrity violation", err)
		}
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "append failed", err)
	}

	if err := st.PutManifestation(ctx, m); err != nil {
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to persist manifestation", err)
	}

	result := AppendResult{
		EventID:       ev.EventID.String(),
		MutationType:  string(mutationType),
		NewStateHash:  ev.NewStateHash,
		ChainHash:     m.ChainIntegrityHash,
		Address:       m.Stat7Address,
		EventCount:    len(m.Events),
		Advanced:      advanced,
		RealityBranch: m.RealityBranch,
	}
	if advanced != nil && !*advanced {
		// terminal horizon no-op: nothing was appended
		result.EventID = ""
		result.NewStateHash = ""
	}

	if opts.Format == "json" {
		return out.Success(result)
	}
	if advanced != nil && !*advanced {
		return out.Success("horizon already terminal, no event appended")
	}
	return out.Success(fmt.Sprintf("appended %s event %s (chain %s)", result.MutationType, result.EventID, result.ChainHash))
}

// buildPayload assembles the mutation document from command flags.
func buildPayload(mutationType stat7.MutationType, opts *AppendOptions) (map[string]any, error) {
	switch mutationType {
	case stat7.MutationStateSet:
		if len(opts.Sets) == 0 {
			return nil, fmt.Errorf("state-set requires at least one --set k=v")
		}
		entries := map[string]any{}
		for _, pair := range opts.Sets {
			k, v, ok := strings.Cut(pair, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid --set %q: expected k=v", pair)
			}
			entries[k] = coerceValue(v)
		}
		return map[string]any{"entries": entries}, nil

	case stat7.MutationStateDelete:
		if len(opts.Keys) == 0 {
			return nil, fmt.Errorf("state-delete requires at least one --key")
		}
		keys := make([]any, len(opts.Keys))
		for i, k := range opts.Keys {
			keys[i] = k
		}
		return map[string]any{"keys": keys}, nil

	case stat7.MutationLuminositySet:
		return map[string]any{"level": opts.Level}, nil

	case stat7.MutationHorizonAdvance:
		return map[string]any{}, nil

	case stat7.MutationLinkRemove:
		if opts.Target == "" {
			return nil, fmt.Errorf("link-remove requires --target")
		}
		return map[string]any{"target_id": opts.Target}, nil

	default:
		return nil, fmt.Errorf("mutation type %q is not supported from the command line", mutationType)
	}
}

// coerceValue interprets a flag value as int, float, bool, or string.
func coerceValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
