package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tandem/internal/assembly"
	"github.com/roach88/tandem/internal/catalog"
	"github.com/roach88/tandem/internal/ir"
	"github.com/roach88/tandem/internal/persist"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string
	Catalog  string
}

// ReplayEntry describes one recorded action after replay.
type ReplayEntry struct {
	Index   int      `json:"index"`
	ID      int64    `json:"id"`
	Kind    string   `json:"kind"`
	Args    ir.Array `json:"args,omitempty"`
	Skipped bool     `json:"skipped,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ReplayResult is the restored session.
type ReplayResult struct {
	Session       string        `json:"session"`
	State         ir.Value      `json:"state"`
	Committed     ir.Value      `json:"committed"`
	CurrentIndex  int           `json:"current_index"`
	Entries       []ReplayEntry `json:"entries"`
	Failures      int           `json:"failures"`
	Deterministic bool          `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Restore a persisted session into a fresh tree",
		Long: `Restore a persisted session into a tree built from a catalog and print
the resulting state and history.

The session is restored twice into separate trees to check that replay is
deterministic. Nothing is written back to the database.

Exit codes:
  0 - Every action replayed and both restores agree
  1 - An action failed to replay, or the restores differ
  2 - Command error (database or session not found, invalid catalog)

Examples:
  tandem replay --db ./sessions.db --session demo --catalog ./counter.cue
  tandem replay --db ./sessions.db --session demo --catalog ./counter.cue --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite session database (default $TANDEM_DB)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (default $TANDEM_SESSION)")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "CUE catalog declaring the tree (required)")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, w)
	logger := opts.logger()

	db := orEnv(opts.Database, opts.Config.DB)
	if db == "" {
		return formatter.Error(ExitCommandError, ErrCodeGeneric, "--db or TANDEM_DB is required", nil, nil)
	}
	session := orEnv(opts.Session, opts.Config.Session)
	if session == "" {
		return formatter.Error(ExitCommandError, ErrCodeGeneric, "--session or TANDEM_SESSION is required", nil, nil)
	}

	spec, err := catalog.LoadFile(opts.Catalog)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeCompile, "failed to load catalog", err.Error(), err)
	}

	st, err := persist.Open(db)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeStore, "failed to open database", err.Error(), err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if _, found, err := st.Load(ctx, session); err != nil {
		return formatter.Error(ExitCommandError, ErrCodeStore, "failed to load session", err.Error(), err)
	} else if !found {
		return formatter.Error(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("session not found: %s", session), nil, nil)
	}

	restore := func() (*assembly.Store, error) {
		tree, err := spec.Build()
		if err != nil {
			return nil, err
		}
		return assembly.Build(ctx, tree,
			assembly.WithPersistence(st),
			assembly.WithSession(session),
			assembly.WithLogger(logger),
		)
	}

	first, err := restore()
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeStore, "failed to restore session", err.Error(), err)
	}
	second, err := restore()
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeStore, "failed to restore session", err.Error(), err)
	}

	result := ReplayResult{
		Session:       session,
		State:         first.GetState(),
		Committed:     first.Log().Committed(),
		CurrentIndex:  first.Log().CurrentIndex(),
		Deterministic: ir.Equal(first.GetState(), second.GetState()),
	}
	computed := first.Log().ComputedStates()
	for i, e := range first.Log().Entries() {
		entry := ReplayEntry{
			Index:   i,
			ID:      e.ID,
			Kind:    e.Action.Kind,
			Args:    e.Action.Args,
			Skipped: first.Log().IsSkipped(e.ID),
		}
		if err := computed[i].Err; err != nil {
			entry.Error = err.Error()
			result.Failures++
		}
		result.Entries = append(result.Entries, entry)
	}
	logger.Info("session replayed", "session", session, "entries", len(result.Entries), "failures", result.Failures)

	if err := formatter.Success(result, func(w io.Writer) {
		printReplay(w, result)
	}); err != nil {
		return err
	}

	switch {
	case result.Failures > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d actions failed to replay", result.Failures))
	case !result.Deterministic:
		return NewExitError(ExitFailure, "replay is not deterministic")
	}
	return nil
}

func printReplay(w io.Writer, result ReplayResult) {
	fmt.Fprintf(w, "session: %s\n", result.Session)
	if result.Committed == nil {
		fmt.Fprintln(w, "committed: (none)")
	} else {
		fmt.Fprintf(w, "committed: %s\n", canonical(result.Committed))
	}
	for _, e := range result.Entries {
		marker := " "
		if e.Index == result.CurrentIndex {
			marker = ">"
		}
		skipped := ""
		if e.Skipped {
			skipped = " (skipped)"
		}
		fmt.Fprintf(w, "%s [%d] #%d %s%s%s\n", marker, e.Index, e.ID, e.Kind, formatArgs(e.Args), skipped)
		if e.Error != "" {
			fmt.Fprintf(w, "      error: %s\n", e.Error)
		}
	}
	fmt.Fprintf(w, "state: %s\n", canonical(result.State))
	if result.Deterministic {
		fmt.Fprintln(w, "✓ deterministic")
	} else {
		fmt.Fprintln(w, "✗ replay is not deterministic")
	}
}
