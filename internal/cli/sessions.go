package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tandem/internal/persist"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List persisted sessions",
		Example: `  tandem sessions --db ./sessions.db
  tandem sessions --db ./sessions.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(cmd, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite session database (default $TANDEM_DB)")
	return cmd
}

func runSessions(cmd *cobra.Command, opts *SessionsOptions, w io.Writer) error {
	formatter := newFormatter(opts.RootOptions, w)

	db := orEnv(opts.Database, opts.Config.DB)
	if db == "" {
		return formatter.Error(ExitCommandError, ErrCodeGeneric, "--db or TANDEM_DB is required", nil, nil)
	}

	st, err := persist.Open(db)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeStore, "failed to open database", err.Error(), err)
	}
	defer st.Close()

	sessions, err := st.ListSessions(cmd.Context())
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeStore, "failed to list sessions", err.Error(), err)
	}

	return formatter.Success(sessions, func(w io.Writer) {
		if len(sessions) == 0 {
			fmt.Fprintln(w, "No sessions.")
			return
		}
		fmt.Fprintf(w, "%-36s %8s %8s %9s %6s\n", "SESSION", "ENTRIES", "CURRENT", "COMMITTED", "SAVES")
		for _, s := range sessions {
			fmt.Fprintf(w, "%-36s %8d %8d %9t %6d\n", s.ID, s.Entries, s.CurrentIndex, s.Committed, s.Saves)
		}
	})
}
