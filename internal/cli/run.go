package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tandem/internal/assembly"
	"github.com/roach88/tandem/internal/harness"
	"github.com/roach88/tandem/internal/ir"
	"github.com/roach88/tandem/internal/persist"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	Session    string
	DebugURL   string
	MaxHistory int
	NewSession bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario against a bridged store",
		Long: `Run one scenario file and print the trace of every step.

With --db the run is persisted under the scenario's session, the --session
flag, or TANDEM_SESSION, and an existing session with that id is resumed.
With --new-session and no session named, a fresh UUIDv7 id is generated.

Exit codes:
  0 - Scenario passed
  1 - An expectation or assertion failed
  2 - Command error (unreadable scenario or database)

Examples:
  tandem run ./scenarios/checkout.yaml
  tandem run ./scenarios/checkout.yaml --db ./sessions.db --session demo
  tandem run ./scenarios/checkout.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.MaxHistory = -1
			if cmd.Flags().Changed("max-history") {
				opts.MaxHistory, _ = cmd.Flags().GetInt("max-history")
			}
			return runScenarioFile(opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite session database (default $TANDEM_DB)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to persist under (default $TANDEM_SESSION)")
	cmd.Flags().StringVar(&opts.DebugURL, "debug-url", "", "URL whose debug_session parameter names the session")
	cmd.Flags().BoolVar(&opts.NewSession, "new-session", false, "generate a session id when none is given")
	cmd.Flags().Int("max-history", 0, "bound the action log (0 = unbounded)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, w io.Writer) error {
	formatter := newFormatter(opts.RootOptions, w)
	logger := opts.logger()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeScenario, "failed to load scenario", err.Error(), err)
	}

	storeOpts := []assembly.Option{assembly.WithLogger(logger)}

	session := opts.Session
	if session == "" && scenario.Session == "" {
		session = opts.Config.Session
	}
	if session != "" {
		storeOpts = append(storeOpts, assembly.WithSession(session))
	}
	if url := orEnv(opts.DebugURL, opts.Config.DebugURL); url != "" {
		storeOpts = append(storeOpts, assembly.WithDebugURL(url))
	}
	switch {
	case opts.MaxHistory >= 0:
		storeOpts = append(storeOpts, assembly.WithMaxHistory(opts.MaxHistory))
	case scenario.MaxHistory == 0 && opts.Config.MaxHistory > 0:
		storeOpts = append(storeOpts, assembly.WithMaxHistory(opts.Config.MaxHistory))
	}

	if db := orEnv(opts.Database, opts.Config.DB); db != "" {
		logger.Info("opening session database", "path", db)
		st, err := persist.Open(db)
		if err != nil {
			return formatter.Error(ExitCommandError, ErrCodeStore, "failed to open database", err.Error(), err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		storeOpts = append(storeOpts, assembly.WithPersistence(st))
		if opts.NewSession {
			storeOpts = append(storeOpts, assembly.WithSessionGenerator(persist.UUIDv7Generator{}))
		}
	}

	result, err := harness.Run(scenario, storeOpts...)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeScenario, "scenario execution failed", err.Error(), err)
	}

	if err := formatter.Success(result, func(w io.Writer) {
		printResult(w, scenario.Name, result)
	}); err != nil {
		return err
	}
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func printResult(w io.Writer, name string, result *harness.Result) {
	for _, ev := range result.Trace {
		fmt.Fprintf(w, "[%d] %-8s %s%s -> %s (%d records)\n",
			ev.Step, ev.Source, ev.Kind, formatArgs(ev.Args), canonical(ev.State), ev.Records)
		if ev.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", ev.Error)
		}
	}
	if result.SessionID != "" {
		fmt.Fprintf(w, "session: %s\n", result.SessionID)
	}
	if result.Pass {
		fmt.Fprintf(w, "✓ %s\n", name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", name)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func formatArgs(args ir.Array) string {
	if len(args) == 0 {
		return ""
	}
	return " " + canonical(args)
}

func canonical(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
