package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tandem/internal/catalog"
	"github.com/roach88/tandem/internal/ir"
)

// ValidationResult is printed for a catalog that compiles.
type ValidationResult struct {
	Valid     bool           `json:"valid"`
	Initial   ir.Value       `json:"initial"`
	Mutations []MutationInfo `json:"mutations"`
}

// MutationInfo describes one declared mutation.
type MutationInfo struct {
	Name    string `json:"name"`
	Op      string `json:"op"`
	Path    string `json:"path"`
	Default int64  `json:"default,omitempty"`
}

// ValidationError is the detail attached to a compile failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog.cue>",
		Short: "Compile a tree catalog and list its mutations",
		Long: `Compile a CUE tree catalog without running anything.

Reports the initial snapshot and every declared mutation, or the first
compile error with its source position.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd.OutOrStdout())
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, w io.Writer) error {
	formatter := newFormatter(opts, w)

	spec, err := catalog.LoadFile(path)
	if err != nil {
		detail := ValidationError{Message: err.Error()}
		var cErr *catalog.CompileError
		if errors.As(err, &cErr) {
			detail = ValidationError{Field: cErr.Field, Message: cErr.Message}
			if cErr.Pos.IsValid() {
				detail.Line = cErr.Pos.Line()
				detail.Column = cErr.Pos.Column()
			}
		}
		return formatter.Error(ExitFailure, ErrCodeCompile, "catalog is invalid", detail, err)
	}

	result := ValidationResult{Valid: true, Initial: spec.Initial}
	for _, m := range spec.Mutations {
		info := MutationInfo{Name: m.Name, Op: string(m.Op), Path: strings.Join(m.Path, ".")}
		if m.Op == catalog.OpAdd || m.Op == catalog.OpSub {
			info.Default = m.Default
		}
		result.Mutations = append(result.Mutations, info)
	}

	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s is valid\n", path)
		fmt.Fprintf(w, "initial: %s\n", canonical(result.Initial))
		for _, m := range result.Mutations {
			if m.Default != 0 {
				fmt.Fprintf(w, "  %-16s %-6s %s (default %d)\n", m.Name, m.Op, m.Path, m.Default)
				continue
			}
			fmt.Fprintf(w, "  %-16s %-6s %s\n", m.Name, m.Op, m.Path)
		}
	})
}
