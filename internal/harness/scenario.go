package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run against a bridged store.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario shows.
	Description string `yaml:"description"`

	// Catalog is the CUE file declaring the state tree.
	Catalog string `yaml:"catalog"`

	// Session pins the persistence session id. Empty runs without
	// persistence unless the caller supplies one.
	Session string `yaml:"session,omitempty"`

	// MaxHistory bounds the action log. Zero means unbounded.
	MaxHistory int `yaml:"max_history,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scenario step. Exactly one of Dispatch or Trigger is set.
type Step struct {
	// Dispatch sends an action of this kind through the store.
	Dispatch string `yaml:"dispatch,omitempty"`

	// Trigger runs the named mutation on the tree, as application code would.
	Trigger string `yaml:"trigger,omitempty"`

	Args []any `yaml:"args,omitempty"`

	// ExpectState, when set, must equal the tree snapshot after the step.
	ExpectState any `yaml:"expect_state,omitempty"`

	// ExpectError, when set, must be a substring of the step's error.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion checks the action history or the final state after all steps.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Action is the recorded action kind (history_contains, history_count).
	Action string `yaml:"action,omitempty"`

	// Args must equal the recorded arguments (history_contains).
	Args []any `yaml:"args,omitempty"`

	// Actions is the expected relative order (history_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of records (history_count).
	Count int `yaml:"count,omitempty"`

	// Path is a dotted path into the state (final_state). Empty means the
	// whole snapshot.
	Path string `yaml:"path,omitempty"`

	// Expect is the expected value (final_state, committed).
	Expect any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertHistoryContains = "history_contains"
	AssertHistoryOrder    = "history_order"
	AssertHistoryCount    = "history_count"
	AssertFinalState      = "final_state"
	AssertCommitted       = "committed"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected, and the catalog path is resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "expect-state:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
		return fmt.Errorf("catalog file not found: %s", s.Catalog)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.MaxHistory < 0 {
		return fmt.Errorf("max_history must be non-negative")
	}

	for i, step := range s.Steps {
		switch {
		case step.Dispatch == "" && step.Trigger == "":
			return fmt.Errorf("steps[%d]: dispatch or trigger is required", i)
		case step.Dispatch != "" && step.Trigger != "":
			return fmt.Errorf("steps[%d]: dispatch and trigger are mutually exclusive", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertHistoryContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for history_contains", index)
		}
	case AssertHistoryOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for history_order", index)
		}
	case AssertHistoryCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for history_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for history_count", index)
		}
	case AssertFinalState:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertCommitted:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
