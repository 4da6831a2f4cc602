package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterCatalog = `
tree: {
	initial: {count: 0, items: []}
	mutation: {
		increment: {op: "add", path: "count"}
		push: {op: "append", path: "items"}
	}
}
`

const passingScenario = `
name: counting
description: "Counts up and commits"
catalog: counter.cue
steps:
  - dispatch: increment
    args: [2]
    expect_state: {count: 2, items: []}
  - trigger: push
    args: ["x"]
  - dispatch: COMMIT
assertions:
  - type: committed
    expect: {count: 2, items: ["x"]}
`

const failingScenario = `
name: miscounting
catalog: counter.cue
steps:
  - dispatch: increment
    expect_state: {count: 5, items: []}
`

// workspace writes the counter catalog and the given files into a temp dir.
func workspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "counter.cue"), []byte(counterCatalog), 0644))
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "tandem", cmd.Use)
	assert.Contains(t, cmd.Long, "action log")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "test", "validate", "replay", "sessions"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"db", "session", "debug-url", "max-history"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), name)
	}
}

func TestReplayCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	replayCmd, _, err := cmd.Find([]string{"replay"})
	require.NoError(t, err)

	for _, name := range []string{"db", "session", "catalog"} {
		assert.NotNil(t, replayCmd.Flags().Lookup(name), name)
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
}

func TestFormatValidationIntegration(t *testing.T) {
	dir := workspace(t, nil)

	_, err := execute(t, "validate", filepath.Join(dir, "counter.cue"), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvalidEnvironment(t *testing.T) {
	t.Setenv("TANDEM_LOG_LEVEL", "loud")
	dir := workspace(t, nil)

	_, err := execute(t, "validate", filepath.Join(dir, "counter.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid environment")
}

func TestOrEnv(t *testing.T) {
	assert.Equal(t, "flag", orEnv("flag", "env"))
	assert.Equal(t, "env", orEnv("", "env"))
	assert.Empty(t, orEnv("", ""))
}
