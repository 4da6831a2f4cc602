package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyScenario = `
name: history
catalog: counter.cue
session: replayed
steps:
  - dispatch: increment
    args: [5]
  - dispatch: COMMIT
  - trigger: increment
    args: [3]
  - trigger: push
    args: ["x"]
  - dispatch: TOGGLE_ACTION
    args: [3]
`

// recordSession runs historyScenario against a fresh database.
func recordSession(t *testing.T) (dir, db string) {
	t.Helper()
	dir = workspace(t, map[string]string{"history.yaml": historyScenario})
	db = filepath.Join(dir, "sessions.db")
	_, err := execute(t, "run", filepath.Join(dir, "history.yaml"), "--db", db)
	require.NoError(t, err)
	return dir, db
}

func TestReplaySession(t *testing.T) {
	dir, db := recordSession(t)

	out, err := execute(t, "replay", "--db", db, "--session", "replayed", "--catalog", filepath.Join(dir, "counter.cue"))
	require.NoError(t, err)

	assert.Contains(t, out, "session: replayed")
	assert.Contains(t, out, `committed: {"count":5,"items":[]}`)
	assert.Contains(t, out, "  [0] #0 @@INIT")
	assert.Contains(t, out, "  [1] #2 increment [3]")
	assert.Contains(t, out, `> [2] #3 push ["x"] (skipped)`)
	assert.Contains(t, out, `state: {"count":8,"items":[]}`)
	assert.Contains(t, out, "✓ deterministic")
}

func TestReplaySessionJSON(t *testing.T) {
	dir, db := recordSession(t)

	out, err := execute(t, "replay", "--db", db, "--session", "replayed",
		"--catalog", filepath.Join(dir, "counter.cue"), "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Session       string        `json:"session"`
			CurrentIndex  int           `json:"current_index"`
			Entries       []ReplayEntry `json:"entries"`
			Failures      int           `json:"failures"`
			Deterministic bool          `json:"deterministic"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "replayed", resp.Data.Session)
	assert.Equal(t, 2, resp.Data.CurrentIndex)
	require.Len(t, resp.Data.Entries, 3)
	assert.True(t, resp.Data.Entries[2].Skipped)
	assert.Zero(t, resp.Data.Failures)
	assert.True(t, resp.Data.Deterministic)
}

func TestReplayFailingAction(t *testing.T) {
	dir, db := recordSession(t)
	narrow := `
tree: {
	initial: {count: 0, items: []}
	mutation: increment: {op: "add", path: "count"}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "narrow.cue"), []byte(narrow), 0644))

	// Un-skip push so that replay reaches it.
	scenario := `
name: unskip
catalog: counter.cue
session: replayed
steps:
  - dispatch: TOGGLE_ACTION
    args: [3]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unskip.yaml"), []byte(scenario), 0644))
	_, err := execute(t, "run", filepath.Join(dir, "unskip.yaml"), "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "replay", "--db", db, "--session", "replayed", "--catalog", filepath.Join(dir, "narrow.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "error: ")
	assert.Contains(t, out, "no such mutation")
}

func TestReplayUnknownSession(t *testing.T) {
	dir, db := recordSession(t)

	out, err := execute(t, "replay", "--db", db, "--session", "nope", "--catalog", filepath.Join(dir, "counter.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]: session not found: nope")
}

func TestReplayMissingFlags(t *testing.T) {
	t.Setenv("TANDEM_DB", "")
	t.Setenv("TANDEM_SESSION", "")
	dir := workspace(t, nil)
	catalogPath := filepath.Join(dir, "counter.cue")

	_, err := execute(t, "replay", "--db", filepath.Join(dir, "x.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	out, err := execute(t, "replay", "--catalog", catalogPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "--db or TANDEM_DB is required")

	out, err = execute(t, "replay", "--catalog", catalogPath, "--db", filepath.Join(dir, "x.db"))
	require.Error(t, err)
	assert.Contains(t, out, "--session or TANDEM_SESSION is required")
}

func TestSessionsCommand(t *testing.T) {
	_, db := recordSession(t)

	out, err := execute(t, "sessions", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "SESSION")
	assert.Regexp(t, `replayed\s+3\s+2\s+true\s+\d+`, out)

	out, err = execute(t, "sessions", "--db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions.")
}

func TestSessionsCommandJSON(t *testing.T) {
	_, db := recordSession(t)

	out, err := execute(t, "sessions", "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			ID      string `json:"id"`
			Entries int    `json:"entries"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "replayed", resp.Data[0].ID)
	assert.Equal(t, 3, resp.Data[0].Entries)
}
