package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Missing(t *testing.T) {
	s := createTestStore(t)

	ls, found, err := s.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, ls.Entries)
}

func TestLoad_DetectsTamperedArgs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "s1", sampleState()))

	_, err := s.db.Exec(`UPDATE entries SET args = '[4]' WHERE entry_id = 3`)
	require.NoError(t, err)

	_, _, err = s.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestLoad_DetectsTamperedKind(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "s1", sampleState()))

	_, err := s.db.Exec(`UPDATE entries SET kind = 'decrement' WHERE entry_id = 3`)
	require.NoError(t, err)

	_, _, err = s.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestLoad_DetectsInvalidJSON(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "s1", sampleState()))

	_, err := s.db.Exec(`UPDATE entries SET args = '[1,' WHERE entry_id = 3`)
	require.NoError(t, err)

	_, _, err = s.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestLoad_DetectsTamperedCommitted(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "s1", sampleState()))

	_, err := s.db.Exec(`UPDATE sessions SET committed = '{"count":6}' WHERE id = 's1'`)
	require.NoError(t, err)

	_, _, err = s.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestLoad_RejectsNonArrayArgs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "s1", sampleState()))

	_, err := s.db.Exec(`UPDATE entries SET args = '{}' WHERE entry_id = 3`)
	require.NoError(t, err)

	_, _, err = s.Load(ctx, "s1")
	assert.Error(t, err)
}

func TestListSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, s.Save(ctx, "b", sampleState()))
	committedless := sampleState()
	committedless.Committed = nil
	require.NoError(t, s.Save(ctx, "a", committedless))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SessionInfo{
		{ID: "a", Entries: 4, CurrentIndex: 2, Committed: false, Saves: 1},
		{ID: "b", Entries: 4, CurrentIndex: 2, Committed: true, Saves: 1},
	}, sessions)
}
