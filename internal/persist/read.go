package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tandem/internal/actionlog"
	"github.com/roach88/tandem/internal/ir"
)

// SessionInfo summarizes one persisted session.
type SessionInfo struct {
	ID           string `json:"id"`
	Entries      int    `json:"entries"`
	CurrentIndex int    `json:"current_index"`
	Committed    bool   `json:"committed"`
	Saves        int64  `json:"saves"`
}

// Load reads a session. found is false when no session has that id.
// Every value is checked against its digest.
func (s *Store) Load(ctx context.Context, sessionID string) (ls actionlog.LiftedState, found bool, err error) {
	var committed, committedDigest sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT committed, committed_digest, current_index, next_id
		FROM sessions
		WHERE id = ?
	`, sessionID).Scan(&committed, &committedDigest, &ls.CurrentIndex, &ls.NextID)
	if errors.Is(err, sql.ErrNoRows) {
		return actionlog.LiftedState{}, false, nil
	}
	if err != nil {
		return actionlog.LiftedState{}, false, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	ls.Committed, err = unmarshalSnapshot(nullable(committed), nullable(committedDigest))
	if err != nil {
		return actionlog.LiftedState{}, false, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	ls.Entries, ls.Skipped, err = s.readEntries(ctx, sessionID)
	if err != nil {
		return actionlog.LiftedState{}, false, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return ls, true, nil
}

// readEntries returns a session's entries ordered by position.
func (s *Store) readEntries(ctx context.Context, sessionID string) ([]actionlog.Entry, []int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, kind, args, skipped, digest
		FROM entries
		WHERE session_id = ?
		ORDER BY position ASC
	`, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []actionlog.Entry{}
	skipped := []int64{}
	for rows.Next() {
		var (
			id         int64
			kind, args string
			isSkipped  bool
			digest     string
		)
		if err := rows.Scan(&id, &kind, &args, &isSkipped, &digest); err != nil {
			return nil, nil, fmt.Errorf("scan entry: %w", err)
		}

		parsed, err := unmarshalArgs(args)
		if err != nil {
			return nil, nil, fmt.Errorf("entry %d: %w", id, err)
		}
		action := ir.Action{Kind: kind, Args: parsed}

		got, err := ir.ActionDigest(action, id)
		if err != nil {
			return nil, nil, fmt.Errorf("entry %d: %w", id, err)
		}
		if got != digest {
			return nil, nil, fmt.Errorf("entry %d: %w", id, ErrDigestMismatch)
		}

		entries = append(entries, actionlog.Entry{ID: id, Action: action})
		if isSkipped {
			skipped = append(skipped, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, skipped, nil
}

// ListSessions returns every persisted session ordered by id.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, COUNT(e.position), s.current_index, s.committed IS NOT NULL, s.saves
		FROM sessions s
		LEFT JOIN entries e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.Entries, &info.CurrentIndex, &info.Committed, &info.Saves); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
