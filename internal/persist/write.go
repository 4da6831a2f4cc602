package persist

import (
	"context"
	"fmt"

	"github.com/roach88/tandem/internal/actionlog"
	"github.com/roach88/tandem/internal/ir"
)

// Save writes a session, replacing any previous save under the same id.
// The session row and all of its entries are written in one transaction.
func (s *Store) Save(ctx context.Context, sessionID string, ls actionlog.LiftedState) error {
	if sessionID == "" {
		return fmt.Errorf("save session: session id must not be empty")
	}
	if err := ls.Validate(); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}

	committed, committedDigest, err := marshalSnapshot(ls.Committed)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}

	skipped := make(map[int64]bool, len(ls.Skipped))
	for _, id := range ls.Skipped {
		skipped[id] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save session %s: begin: %w", sessionID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, committed, committed_digest, current_index, next_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			committed = excluded.committed,
			committed_digest = excluded.committed_digest,
			current_index = excluded.current_index,
			next_id = excluded.next_id,
			saves = sessions.saves + 1
	`, sessionID, committed, committedDigest, ls.CurrentIndex, ls.NextID)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("save session %s: clear entries: %w", sessionID, err)
	}

	for pos, e := range ls.Entries {
		args, err := marshalArgs(e.Action.Args)
		if err != nil {
			return fmt.Errorf("save session %s: entry %d: %w", sessionID, e.ID, err)
		}
		digest, err := ir.ActionDigest(e.Action, e.ID)
		if err != nil {
			return fmt.Errorf("save session %s: entry %d: %w", sessionID, e.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entries (session_id, position, entry_id, kind, args, skipped, digest)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, sessionID, pos, e.ID, e.Action.Kind, args, skipped[e.ID], digest)
		if err != nil {
			return fmt.Errorf("save session %s: entry %d: %w", sessionID, e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save session %s: commit: %w", sessionID, err)
	}
	return nil
}

// Delete removes a session and its entries. Deleting an unknown session is
// not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}
