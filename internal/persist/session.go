package persist

import (
	"regexp"

	"github.com/google/uuid"
)

// debugSessionPattern matches the debug_session query parameter of a debug
// URL. The value runs up to the next parameter or fragment.
var debugSessionPattern = regexp.MustCompile(`[?&]debug_session=([^&#]+)\b`)

// ResolveSession decides which session, if any, is persisted.
//
// An explicit token always wins. Otherwise the debug_session parameter of
// debugURL is used. ok is false when neither supplies an id, which means the
// store runs without persistence.
func ResolveSession(explicit, debugURL string) (id string, ok bool) {
	if explicit != "" {
		return explicit, true
	}
	if m := debugSessionPattern.FindStringSubmatch(debugURL); m != nil {
		return m[1], true
	}
	return "", false
}

// SessionIDGenerator generates ids for new sessions.
// Implemented by UUIDv7Generator and testutil.FixedSessionGenerator.
type SessionIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids, so listing
// sessions by id lists them by creation time.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewSessionID returns a fresh UUIDv7 session id.
func NewSessionID() string {
	return UUIDv7Generator{}.Generate()
}
