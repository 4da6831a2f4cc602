package persist

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/roach88/tandem/internal/ir"
)

var (
	// ErrInvalidJSON is returned when a stored column is not valid JSON.
	ErrInvalidJSON = errors.New("stored json is not valid")

	// ErrDigestMismatch is returned when a stored value no longer matches
	// its digest.
	ErrDigestMismatch = errors.New("stored digest does not match content")
)

// marshalSnapshot converts a snapshot to canonical JSON TEXT and its digest.
// A nil snapshot (nothing committed) is stored as SQL NULL.
func marshalSnapshot(v ir.Value) (data, digest *string, err error) {
	if v == nil {
		return nil, nil, nil
	}
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	d, err := ir.SnapshotDigest(v)
	if err != nil {
		return nil, nil, err
	}
	s := string(b)
	return &s, &d, nil
}

// unmarshalSnapshot parses a stored snapshot and checks its digest.
func unmarshalSnapshot(data, digest *string) (ir.Value, error) {
	if data == nil {
		return nil, nil
	}
	v, err := parseStored(*data)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	got, err := ir.SnapshotDigest(v)
	if err != nil {
		return nil, err
	}
	if digest == nil || got != *digest {
		return nil, fmt.Errorf("snapshot: %w", ErrDigestMismatch)
	}
	return v, nil
}

// marshalArgs converts action arguments to canonical JSON TEXT.
func marshalArgs(args ir.Array) (string, error) {
	if args == nil {
		args = ir.Array{}
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses stored arguments.
func unmarshalArgs(data string) (ir.Array, error) {
	v, err := parseStored(data)
	if err != nil {
		return nil, fmt.Errorf("args: %w", err)
	}
	arr, ok := v.(ir.Array)
	if !ok {
		return nil, fmt.Errorf("args: expected array, got %T", v)
	}
	return arr, nil
}

// parseStored validates a column with jsoniter before decoding it into the
// value model.
func parseStored(data string) (ir.Value, error) {
	if !jsoniter.ConfigFastest.Valid([]byte(data)) {
		return nil, ErrInvalidJSON
	}
	return ir.ParseJSON([]byte(data))
}
