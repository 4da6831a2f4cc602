package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests. The version suffix leaves room for
// a future algorithm change.
const (
	DomainSnapshot = "tandem/snapshot/v1"
	DomainAction   = "tandem/action/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotDigest computes the content digest of a state snapshot.
// Equal snapshots always produce the same digest.
func SnapshotDigest(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("SnapshotDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// ActionDigest computes the digest of an action at a position in the log.
// The entry id is part of the digest so repeated identical actions differ.
func ActionDigest(a Action, entryID int64) (string, error) {
	obj := Object{
		"action":   a.toObject(),
		"entry_id": Int(entryID),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ActionDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainAction, canonical), nil
}

// MustSnapshotDigest is like SnapshotDigest but panics on error.
// Use only in tests or when the value is known to be valid.
func MustSnapshotDigest(v Value) string {
	d, err := SnapshotDigest(v)
	if err != nil {
		panic(err)
	}
	return d
}
