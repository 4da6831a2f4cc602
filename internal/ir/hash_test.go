package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotDigestDeterminism(t *testing.T) {
	a := Object{"count": Int(5), "name": String("cart")}
	b := Object{"name": String("cart"), "count": Int(5)}

	da, err := SnapshotDigest(a)
	require.NoError(t, err)
	db, err := SnapshotDigest(b)
	require.NoError(t, err)

	assert.Equal(t, da, db, "key order must not affect the digest")
	assert.Len(t, da, 64, "SHA-256 hex is 64 characters")
}

func TestSnapshotDigestChangesWithContent(t *testing.T) {
	d1 := MustSnapshotDigest(Object{"count": Int(5)})
	d2 := MustSnapshotDigest(Object{"count": Int(8)})
	assert.NotEqual(t, d1, d2)
}

func TestActionDigestIncludesEntryID(t *testing.T) {
	a := NewAction("increment", Int(1))

	d1, err := ActionDigest(a, 1)
	require.NoError(t, err)
	d2, err := ActionDigest(a, 2)
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte("same")
	assert.NotEqual(t,
		hashWithDomain(DomainSnapshot, data),
		hashWithDomain(DomainAction, data),
	)
}
