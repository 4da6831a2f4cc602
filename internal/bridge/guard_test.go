package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard_ZeroValueIsPassthrough(t *testing.T) {
	var g Guard
	assert.Equal(t, Passthrough, g.State())
	assert.False(t, g.Consume())
}

func TestGuard_ConsumeClearsExactlyOnce(t *testing.T) {
	var g Guard
	g.Arm()
	assert.Equal(t, Suppressed, g.State())

	assert.True(t, g.Consume())
	assert.False(t, g.Consume(), "second notification must pass through")
	assert.Equal(t, Passthrough, g.State())
}

func TestGuard_Disarm(t *testing.T) {
	var g Guard
	g.Arm()
	g.Disarm()
	assert.False(t, g.Consume())
}

func TestGuardState_String(t *testing.T) {
	assert.Equal(t, "passthrough", Passthrough.String())
	assert.Equal(t, "suppressed", Suppressed.String())
	assert.Equal(t, "unknown", GuardState(7).String())
}
