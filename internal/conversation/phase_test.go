package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldExtract(t *testing.T) {
	assert.False(t, ShouldExtract(0, 6))
	assert.False(t, ShouldExtract(5, 6))
	assert.True(t, ShouldExtract(6, 6))
	assert.True(t, ShouldExtract(7, 6))

	// A non-positive threshold disables extraction entirely.
	assert.False(t, ShouldExtract(100, 0))
	assert.False(t, ShouldExtract(100, -1))
}

func TestPhaseFor(t *testing.T) {
	assert.Equal(t, PhaseCollecting, PhaseFor(2, 6, false))
	assert.Equal(t, PhaseExtracting, PhaseFor(6, 6, false))
	assert.Equal(t, PhaseReady, PhaseFor(6, 6, true))
	assert.Equal(t, PhaseReady, PhaseFor(2, 6, true))
}
