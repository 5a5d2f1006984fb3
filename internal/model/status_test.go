package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelStatus_Terminal(t *testing.T) {
	assert.True(t, StatusArchivedUnreplicable.Terminal())
	assert.True(t, StatusArchivedNicheMismatch.Terminal())

	// Filter exclusions are not terminal: a later run may re-admit the channel.
	assert.False(t, StatusArchivedTooOld.Terminal())
	assert.False(t, StatusArchivedTooLarge.Terminal())
	assert.False(t, StatusCandidate.Terminal())
	assert.False(t, StatusAnalyzedPromising.Terminal())
}

func TestChannelStatus_Preservable(t *testing.T) {
	assert.True(t, StatusAnalyzedPrimeCandidate.Preservable())
	assert.True(t, StatusAnalyzedMonitor.Preservable())

	assert.False(t, StatusAnalyzedPromising.Preservable())
	assert.False(t, StatusAnalyzedLowConsistency.Preservable())
	assert.False(t, StatusCandidate.Preservable())
}

func TestResolveAnalyzed(t *testing.T) {
	tests := []struct {
		name      string
		current   ChannelStatus
		automatic ChannelStatus
		want      ChannelStatus
	}{
		{"candidate takes automatic", StatusCandidate, StatusAnalyzedPromising, StatusAnalyzedPromising},
		{"promising demoted", StatusAnalyzedPromising, StatusAnalyzedLowConsistency, StatusAnalyzedLowConsistency},
		{"prime candidate kept", StatusAnalyzedPrimeCandidate, StatusAnalyzedLowConsistency, StatusAnalyzedPrimeCandidate},
		{"monitor kept", StatusAnalyzedMonitor, StatusAnalyzedPromising, StatusAnalyzedMonitor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAnalyzed(tt.current, tt.automatic))
		})
	}
}

func TestChannelStatus_Valid(t *testing.T) {
	assert.True(t, StatusCandidate.Valid())
	assert.True(t, StatusAnalyzedMonitor.Valid())
	assert.False(t, ChannelStatus("banned").Valid())
	assert.False(t, ChannelStatus("").Valid())
}
