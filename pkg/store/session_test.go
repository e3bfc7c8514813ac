package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("location")
	require.NoError(t, err)
	assert.Equal(t, ModeLocation, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeNone, m)

	_, err = ParseMode("karaoke")
	assert.Error(t, err)
}

func TestModeSessionLifecycle(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	s := NewModeSession("42", ModeKML, "", start)

	assert.Equal(t, ModeKML, s.CurrentMode)
	assert.Equal(t, ModeNone, s.PreviousMode)
	assert.Equal(t, start, s.EnteredAt)

	later := s.Touched(start.Add(5 * time.Minute))
	assert.Equal(t, start, s.LastActivityAt, "original copy is untouched")
	assert.Equal(t, 5*time.Minute, later.LastActivityAt.Sub(later.EnteredAt))
	assert.Equal(t, time.Minute, later.IdleFor(start.Add(6*time.Minute)))
}

func TestModesIsClosedSet(t *testing.T) {
	modes := Modes()
	assert.Len(t, modes, 7)
	assert.Equal(t, ModeNone, modes[0])
	for _, m := range modes {
		assert.True(t, m.Valid())
	}
	assert.False(t, Mode("OTHER").Valid())
	assert.Equal(t, "NONE", Mode("").String())
}

func TestFeatureKey(t *testing.T) {
	assert.Equal(t, "LOCATION:42", FeatureKey("42", ModeLocation))
	assert.NotEqual(t, FeatureKey("42", ModeKML), FeatureKey("42", ModeLocation))
}
