package services

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSettings(t *testing.T) {
	t.Cleanup(func() {
		viper.Reset()
		Settings = DefaultSettings()
	})

	require.NoError(t, ReadSettings())
	assert.Equal(t, DefaultSettings(), Settings)

	viper.Set("engine", map[string]any{
		"selection_size": 3,
		"force_after":    "30m",
		"guard_timeout":  "15s",
	})
	require.NoError(t, ReadSettings())
	assert.Equal(t, 3, Settings.SelectionSize)
	assert.Equal(t, 30*time.Minute, Settings.ForceAfter)
	assert.Equal(t, 15*time.Second, Settings.GuardTimeout)
	assert.Equal(t, "@every 60s", Settings.ExpiredPollsSpec)

	viper.Set("engine", map[string]any{"selection_size": 20})
	assert.Error(t, ReadSettings())
	assert.Equal(t, 3, Settings.SelectionSize, "invalid settings must not replace the current ones")
}
