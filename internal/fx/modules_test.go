package fx

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtcwstats/internal/config"
)

func TestApplyLogLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	require.NoError(t, ApplyLogLevel(&config.Config{LogLevel: "warn"}, zerolog.Nop()))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	require.NoError(t, ApplyLogLevel(&config.Config{LogLevel: "debug"}, zerolog.Nop()))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestApplyLogLevelRejectsUnknown(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	err := ApplyLogLevel(&config.Config{LogLevel: "loud"}, zerolog.Nop())
	require.Error(t, err)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
