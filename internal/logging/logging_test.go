package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/launix-de/rkv/internal/config"
)

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "not-a-level"})
	assert.Error(t, err)
}

func TestNewBuildsProductionEncoderByDefault(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "info"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewBuildsConsoleEncoderInDevelopment(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestInstallReplacesGlobalLogger(t *testing.T) {
	cleanup, err := Install(config.LoggingConfig{Level: "warn"})
	require.NoError(t, err)
	defer cleanup()
	assert.True(t, zap.L().Core().Enabled(zap.WarnLevel))
}
