package bootstrap

import (
	"testing"

	"appointment-agent/internal/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerLevel(t *testing.T) {
	logger, err := newLogger(&config.Config{AppConfig: &config.AppConfig{LogLevel: "warn"}})
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zap.InfoLevel))
	require.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := newLogger(&config.Config{AppConfig: &config.AppConfig{LogLevel: "verbose"}})
	require.Error(t, err)
}
