package logger_test

import (
	"testing"

	"github.com/lomoval/sharedcal/internal/logger"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestPrepareLogger(t *testing.T) {
	defer log.SetLevel(log.WarnLevel)

	require.NoError(t, logger.PrepareLogger(logger.Config{Level: "DEBUG", Format: "json"}))
	require.Equal(t, log.DebugLevel, log.GetLevel())
	require.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	require.NoError(t, logger.PrepareLogger(logger.Config{}))
	require.Equal(t, log.WarnLevel, log.GetLevel())
	require.IsType(t, &log.TextFormatter{}, log.StandardLogger().Formatter)

	require.Error(t, logger.PrepareLogger(logger.Config{Level: "LOUD"}))
	require.Error(t, logger.PrepareLogger(logger.Config{Level: "INFO", Format: "xml"}))
}
