package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger_ReturnsUsableLoggerBeforeInit(t *testing.T) {
	l := GetLogger()
	require.NotNil(t, l)
	assert.NotPanics(t, func() { l.Info("pre-init log line") })
}

func TestReconfigure_AppliesLevelAndFormat(t *testing.T) {
	Reconfigure(&LoggerConfig{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, base.Level)
	assert.True(t, GetLogger().IsDebugEnabled())

	Reconfigure(&LoggerConfig{Level: "warn", Format: "text"})
	assert.Equal(t, logrus.WarnLevel, base.Level)
	assert.False(t, GetLogger().IsDebugEnabled())
}

func TestReconfigure_InvalidLevelDefaultsToInfo(t *testing.T) {
	Reconfigure(&LoggerConfig{Level: "not-a-level", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, base.Level)
}

func TestReconfigure_FileOutputRotatesThroughLumberjack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zeppelin.log")

	Reconfigure(&LoggerConfig{Level: "info", Format: "text", Filename: path})
	GetLogger().Info("written to file")

	_, err := os.Stat(path)
	assert.NoError(t, err)

	Reconfigure(&LoggerConfig{Level: "info", Format: "text"})
}

func TestWithField_ReturnsIndependentEntry(t *testing.T) {
	Reconfigure(&LoggerConfig{Level: "info", Format: "text"})
	child := GetLogger().WithField("pipeline", "p1")
	require.NotNil(t, child)
	assert.NotPanics(t, func() { child.Error("boom") })
}
