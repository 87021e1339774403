package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bragerone/bragerone-go/internal/config"
)

func TestSplitModulesParsesCommaSeparatedList(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, splitModules("1,2,3"))
}

func TestSplitModulesTrimsWhitespaceAndDropsEmpties(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, splitModules(" 1 , ,2,"))
}

func TestSplitModulesEmptyStringYieldsNoModules(t *testing.T) {
	assert.Empty(t, splitModules(""))
}

func TestNewLoggerDefaultsToInfoAndText(t *testing.T) {
	logger := newLogger(config.LogConfig{})
	assert.True(t, logger.Enabled(nil, slog.LevelInfo))
	assert.False(t, logger.Enabled(nil, slog.LevelDebug))
}

func TestNewLoggerHonorsDebugLevel(t *testing.T) {
	logger := newLogger(config.LogConfig{Level: "debug"})
	assert.True(t, logger.Enabled(nil, slog.LevelDebug))
}

func TestNewLoggerHonorsWarnAndErrorLevels(t *testing.T) {
	warn := newLogger(config.LogConfig{Level: "warn"})
	assert.False(t, warn.Enabled(nil, slog.LevelInfo))
	assert.True(t, warn.Enabled(nil, slog.LevelWarn))

	errLvl := newLogger(config.LogConfig{Level: "error"})
	assert.False(t, errLvl.Enabled(nil, slog.LevelWarn))
	assert.True(t, errLvl.Enabled(nil, slog.LevelError))
}

func TestNewLoggerIsCaseInsensitiveForLevelAndFormat(t *testing.T) {
	logger := newLogger(config.LogConfig{Level: "DEBUG", Format: "JSON"})
	assert.True(t, logger.Enabled(nil, slog.LevelDebug))
}
