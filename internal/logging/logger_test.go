package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })
	return logs
}

func TestCategoryLoggersAreNamed(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	API("calling %s", "groq")
	GeneratorDebug("category %d done", 3)
	Watch("watching %s", "/tmp/x.js")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "api", entries[0].LoggerName)
	assert.Equal(t, "calling groq", entries[0].Message)
	assert.Equal(t, "generator", entries[1].LoggerName)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, "watch", entries[2].LoggerName)
}

func TestLevelFiltering(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel)

	RegistryDebug("hidden")
	Registry("hidden too")
	Get(CategoryRegistry).Warn("shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestWithCarriesFields(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	Get(CategoryStore).With("run_id", "abc").Info("saved")

	entry := logs.All()[0]
	assert.Equal(t, "abc", entry.ContextMap()["run_id"])
}

func TestNoopBeforeInitialize(t *testing.T) {
	SetLogger(nil)
	// Must not panic.
	Boot("nothing to see")
	Get(CategoryChat).Error("still nothing")
}

func TestInitialize_FileAndCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "testcrafter.log")

	logger, err := Initialize(Options{
		Level:      "debug",
		File:       path,
		Categories: map[string]bool{"chat": false},
	})
	require.NoError(t, err)
	t.Cleanup(func() { SetLogger(nil) })

	assert.False(t, IsCategoryEnabled(CategoryChat))
	assert.True(t, IsCategoryEnabled(CategoryAPI))

	Chat("should be dropped")
	API("should be written")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "should be written"))
	assert.False(t, strings.Contains(content, "should be dropped"))
}

func TestInitialize_BadLevel(t *testing.T) {
	_, err := Initialize(Options{Level: "loud"})
	assert.Error(t, err)
}
