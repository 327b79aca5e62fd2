package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })
	return logs
}

func TestCategoryLoggersAreNamed(t *testing.T) {
	logs := observe(t)

	for _, cat := range AllCategories {
		Get(cat).Info("hello from %s", cat)
	}

	entries := logs.All()
	require.Len(t, entries, len(AllCategories))
	for i, cat := range AllCategories {
		assert.Equal(t, string(cat), entries[i].LoggerName)
		assert.Equal(t, "hello from "+string(cat), entries[i].Message)
	}
}

func TestConvenienceLevels(t *testing.T) {
	logs := observe(t)

	SessionDebug("debug %d", 1)
	CortexWarn("warn %d", 2)
	CortexError("error %d", 3)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "cortex", entries[2].LoggerName)
}

func TestWithRequestIDAddsField(t *testing.T) {
	logs := observe(t)

	WithRequestID(CategoryCortex, "task-1").Info("started")

	entries := logs.FilterField(zap.String("req", "task-1")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "started", entries[0].Message)
}

func TestDisabledCategoryIsSilent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subcon.log")

	err := Initialize(Options{
		Level:      "debug",
		JSONFormat: true,
		File:       path,
		Categories: map[string]bool{"research": false},
	})
	require.NoError(t, err)
	t.Cleanup(func() { SetLogger(nil) })

	assert.False(t, IsCategoryEnabled(CategoryResearch))
	assert.True(t, IsCategoryEnabled(CategoryStore))

	ResearchWarn("should not appear")
	Store("record written")
	_ = Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "record written")
	assert.False(t, strings.Contains(out, "should not appear"))
}

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	err := Initialize(Options{Level: "verbose"})
	require.Error(t, err)
}

func TestTimerThreshold(t *testing.T) {
	logs := observe(t)

	timer := StartTimer(CategoryStore, "flush")
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.StopWithThreshold(time.Millisecond)

	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	require.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}
