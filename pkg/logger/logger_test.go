package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWritesOneFilePerConcern(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	loggers, err := New(dir)
	require.NoError(t, err)

	loggers.Audit.Info("task created", zap.String("task_id", "t1"))
	loggers.Error.Error("flush failed")
	loggers.Sync()

	for _, name := range []string{"errors", "audit", "request", "security", "system"} {
		_, err := os.Stat(filepath.Join(dir, name+".log"))
		assert.NoError(t, err, name)
	}

	audit, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(audit), `"task_id":"t1"`)
	assert.Contains(t, string(audit), `"timestamp"`)
}

func TestNewFileLevels(t *testing.T) {
	dir := t.TempDir()

	loggers, err := New(dir)
	require.NoError(t, err)

	loggers.Security.Info("below warn")
	loggers.Security.Warn("invalid credentials")
	loggers.Sync()

	security, err := os.ReadFile(filepath.Join(dir, "security.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(security), "below warn")
	assert.Contains(t, string(security), "invalid credentials")
}

func TestSingleSharesLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	loggers := Single(zap.New(core))

	loggers.Audit.Info("a")
	loggers.Security.Warn("b")
	loggers.System.Info("c")

	assert.Equal(t, 3, logs.Len())
}

func TestNopDiscards(t *testing.T) {
	loggers := Nop()
	assert.NotPanics(t, func() {
		loggers.Error.Error("ignored")
		loggers.Sync()
	})
}
