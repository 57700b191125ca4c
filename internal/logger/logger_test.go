package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetVerbose(false)
	})
	return &buf
}

func TestVerboseToggle(t *testing.T) {
	resetLogger(t)

	assert.False(t, IsVerbose())
	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestDebug(t *testing.T) {
	t.Run("silent when verbose disabled", func(t *testing.T) {
		buf := resetLogger(t)

		Debug("hidden %d", 1)

		assert.Empty(t, buf.String())
	})

	t.Run("prints when verbose enabled", func(t *testing.T) {
		buf := resetLogger(t)
		SetVerbose(true)

		Debug("visible %d", 2)

		assert.Equal(t, "[DEBUG] visible 2\n", buf.String())
	})
}

func TestInfoWarnSection(t *testing.T) {
	buf := resetLogger(t)
	SetVerbose(true)

	Section("Index Load")
	Info("loaded %d vectors", 3)
	Warn("manifest missing")

	out := buf.String()
	assert.Contains(t, out, "=== Index Load ===")
	assert.Contains(t, out, "[INFO] loaded 3 vectors")
	assert.Contains(t, out, "[WARN] manifest missing")
}

func TestError_AlwaysPrints(t *testing.T) {
	buf := resetLogger(t)

	Error("save failed: %s", "disk full")

	assert.Equal(t, "[ERROR] save failed: disk full\n", buf.String())
}
