package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := Setup("warn", "", &buf)
	require.NoError(t, err)
	defer cleanup()

	logger.Info("hidden")
	logger.Warn("shown", "file", "steps.mht")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "file=steps.mht")
}

func TestSetup_LogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer

	logger, cleanup, err := Setup("debug", dir, &buf)
	require.NoError(t, err)
	logger.Debug("converted archive")
	require.NoError(t, cleanup())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "mht-to-html-"))

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "converted archive")
	assert.Contains(t, buf.String(), "converted archive")
}
