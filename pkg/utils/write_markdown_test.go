package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMarkdownCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "nested")
	path, err := WriteMarkdown(dir, "report.md", "# Title\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n", string(data))
}
