package fileop

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/docuflow/pkg/models"
)

func run(t *testing.T, operation, path string, input map[string]any) map[string]any {
	t.Helper()

	node, err := New("fileop", map[string]any{"operation": operation, "file_path": path})
	require.NoError(t, err)

	ec := models.NewExecutionContext("exec-1", "tpl-1", nil, nil)

	output, err := node.Execute(context.Background(), input, ec)
	require.NoError(t, err)

	return output
}

func TestNew_RejectsUnknownOperation(t *testing.T) {
	_, err := New("fileop", map[string]any{"operation": "shred", "file_path": "/tmp/x"})
	assert.ErrorContains(t, err, "unsupported operation")
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New("fileop", map[string]any{"operation": "read"})
	assert.ErrorContains(t, err, "file_path")
}

func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.txt")

	output := run(t, "write", path, map[string]any{"content": "hello"})
	assert.Equal(t, true, output["success"])

	output = run(t, "read", path, nil)
	assert.Equal(t, true, output["success"])
	assert.Equal(t, "hello", output["content"])
}

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")

	run(t, "write", path, map[string]any{"content": "first"})

	output := run(t, "append", path, map[string]any{"content": "-second"})
	assert.Equal(t, true, output["success"])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first-second", string(raw))
}

func TestCopyAndMove(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.txt")
	copied := filepath.Join(dir, "copied.txt")
	moved := filepath.Join(dir, "moved.txt")

	run(t, "write", source, map[string]any{"content": "data"})

	output := run(t, "copy", source, map[string]any{"target_path": copied})
	assert.Equal(t, true, output["success"])
	assert.FileExists(t, source)
	assert.FileExists(t, copied)

	output = run(t, "move", source, map[string]any{"target_path": moved})
	assert.Equal(t, true, output["success"])
	assert.NoFileExists(t, source)
	assert.FileExists(t, moved)
}

func TestCopyWithoutTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.txt")
	run(t, "write", path, map[string]any{"content": "data"})

	output := run(t, "copy", path, nil)
	assert.Equal(t, false, output["success"])
	assert.Contains(t, output["error"], "target_path")
}

func TestDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "victim.txt")
	run(t, "write", path, map[string]any{"content": "data"})

	output := run(t, "delete", path, nil)
	assert.Equal(t, true, output["success"])
	assert.NoFileExists(t, path)
}

func TestReadMissingFileReportsFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")

	output := run(t, "read", path, nil)
	assert.Equal(t, false, output["success"])
	assert.NotEmpty(t, output["error"])
}
