package fileurl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePathAndIsExist(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a", "b", "db.sqlite3")

	assert.False(t, IsExist(target))
	require.NoError(t, CreatePath(target, os.ModePerm))
	assert.True(t, IsExist(filepath.Dir(target)))
	assert.False(t, IsExist(target))
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	logs := filepath.Join(root, "logs")
	data := filepath.Join(root, "data")

	require.NoError(t, EnsureDirs(0o755, "", logs, ".", data))
	assert.True(t, IsExist(logs))
	assert.True(t, IsExist(data))
}
