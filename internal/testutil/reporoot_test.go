package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoRootHasGoMod(t *testing.T) {
	root := MustRepoRoot(t)
	_, err := os.Stat(filepath.Join(root, "go.mod"))
	require.NoError(t, err)

	dirs := SourceDirs(t)
	assert.Equal(t, []string{filepath.Join(root, "internal"), filepath.Join(root, "cmd")}, dirs)
}
