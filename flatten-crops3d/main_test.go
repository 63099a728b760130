package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crops3d/pkg/flatten"
	"crops3d/pkg/testsupport"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestFlattenCommand(t *testing.T) {
	base := t.TempDir()
	t.Chdir(base)
	testsupport.WriteTree(t, filepath.Join(base, "Crops3D", "Crops3D"), map[string][]string{
		"Cabbage": {"a.ply", "b.ply"},
		"Maize":   {"c.ply"},
	})

	out, err := runCLI(t, "--target", "flat")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cabbage-a.ply", "Cabbage-b.ply", "Maize-c.ply"}, testsupport.ListDir(t, filepath.Join(base, "flat")))
	assert.Contains(t, out, "Files copied: 3")
	assert.Contains(t, out, "Maize")
	assert.Contains(t, out, "MISMATCH", "default expected table does not match a three-file tree")
	assert.Contains(t, out, "Run: crops3d-dataset")
}

func TestFlattenCommandMissingSource(t *testing.T) {
	base := t.TempDir()
	t.Chdir(base)

	out, err := runCLI(t, "--source", "nowhere")
	assert.True(t, errors.Is(err, flatten.ErrSourceNotFound), "got %v", err)
	assert.Contains(t, out, "Error: Source directory 'nowhere' not found!")
	assert.Contains(t, out, "Expected directory structure:")
	assert.NotContains(t, out, "Next steps")
}

func TestFlattenCommandNoCategories(t *testing.T) {
	base := t.TempDir()
	t.Chdir(base)
	testsupport.WriteFile(t, filepath.Join(base, "src", "loose.ply"), "x")

	out, err := runCLI(t, "--source", "src", "--target", "out")
	assert.True(t, errors.Is(err, flatten.ErrNoCategories), "got %v", err)
	assert.Contains(t, out, "No subdirectories found in src")
}

func TestFlattenCommandUsesConfig(t *testing.T) {
	base := t.TempDir()
	t.Chdir(base)
	testsupport.WriteTree(t, filepath.Join(base, "data"), map[string][]string{"Rice": {"1.ply"}})
	testsupport.WriteFile(t, filepath.Join(base, "custom.toml"), `
[flatten]
source = "data"
target = "flat"

[flatten.expected]
Rice = 1
`)

	out, err := runCLI(t, "--config", "custom.toml")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rice-1.ply"}, testsupport.ListDir(t, filepath.Join(base, "flat")))
	assert.Contains(t, out, "All crop counts match expected values!")
}
