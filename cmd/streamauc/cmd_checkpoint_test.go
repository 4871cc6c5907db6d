package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointClear(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeProject(t, dir, 0.7)
	ckptDir := filepath.Join(dir, "ckpt")

	_, _, err := runCLI(t, "eval", "--config", cfgPath, "--resume", "--checkpoint-dir", ckptDir)
	require.NoError(t, err)
	require.DirExists(t, ckptDir)

	stdout, _, err := runCLI(t, "checkpoint", "clear", "--checkpoint-dir", ckptDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Checkpoints cleared")
	assert.NoDirExists(t, ckptDir)
}

func TestCheckpointClear_RefusesForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	_, _, err := runCLI(t, "checkpoint", "clear", "--checkpoint-dir", dir)
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}
