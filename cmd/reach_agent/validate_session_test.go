package main

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSessionCommand_MissingContext(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "validate-session")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "context")
}

func TestValidateSessionCommand_UnknownContext(t *testing.T) {
	binaryPath := getBinaryPath(t)

	tmpDir := t.TempDir()
	sessionDir := filepath.Join(tmpDir, "sessions")

	cmd := exec.Command(binaryPath, "validate-session",
		"--context", "no-such-context",
		"--session-dir", sessionDir)
	cmd.Env = envWithout("DATABASE_URL")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "failed to load session")
}
