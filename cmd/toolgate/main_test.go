package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "toolgate dev")
	assert.Contains(t, out, "Commit:")
}

func TestSanitizeCommand(t *testing.T) {
	t.Run("json from stdin", func(t *testing.T) {
		out, err := execute(t, `{"user": "octocat", "password": "12345"}`, "sanitize", "-")
		require.NoError(t, err)
		assert.JSONEq(t, `{"user": "octocat", "password": "****"}`, out)
	})

	t.Run("text from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("path: ../secrets/../'nuclear_codes.txt'"), 0o600))

		out, err := execute(t, "", "sanitize", path)
		require.NoError(t, err)
		assert.Equal(t, `path: secrets/\'nuclear_codes.txt\'`, out)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := execute(t, "   ", "sanitize")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "", "sanitize", filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := newServeCmd()
	assert.NotNil(t, cmd.Flags().Lookup("config"))
	assert.NotNil(t, cmd.Flags().Lookup("http"))
}

func TestServerVersion(t *testing.T) {
	assert.Equal(t, "0.1.0", serverVersion("0.1.0"))

	old := version
	version = "1.2.3"
	defer func() { version = old }()
	assert.Equal(t, "1.2.3", serverVersion("0.1.0"))
}
