package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "alerty "))
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trailing newline", "sk-123\n", "sk-123"},
		{"no newline", "sk-456", "sk-456"},
		{"only first line", "sk-1\nsk-2\n", "sk-1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readLine(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCredential_NonTerminalInput(t *testing.T) {
	t.Run("reader", func(t *testing.T) {
		cmd := &cobra.Command{}
		cmd.SetIn(strings.NewReader("sk-piped\n"))

		got, err := readCredential(cmd)
		require.NoError(t, err)
		assert.Equal(t, "sk-piped", got)
	})

	t.Run("regular file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key")
		require.NoError(t, os.WriteFile(path, []byte("sk-file\n"), 0o600))
		f, err := os.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = f.Close() })

		var stderr bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetIn(f)
		cmd.SetErr(&stderr)

		got, err := readCredential(cmd)
		require.NoError(t, err)
		assert.Equal(t, "sk-file", got)
		assert.Empty(t, stderr.String())
	})
}
