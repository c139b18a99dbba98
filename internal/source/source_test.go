package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetContentFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.md")
	require.NoError(t, os.WriteFile(path, []byte("## a.js\n```\nx\n```\n"), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	sp := New(f)
	sp.readClipboard = func() (string, error) {
		t.Fatal("clipboard must not be read when stdin is redirected")
		return "", nil
	}

	assert.True(t, sp.IsPiped())
	content, err := sp.GetContent()
	require.NoError(t, err)
	assert.Equal(t, "## a.js\n```\nx\n```\n", content)
}

func TestGetContentFromClipboard(t *testing.T) {
	sp := New(nil)
	sp.readClipboard = func() (string, error) { return "from clipboard", nil }

	content, err := sp.GetContent()
	require.NoError(t, err)
	assert.Equal(t, "from clipboard", content)
}

func TestGetContentClipboardError(t *testing.T) {
	sp := New(nil)
	sp.readClipboard = func() (string, error) { return "", errors.New("no xclip") }

	_, err := sp.GetContent()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clipboard")
}
