package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectCodes(t *testing.T) {
	file := filepath.Join(t.TempDir(), "codes.txt")
	require.NoError(t, os.WriteFile(file, []byte("winter-001\n\nSUMMER–123\n"), 0o600))

	codes, err := collectCodes(" summer-123 , TEST001,,test001", file)
	require.NoError(t, err)
	assert.Equal(t, []string{"SUMMER-123", "TEST001", "WINTER-001"}, codes)

	_, err = collectCodes("", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
