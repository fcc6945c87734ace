package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "artifact.json")

	require.NoError(t, WriteFileAtomic(path, []byte("hello"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// No temp files may survive a successful write.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, entry := range entries {
		require.False(t, strings.HasPrefix(entry.Name(), ".write-"))
	}
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.json")

	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0600))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "two", string(data))
}

func TestSweepOlderThan(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.json")
	newPath := filepath.Join(dir, "new.json")
	require.NoError(t, os.WriteFile(oldPath, []byte("old"), 0600))
	require.NoError(t, os.WriteFile(newPath, []byte("new"), 0600))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	removed, err := SweepOlderThan(dir, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, []string{oldPath}, removed)

	require.NoFileExists(t, oldPath)
	require.FileExists(t, newPath)
}

func TestSweepOlderThanMissingDir(t *testing.T) {
	removed, err := SweepOlderThan(filepath.Join(t.TempDir(), "nope"), time.Now())
	require.NoError(t, err)
	require.Empty(t, removed)
}

func TestProtectorRoundTrip(t *testing.T) {
	root := t.TempDir()
	protector, err := NewProtector(root)
	require.NoError(t, err)

	plain := []byte(`{"algorithm":"ES256"}`)
	sealed, err := protector.Seal(plain)
	require.NoError(t, err)
	require.True(t, Sealed(sealed))
	require.False(t, Sealed(plain))

	opened, err := protector.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, plain, opened)
}

func TestProtectorOpenUnsealed(t *testing.T) {
	protector, err := NewProtector(t.TempDir())
	require.NoError(t, err)

	_, err = protector.Open([]byte("not sealed at all"))
	require.Error(t, err)
}

func TestProtectorKeyPersists(t *testing.T) {
	root := t.TempDir()

	first, err := NewProtector(root)
	require.NoError(t, err)
	sealed, err := first.Seal([]byte("secret"))
	require.NoError(t, err)

	// A second protector over the same root must load the same key.
	second, err := NewProtector(root)
	require.NoError(t, err)
	opened, err := second.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), opened)
}

func TestProtectorTamperedArtifact(t *testing.T) {
	protector, err := NewProtector(t.TempDir())
	require.NoError(t, err)

	sealed, err := protector.Seal([]byte("secret"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = protector.Open(sealed)
	require.Error(t, err)
}
