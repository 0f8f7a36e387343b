package csvfile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"
)

func writeAll(t *testing.T, path string, header []string, rows [][]string) *Writer {
	t.Helper()
	w, err := Create(path, header)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	return w
}

func TestCreateMakesDirectoriesAndQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "clean.csv")
	w := writeAll(t, path, []string{"a", "b"}, [][]string{
		{"1", "x,y"},
		{"", "line\nbreak"},
	})

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\"x,y\"\n,\"line\nbreak\"\n", string(b))
	assert.Equal(t, int64(2), w.Rows())
	assert.Equal(t, path, w.Path())
}

/*
TestDigestMatchesFileBytes: the digest covers exactly the bytes on disk, and
a rerun over the same rows produces the same digest.
*/
func TestDigestMatchesFileBytes(t *testing.T) {
	dir := t.TempDir()
	rows := [][]string{{"TXN1", "ok"}, {"TXN2", "a \"quoted\" cell"}}

	w1 := writeAll(t, filepath.Join(dir, "one.csv"), []string{"id", "v"}, rows)
	w2 := writeAll(t, filepath.Join(dir, "two.csv"), []string{"id", "v"}, rows)

	b, err := os.ReadFile(filepath.Join(dir, "one.csv"))
	require.NoError(t, err)
	assert.Equal(t, xxh3.Hash(b), mustParseHex(t, w1.Digest()))
	assert.Equal(t, w1.Digest(), w2.Digest())

	w3 := writeAll(t, filepath.Join(dir, "three.csv"), []string{"id", "v"}, rows[:1])
	assert.NotEqual(t, w1.Digest(), w3.Digest())
}

func TestHeaderOnlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reject.csv")
	w := writeAll(t, path, []string{"a", "reject_reason"}, nil)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,reject_reason\n", string(b))
	assert.Zero(t, w.Rows())
}

func TestCreateFailsWhenParentIsAFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Create(filepath.Join(blocker, "out.csv"), []string{"a"})
	assert.ErrorContains(t, err, "create output dir")
}

func mustParseHex(t *testing.T, s string) uint64 {
	t.Helper()
	v, err := strconv.ParseUint(s, 16, 64)
	require.NoError(t, err)
	return v
}
