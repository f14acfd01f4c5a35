package digest

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onlyReader hides Seek so the index has to spool.
type onlyReader struct{ io.Reader }

func TestLineIndexSeekable(t *testing.T) {
	ix, err := NewLineIndex(strings.NewReader("one\ntwo\nthree\n"))
	require.NoError(t, err)
	defer ix.Close()

	assert.Equal(t, 3, ix.Lines())
	assert.Equal(t, []int64{3, 7, 13}, ix.NewlineOffsets())
	assert.Nil(t, ix.spool)

	br, err := ix.ReadFrom(1)
	require.NoError(t, err)
	rest, err := io.ReadAll(br)
	require.NoError(t, err)
	assert.Equal(t, "two\nthree\n", string(rest))
}

func TestLineIndexTrailingPartialLine(t *testing.T) {
	ix, err := NewLineIndex(strings.NewReader("one\ntwo"))
	require.NoError(t, err)
	defer ix.Close()

	assert.Equal(t, 2, ix.Lines())
	off, err := ix.LineOffset(1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), off)

	_, err = ix.LineOffset(2)
	assert.Error(t, err)
}

func TestLineIndexEmpty(t *testing.T) {
	ix, err := NewLineIndex(strings.NewReader(""))
	require.NoError(t, err)
	defer ix.Close()

	assert.Equal(t, 0, ix.Lines())
	_, err = ix.ReadFrom(0)
	assert.Error(t, err)
}

func TestLineIndexSpoolsNonSeekable(t *testing.T) {
	// Larger than one chunk so offsets cross chunk boundaries.
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("line of text\n")
	}
	content := b.String()

	ix, err := NewLineIndex(onlyReader{strings.NewReader(content)})
	require.NoError(t, err)
	require.NotNil(t, ix.spool)
	spoolName := ix.spool.Name()

	assert.Equal(t, 300, ix.Lines())
	assert.Equal(t, int64(len(content)), ix.Size())
	assert.Equal(t, int64(13*299+12), ix.NewlineOffsets()[299])

	br, err := ix.ReadFrom(299)
	require.NoError(t, err)
	line, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "line of text\n", line)

	require.NoError(t, ix.Close())
	_, err = os.Stat(spoolName)
	assert.True(t, os.IsNotExist(err))
}

func TestLineIndexRespectsStartPosition(t *testing.T) {
	r := bytes.NewReader([]byte("skip\nkeep one\nkeep two\n"))
	_, err := r.Seek(5, io.SeekStart)
	require.NoError(t, err)

	ix, err := NewLineIndex(r)
	require.NoError(t, err)
	defer ix.Close()

	assert.Equal(t, 2, ix.Lines())
	br, err := ix.ReadFrom(0)
	require.NoError(t, err)
	all, err := io.ReadAll(br)
	require.NoError(t, err)
	assert.Equal(t, "keep one\nkeep two\n", string(all))
}
