package digest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// ChunkSize is how many bytes the index reads from its source at a time.
const ChunkSize = 1024

// LineIndex records where every line of a stream starts so lines can be
// revisited by number. A source that cannot seek is spooled to a temporary
// file while it is indexed; Close removes the spool.
//
// A line is a run of bytes ending in '\n', or a non-empty run at the end of
// the stream with no trailing '\n'. An empty stream has no lines.
type LineIndex struct {
	src      io.ReadSeeker
	base     int64
	size     int64
	newlines []int64
	starts   []int64
	spool    *os.File
}

// NewLineIndex consumes r to the end and indexes it.
func NewLineIndex(r io.Reader) (*LineIndex, error) {
	ix := &LineIndex{}

	var spool io.Writer
	if rs, ok := r.(io.ReadSeeker); ok {
		if pos, err := rs.Seek(0, io.SeekCurrent); err == nil {
			ix.src = rs
			ix.base = pos
		}
	}
	if ix.src == nil {
		f, err := os.CreateTemp("", "spamprint-spool-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create spool file: %w", err)
		}
		ix.spool = f
		ix.src = f
		spool = f
	}

	buf := make([]byte, ChunkSize)
	var off int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			for i := 0; ; {
				j := bytes.IndexByte(chunk[i:], '\n')
				if j < 0 {
					break
				}
				ix.newlines = append(ix.newlines, off+int64(i+j))
				i += j + 1
			}
			if spool != nil {
				if _, werr := spool.Write(chunk); werr != nil {
					ix.Close()
					return nil, fmt.Errorf("failed to spool input: %w", werr)
				}
			}
			off += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			ix.Close()
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
	}
	ix.size = off

	if off > 0 {
		ix.starts = make([]int64, 1, len(ix.newlines)+1)
		for _, nl := range ix.newlines {
			if nl+1 < off {
				ix.starts = append(ix.starts, nl+1)
			}
		}
	}
	return ix, nil
}

// Lines returns the number of lines in the stream.
func (ix *LineIndex) Lines() int { return len(ix.starts) }

// Size returns the number of bytes indexed.
func (ix *LineIndex) Size() int64 { return ix.size }

// NewlineOffsets returns the offsets of every '\n', relative to the start of
// the indexed content.
func (ix *LineIndex) NewlineOffsets() []int64 { return ix.newlines }

// LineOffset returns the byte offset at which line i starts.
func (ix *LineIndex) LineOffset(i int) (int64, error) {
	if i < 0 || i >= len(ix.starts) {
		return 0, fmt.Errorf("line %d out of range [0,%d)", i, len(ix.starts))
	}
	return ix.starts[i], nil
}

// ReadFrom positions the index at line i and returns a reader over the rest
// of the content. Any reader returned earlier is invalidated.
func (ix *LineIndex) ReadFrom(i int) (*bufio.Reader, error) {
	off, err := ix.LineOffset(i)
	if err != nil {
		return nil, err
	}
	if _, err := ix.src.Seek(ix.base+off, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to line %d: %w", i, err)
	}
	return bufio.NewReader(io.LimitReader(ix.src, ix.size-off)), nil
}

// Close releases the spool file, if any.
func (ix *LineIndex) Close() error {
	if ix.spool == nil {
		return nil
	}
	name := ix.spool.Name()
	err := ix.spool.Close()
	if rmErr := os.Remove(name); err == nil {
		err = rmErr
	}
	ix.spool = nil
	return err
}

// readLine returns the next line including its '\n', or ok=false at the end
// of the stream.
func readLine(br *bufio.Reader) (line string, ok bool, err error) {
	line, err = br.ReadString('\n')
	if err == io.EOF {
		return line, line != "", nil
	}
	if err != nil {
		return "", false, err
	}
	return line, true, nil
}
