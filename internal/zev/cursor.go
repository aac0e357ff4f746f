package zev

import (
	"fmt"
	"io"
)

// reader addresses a decode buffer by absolute position.
type reader struct {
	buf []byte
}

func (r reader) at(off, n int, what string) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(r.buf) {
		return nil, &FileError{
			Offset: off,
			Reason: fmt.Sprintf("read %d bytes of %s", n, what),
			Err:    io.ErrUnexpectedEOF,
		}
	}
	return r.buf[off : off+n : off+n], nil
}

// table is one flat section of the file: count records of size bytes.
type table struct {
	name   string
	offset int
	size   int
	count  int
}

func (t table) record(r reader, i int) ([]byte, error) {
	if i < 0 || i >= t.count {
		return nil, fileErrorf(t.offset, "%s index %d out of range (count %d)", t.name, i, t.count)
	}
	return r.at(t.offset+i*t.size, t.size, t.name)
}

// span returns n consecutive entries starting at entry start.
func (t table) span(r reader, start, n int) ([]byte, error) {
	if start < 0 || n < 0 || start+n > t.count {
		return nil, fileErrorf(t.offset, "%s range [%d, %d) out of range (count %d)", t.name, start, start+n, t.count)
	}
	return r.at(t.offset+start*t.size, n*t.size, t.name)
}

// writer addresses a pre-sized encode buffer by absolute position and
// tracks how many bytes were emitted so the caller can verify that every
// position was written once.
type writer struct {
	buf     []byte
	written int
}

func (w *writer) at(off, n int) ([]byte, error) {
	b, err := w.slice(off, n)
	if err != nil {
		return nil, err
	}
	w.written += n
	return b, nil
}

// patch returns an already written region for in-place rewriting.
func (w *writer) patch(off, n int) ([]byte, error) {
	return w.slice(off, n)
}

func (w *writer) slice(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(w.buf) {
		return nil, fmt.Errorf("%w: write of %d bytes at %#x past end of %d byte buffer", ErrLogic, n, off, len(w.buf))
	}
	return w.buf[off : off+n : off+n], nil
}

func (t table) recordAt(w *writer, i int) ([]byte, error) {
	return w.at(t.offset+i*t.size, t.size)
}
