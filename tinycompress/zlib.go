// Package tinycompress writes zlib streams made of stored (uncompressed)
// deflate blocks. It needs no window or tables, so it fits the AVR build,
// and any zlib reader accepts its output.
package tinycompress

import (
	"errors"
	"hash"
	"hash/adler32"
	"io"
)

// DefaultBlockSize bounds the RAM held by a Writer
const DefaultBlockSize = 256

const maxStoredBlock = 0xFFFF

var ErrClosed = errors.New("tinycompress: write after close")

// zlib CMF/FLG: deflate, 32K window, default level
var zlibHeader = []byte{0x78, 0x9C}

// Writer is an io.WriteCloser producing a zlib stream. Input is buffered
// until a block fills; Close writes the final block and the checksum.
type Writer struct {
	out         io.Writer
	buf         []byte
	adler       hash.Hash32
	wroteHeader bool
	closed      bool
	err         error
}

func NewWriter(w io.Writer) *Writer {
	return NewWriterSize(w, DefaultBlockSize)
}

// NewWriterSize uses blocks of up to size bytes
func NewWriterSize(w io.Writer, size int) *Writer {
	if size < 1 {
		size = 1
	}
	if size > maxStoredBlock {
		size = maxStoredBlock
	}
	return &Writer{
		out:   w,
		buf:   make([]byte, 0, size),
		adler: adler32.New(),
	}
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if w.err != nil {
		return 0, w.err
	}

	n := 0
	for n < len(p) {
		if len(w.buf) == cap(w.buf) {
			if err := w.writeBlock(false); err != nil {
				return n, err
			}
		}
		k := copy(w.buf[len(w.buf):cap(w.buf)], p[n:])
		w.adler.Write(p[n : n+k])
		w.buf = w.buf[:len(w.buf)+k]
		n += k
	}
	return n, nil
}

// writeBlock emits the buffered input as one stored block. A stored block
// header is byte aligned when it starts on a byte boundary, which every block
// here does.
func (w *Writer) writeBlock(final bool) error {
	if !w.wroteHeader {
		if _, err := w.out.Write(zlibHeader); err != nil {
			w.err = err
			return err
		}
		w.wroteHeader = true
	}

	n := uint16(len(w.buf))
	hdr := [5]byte{0, byte(n), byte(n >> 8), byte(^n), byte(^n >> 8)}
	if final {
		hdr[0] = 1
	}
	if _, err := w.out.Write(hdr[:]); err != nil {
		w.err = err
		return err
	}
	if _, err := w.out.Write(w.buf); err != nil {
		w.err = err
		return err
	}
	w.buf = w.buf[:0]
	return nil
}

// Close flushes the final block and the Adler-32 trailer. It does not close
// the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	if w.err != nil {
		return w.err
	}
	if err := w.writeBlock(true); err != nil {
		return err
	}

	sum := w.adler.Sum32()
	_, err := w.out.Write([]byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)})
	w.err = err
	return err
}
