package tinycompress

import (
	"bytes"
	"compress/zlib"
	"errors"
	"io"
	"testing"
)

func roundTrip(t *testing.T, blockSize int, input []byte, writes int) {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriterSize(&buf, blockSize)

	// split the input across several Write calls
	step := len(input)/writes + 1
	for i := 0; i < len(input); i += step {
		end := i + step
		if end > len(input) {
			end = len(input)
		}
		if _, err := w.Write(input[i:end]); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := zlib.NewReader(&buf)
	if err != nil {
		t.Fatalf("zlib header rejected: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("zlib stream rejected: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Errorf("Round trip of %d bytes with %d-byte blocks differs", len(input), blockSize)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	long := bytes.Repeat([]byte(`{"hwtimer_normal timer=%c prescale=%c irq=%c":7},`), 100)

	tests := []struct {
		name      string
		blockSize int
		input     []byte
		writes    int
	}{
		{"empty", DefaultBlockSize, nil, 1},
		{"one byte", DefaultBlockSize, []byte{'x'}, 1},
		{"exact block", 16, bytes.Repeat([]byte{'a'}, 16), 1},
		{"many blocks", 64, long, 7},
		{"default size", DefaultBlockSize, long, 3},
		{"tiny blocks", 1, []byte("identify"), 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			roundTrip(t, tc.blockSize, tc.input, tc.writes)
		})
	}
}

func TestWriterHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write([]byte("abc"))
	w.Close()

	want := []byte{0x78, 0x9C, 0x01, 0x03, 0x00, 0xFC, 0xFF, 'a', 'b', 'c'}
	if !bytes.HasPrefix(buf.Bytes(), want) {
		t.Errorf("Expected prefix %X, got %X", want, buf.Bytes())
	}
	if buf.Len() != len(want)+4 {
		t.Errorf("Expected %d bytes, got %d", len(want)+4, buf.Len())
	}
}

func TestWriteAfterClose(t *testing.T) {
	w := NewWriter(io.Discard)
	w.Close()
	if _, err := w.Write([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Second Close returned %v", err)
	}
}

type failingWriter struct{ after int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, io.ErrShortWrite
	}
	f.after--
	return len(p), nil
}

func TestWriterPropagatesErrors(t *testing.T) {
	w := NewWriterSize(&failingWriter{after: 1}, 4)
	w.Write([]byte("abcd"))
	if _, err := w.Write([]byte("e")); !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("Expected ErrShortWrite from block flush, got %v", err)
	}
	if err := w.Close(); !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("Close after failure returned %v", err)
	}
}
