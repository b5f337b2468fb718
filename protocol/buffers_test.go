package protocol

import (
	"bytes"
	"testing"
)

func TestSliceInputBuffer(t *testing.T) {
	buf := NewSliceInputBuffer([]byte{1, 2, 3, 4, 5})

	if buf.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", buf.Available())
	}
	buf.Pop(2)
	if buf.Available() != 3 || buf.Data()[0] != 3 {
		t.Errorf("After popping 2, expected [3 4 5], got %v", buf.Data())
	}
	buf.Pop(10)
	if buf.Available() != 0 {
		t.Errorf("Over-pop left %d bytes", buf.Available())
	}
}

func TestScratchOutput(t *testing.T) {
	scratch := NewScratchOutput()
	scratch.Output([]byte{0, 2, 3})
	scratch.Update(0, 9)

	if scratch.CurPosition() != 3 {
		t.Errorf("Expected position 3, got %d", scratch.CurPosition())
	}
	if !bytes.Equal(scratch.DataSince(1), []byte{2, 3}) {
		t.Errorf("DataSince(1) = %v", scratch.DataSince(1))
	}
	if !bytes.Equal(scratch.Result(), []byte{9, 2, 3}) {
		t.Errorf("Result = %v", scratch.Result())
	}

	scratch.Reset()
	if len(scratch.Result()) != 0 {
		t.Error("Reset left data behind")
	}

	// overflow is truncated, not a panic
	scratch.Output(make([]byte, MessageMax+10))
	if scratch.CurPosition() != MessageMax {
		t.Errorf("Expected position clamped to %d, got %d", MessageMax, scratch.CurPosition())
	}
}

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(8)

	if !fifo.IsEmpty() || fifo.Free() != 7 {
		t.Fatalf("New fifo: empty=%v free=%d", fifo.IsEmpty(), fifo.Free())
	}

	if n := fifo.Write([]byte{1, 2, 3, 4, 5}); n != 5 {
		t.Fatalf("Expected 5 written, got %d", n)
	}
	fifo.Pop(3)

	// wraps around the end of the ring
	if n := fifo.Write([]byte{6, 7, 8, 9, 10, 11}); n != 5 {
		t.Errorf("Expected 5 written into 5 free slots, got %d", n)
	}
	if !bytes.Equal(fifo.Data(), []byte{4, 5, 6, 7, 8, 9, 10}) {
		t.Errorf("Wrapped data = %v", fifo.Data())
	}

	out := make([]byte, 4)
	if n := fifo.Read(out); n != 4 || !bytes.Equal(out, []byte{4, 5, 6, 7}) {
		t.Errorf("Read %d bytes: %v", n, out)
	}
	if fifo.Available() != 3 {
		t.Errorf("Expected 3 available, got %d", fifo.Available())
	}

	fifo.Reset()
	if !fifo.IsEmpty() {
		t.Error("Reset fifo not empty")
	}
}
