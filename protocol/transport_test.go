package protocol

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"
)

type recordedCommand struct {
	id  uint16
	arg uint32
}

// newRecordingTransport returns a transport whose handler reads one uint
// argument per command
func newRecordingTransport() (*Transport, *ScratchOutput, *[]recordedCommand) {
	var got []recordedCommand
	out := NewScratchOutput()
	tr := NewTransport(out, func(cmdID uint16, data *[]byte) error {
		arg, err := DecodeVLQUint(data)
		if err != nil {
			return err
		}
		got = append(got, recordedCommand{cmdID, arg})
		return nil
	})
	return tr, out, &got
}

func mustBlock(t *testing.T, seq uint8, cmdID uint16, arg uint32) []byte {
	t.Helper()
	b, err := buildBlock(seq, cmdID, func(o OutputBuffer) { EncodeVLQUint(o, arg) })
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func ackBlock(seq uint8) []byte {
	crc := CRC16([]byte{MessageLengthMin, seq})
	return []byte{MessageLengthMin, seq, uint8(crc >> 8), uint8(crc), MessageValueSync}
}

func TestTransportDispatch(t *testing.T) {
	tr, out, got := newRecordingTransport()

	tr.Receive(NewSliceInputBuffer(mustBlock(t, 0x10, 5, 42)))

	if len(*got) != 1 || (*got)[0] != (recordedCommand{5, 42}) {
		t.Fatalf("Expected command 5(42), got %v", *got)
	}
	if !bytes.Equal(out.Result(), ackBlock(0x11)) {
		t.Errorf("Expected ack for 0x11, got %X", out.Result())
	}
	if tr.Sequence() != 0x11 {
		t.Errorf("Expected next sequence 0x11, got 0x%02X", tr.Sequence())
	}
}

func TestTransportPartialBlock(t *testing.T) {
	tr, _, got := newRecordingTransport()
	block := mustBlock(t, 0x10, 3, 1000)

	in := NewFifoBuffer(64)
	in.Write(block[:4])
	tr.Receive(in)
	if len(*got) != 0 || in.Available() != 4 {
		t.Fatalf("Partial block consumed: %d commands, %d bytes left", len(*got), in.Available())
	}

	in.Write(block[4:])
	tr.Receive(in)
	if len(*got) != 1 || (*got)[0].arg != 1000 {
		t.Errorf("Expected command after completion, got %v", *got)
	}
	if !in.IsEmpty() {
		t.Errorf("%d bytes left after a full block", in.Available())
	}
}

func TestTransportCorruptBlock(t *testing.T) {
	tr, _, got := newRecordingTransport()

	bad := mustBlock(t, 0x10, 5, 1)
	bad[2] ^= 0x01
	good := mustBlock(t, 0x10, 5, 2)

	tr.Receive(NewSliceInputBuffer(append(bad, good...)))

	if len(*got) != 1 || (*got)[0].arg != 2 {
		t.Errorf("Expected only the intact block, got %v", *got)
	}
}

func TestTransportOutOfOrder(t *testing.T) {
	tr, out, got := newRecordingTransport()

	tr.Receive(NewSliceInputBuffer(mustBlock(t, 0x12, 5, 1)))

	if len(*got) != 0 {
		t.Errorf("Out-of-order block dispatched: %v", *got)
	}
	if !bytes.Equal(out.Result(), ackBlock(0x10)) {
		t.Errorf("Expected nak for 0x10, got %X", out.Result())
	}
}

func TestTransportSequenceRestart(t *testing.T) {
	tr, _, got := newRecordingTransport()
	resets := 0
	tr.SetResetCallback(func() { resets++ })

	var stream []byte
	stream = append(stream, mustBlock(t, 0x10, 1, 1)...)
	stream = append(stream, mustBlock(t, 0x11, 1, 2)...)
	stream = append(stream, mustBlock(t, 0x10, 1, 3)...)
	tr.Receive(NewSliceInputBuffer(stream))

	if len(*got) != 3 {
		t.Errorf("Expected 3 commands, got %v", *got)
	}
	if resets != 1 {
		t.Errorf("Expected one reset, got %d", resets)
	}
	if tr.Sequence() != 0x11 {
		t.Errorf("Expected 0x11 after restart, got 0x%02X", tr.Sequence())
	}
}

func TestSequenceWrap(t *testing.T) {
	if got := nextSeq(0x1F); got != 0x10 {
		t.Errorf("nextSeq(0x1F) = 0x%02X", got)
	}
}

func TestBuildBlockTooLong(t *testing.T) {
	_, err := buildBlock(0x10, 1, func(o OutputBuffer) { o.Output(make([]byte, MessageLengthMax)) })
	if !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("Expected ErrMessageTooLong, got %v", err)
	}
}

// serveFirmware runs a firmware transport on conn. Command 9 answers with
// response 10 carrying twice its argument.
func serveFirmware(conn net.Conn) {
	out := NewScratchOutput()
	var tr *Transport
	tr = NewTransport(out, func(cmdID uint16, data *[]byte) error {
		arg, err := DecodeVLQUint(data)
		if err != nil {
			return err
		}
		if cmdID == 9 {
			tr.SendCommand(10, func(o OutputBuffer) { EncodeVLQUint(o, arg*2) })
		}
		return nil
	})

	in := NewFifoBuffer(MessageMax)
	buf := make([]byte, 64)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		in.Write(buf[:n])
		tr.Receive(in)
		if len(out.Result()) > 0 {
			if _, err := conn.Write(out.Result()); err != nil {
				return
			}
			out.Reset()
		}
	}
}

func TestHostTransportRoundTrip(t *testing.T) {
	hostEnd, mcuEnd := net.Pipe()
	go serveFirmware(mcuEnd)
	defer mcuEnd.Close()

	host := NewHostTransport(hostEnd)
	defer host.Close()

	var seen []uint16
	host.SetResponseHandler(func(cmdID uint16, data *[]byte) error {
		seen = append(seen, cmdID)
		return nil
	})

	for i := uint32(1); i <= 20; i++ {
		err := host.SendCommand(9, func(o OutputBuffer) { EncodeVLQUint(o, i) })
		if err != nil {
			t.Fatalf("Command %d: %v", i, err)
		}
		msg, err := host.ReceiveResponse(time.Second)
		if err != nil {
			t.Fatalf("Response %d: %v", i, err)
		}
		data := msg.Payload
		id, _ := DecodeVLQUint(&data)
		v, _ := DecodeVLQUint(&data)
		if id != 10 || v != 2*i {
			t.Errorf("Response %d: expected 10(%d), got %d(%d)", i, 2*i, id, v)
		}
	}

	// twenty commands wrap the four-bit sequence
	if host.Sequence() != 0x14 {
		t.Errorf("Unexpected host sequence 0x%02X", host.Sequence())
	}
	if len(seen) != 20 {
		t.Errorf("Response handler saw %d responses", len(seen))
	}
}

func TestHostTransportTimeout(t *testing.T) {
	hostEnd, mcuEnd := net.Pipe()
	defer mcuEnd.Close()

	// drain without answering
	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := mcuEnd.Read(buf); err != nil {
				return
			}
		}
	}()

	host := NewHostTransport(hostEnd)
	err := host.SendCommandWithTimeout(1, nil, 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}

	done := make(chan struct{})
	go func() {
		host.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on the reader")
	}
	if _, err := host.ReceiveResponse(time.Millisecond); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after Close, got %v", err)
	}
}
