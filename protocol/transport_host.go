package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrTimeout         = errors.New("timeout")
	ErrClosed          = errors.New("transport closed")
	ErrNak             = errors.New("block not acknowledged")
	ErrMessageTooLong  = errors.New("message too long")
	ErrIncompleteWrite = errors.New("incomplete write")
)

// DefaultAckTimeout bounds SendCommand
const DefaultAckTimeout = 2 * time.Second

// ResponseHandler receives responses as they arrive, before they are queued
type ResponseHandler func(cmdID uint16, data *[]byte) error

// Message is one received block
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte
	CRC      uint16
}

// HostTransport is the host end of the link. A background reader splits the
// port's byte stream into acks and responses; SendCommand blocks until the
// firmware acknowledges.
type HostTransport struct {
	port io.ReadWriteCloser
	scan blockScanner

	currentSeq uint32 // atomic; 0x10-0x1F

	input *FifoBuffer

	ackChan      chan *Message
	responseChan chan *Message

	handlerMu       sync.Mutex
	responseHandler ResponseHandler

	writeMutex sync.Mutex
	readMutex  sync.Mutex

	closeOnce sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewHostTransport creates a new host-side transport and starts its reader
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		scan:         newBlockScanner(),
		currentSeq:   MessageDest,
		input:        NewFifoBuffer(MessageMax),
		ackChan:      make(chan *Message, 1),
		responseChan: make(chan *Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// SendCommand sends one command and waits for its ack
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, DefaultAckTimeout)
}

func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	seq := t.Sequence()
	msg, err := buildBlock(seq, cmdID, args)
	if err != nil {
		return fmt.Errorf("build command %d: %w", cmdID, err)
	}

	n, err := t.port.Write(msg)
	if err != nil {
		return fmt.Errorf("write command %d: %w", cmdID, err)
	}
	if n != len(msg) {
		return fmt.Errorf("write command %d: %w: %d/%d bytes", cmdID, ErrIncompleteWrite, n, len(msg))
	}

	return t.waitForAck(seq, timeout)
}

// buildBlock frames a single command
func buildBlock(seq uint8, cmdID uint16, args func(output OutputBuffer)) ([]byte, error) {
	scratch := NewScratchOutput()
	scratch.Output([]byte{0, seq})
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}

	n := scratch.CurPosition() + MessageTrailerSize
	if n > MessageLengthMax {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLong, n, MessageLengthMax)
	}
	scratch.Update(MessagePositionLen, uint8(n))
	appendTrailer(scratch, CRC16(scratch.Result()))

	out := make([]byte, n)
	copy(out, scratch.Result())
	return out, nil
}

// waitForAck expects the firmware to acknowledge seq by asking for the
// following sequence number
func (t *HostTransport) waitForAck(seq uint8, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	want := nextSeq(seq)
	for {
		select {
		case ack := <-t.ackChan:
			switch ack.Sequence {
			case want:
				atomic.StoreUint32(&t.currentSeq, uint32(want))
				return nil
			case seq:
				return fmt.Errorf("sequence 0x%02x: %w", seq, ErrNak)
			}
			// stale ack from an earlier resync; keep waiting
		case <-timer.C:
			return fmt.Errorf("ack for sequence 0x%02x: %w after %v", seq, ErrTimeout, timeout)
		case <-t.stopChan:
			return ErrClosed
		}
	}
}

// ReceiveResponse returns the oldest queued response
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-t.responseChan:
		return resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("response: %w after %v", ErrTimeout, timeout)
	case <-t.stopChan:
		return nil, ErrClosed
	}
}

func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handlerMu.Lock()
	t.responseHandler = handler
	t.handlerMu.Unlock()
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buf := make([]byte, 256)
	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if n > 0 {
			t.feed(buf[:n])
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// feed queues raw bytes and dispatches every complete block
func (t *HostTransport) feed(data []byte) {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()

	for len(data) > 0 {
		n := t.input.Write(data)
		data = data[n:]

		pending := t.input.Data()
		for {
			block, rest, ok := t.scan.next(pending, nil)
			pending = rest
			if !ok {
				break
			}
			t.dispatchMessage(newMessage(block))
		}
		t.input.Pop(t.input.Available() - len(pending))

		// the ring is full of garbage that never framed
		if n == 0 && t.input.Free() == 0 {
			t.input.Reset()
		}
	}
}

func newMessage(block []byte) *Message {
	p := payload(block)
	msg := &Message{
		Length:   block[MessagePositionLen],
		Sequence: block[MessagePositionSeq],
		Payload:  make([]byte, len(p)),
		CRC:      uint16(block[len(block)-MessageTrailerCRC])<<8 | uint16(block[len(block)-MessageTrailerCRC+1]),
	}
	copy(msg.Payload, p)
	return msg
}

// dispatchMessage routes empty blocks to the ack channel and everything else
// to the response queue, dropping the oldest response when it is full
func (t *HostTransport) dispatchMessage(msg *Message) {
	if len(msg.Payload) == 0 {
		select {
		case t.ackChan <- msg:
		default:
			// replace an ack nobody consumed
			select {
			case <-t.ackChan:
			default:
			}
			t.ackChan <- msg
		}
		return
	}

	t.handlerMu.Lock()
	handler := t.responseHandler
	t.handlerMu.Unlock()
	if handler != nil {
		data := append([]byte(nil), msg.Payload...)
		if cmdID, err := DecodeVLQUint(&data); err == nil {
			_ = handler(uint16(cmdID), &data)
		}
	}

	select {
	case t.responseChan <- msg:
	default:
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

// Close stops the reader and closes the port. The port is closed before
// waiting so that a reader blocked in Read is released.
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}

// Reset drops queued input and restarts the sequence at 0x10
func (t *HostTransport) Reset() {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()

	t.scan.setSynced(true)
	atomic.StoreUint32(&t.currentSeq, MessageDest)
	for len(t.ackChan) > 0 {
		<-t.ackChan
	}
	for len(t.responseChan) > 0 {
		<-t.responseChan
	}
	t.input.Reset()
}

// Sequence returns the sequence number the next command will carry
func (t *HostTransport) Sequence() uint8 {
	return uint8(atomic.LoadUint32(&t.currentSeq))
}

// DiscardResponses drops every queued response
func (t *HostTransport) DiscardResponses() {
	for {
		select {
		case <-t.responseChan:
		default:
			return
		}
	}
}

// TryReceiveResponse returns a queued response without waiting
func (t *HostTransport) TryReceiveResponse() (*Message, bool) {
	select {
	case resp := <-t.responseChan:
		return resp, true
	default:
		return nil, false
	}
}
