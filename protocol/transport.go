package protocol

import "sync/atomic"

// CommandHandler decodes and runs one command. It consumes the command's
// arguments from data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the firmware end of the link. It validates incoming blocks,
// dispatches their commands in sequence order and acknowledges every block.
type Transport struct {
	scan blockScanner

	// next sequence expected from the host; also stamped on outgoing blocks
	nextSequence uint32

	output        OutputBuffer
	handler       CommandHandler
	resetCallback func()
	flushCallback func()
}

// NewTransport creates a new Transport writing replies to output
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		scan:         newBlockScanner(),
		nextSequence: MessageDest,
		output:       output,
		handler:      handler,
	}
}

// Receive consumes whole blocks from input. A trailing partial block is left
// in input for the next call.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()
	for {
		block, rest, ok := t.scan.next(data, t.encodeAckNak)
		data = rest
		if !ok {
			break
		}
		t.handleBlock(block)
	}
	if consumed := input.Available() - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) handleBlock(block []byte) {
	seq := block[MessagePositionSeq]
	expected := t.Sequence()

	// the host restarted its sequence
	if seq == MessageDest && expected != MessageDest {
		expected = MessageDest
		atomic.StoreUint32(&t.nextSequence, MessageDest)
		if t.resetCallback != nil {
			t.resetCallback()
		}
	}

	// out-of-order blocks are dropped; the ack below then doubles as a nak
	if seq == expected {
		atomic.StoreUint32(&t.nextSequence, uint32(nextSeq(seq)))
		_ = t.parseFrame(payload(block))
	}
	t.encodeAckNak()
}

// parseFrame runs every command in a block. A panicking handler desyncs the
// link instead of taking the firmware down.
func (t *Transport) parseFrame(frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.scan.setSynced(false)
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.scan.setSynced(false)
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &frame); err != nil {
			return err
		}
	}
	return nil
}

// encodeAckNak sends an empty block carrying the next expected sequence
func (t *Transport) encodeAckNak() {
	block := []byte{MessageLengthMin, t.Sequence()}
	t.output.Output(block)
	appendTrailer(t.output, CRC16(block))
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame writes one block whose payload is produced by frameData
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	start := t.output.CurPosition()
	t.output.Output([]byte{0, t.Sequence()})
	frameData(t.output)

	n := len(t.output.DataSince(start))
	t.output.Update(start, uint8(n+MessageTrailerSize))
	appendTrailer(t.output, CRC16(t.output.DataSince(start)))
}

// SendCommand writes a block holding one command or response
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Sequence returns the next sequence number expected from the host
func (t *Transport) Sequence() uint8 {
	return uint8(atomic.LoadUint32(&t.nextSequence))
}

// Reset returns the link to its power-on state
func (t *Transport) Reset() {
	t.scan.setSynced(true)
	atomic.StoreUint32(&t.nextSequence, MessageDest)
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback sets the function run when the host restarts its sequence
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets the function that pushes an ack out right away
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}
