// Package protocol implements the framed serial protocol between the host and
// the timer firmware: VLQ-encoded command arguments inside length-prefixed,
// CRC16-checked blocks with a 4-bit sequence number.
package protocol

// Version is the protocol implementation version reported by tooling
const Version = "0.1.0"

// Block layout: len, seq, payload..., crc_hi, crc_lo, sync
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64

	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1

	MessageValueSync = 0x7E
	MessageDest      = 0x10
	MessageSeqMask   = 0x0F
)

// MessageMax is the size of an output scratch buffer. It holds several blocks
// queued between two flushes.
const MessageMax = 512

// nextSeq advances a sequence byte within the 0x10-0x1F window
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
