package protocol

import (
	"bytes"
	"sync/atomic"
)

// blockScanner walks received bytes block by block. After a framing error it
// drops input up to the next sync byte.
type blockScanner struct {
	synced uint32 // atomic bool
}

func newBlockScanner() blockScanner {
	return blockScanner{synced: 1}
}

func (s *blockScanner) isSynced() bool {
	return atomic.LoadUint32(&s.synced) != 0
}

func (s *blockScanner) setSynced(val bool) {
	if val {
		atomic.StoreUint32(&s.synced, 1)
	} else {
		atomic.StoreUint32(&s.synced, 0)
	}
}

// next returns the first valid block in data and the bytes following it.
// When data holds no complete block ok is false and rest is what must be kept
// for the next call. onResync runs each time sync is regained.
func (s *blockScanner) next(data []byte, onResync func()) (block, rest []byte, ok bool) {
	for len(data) > 0 {
		if !s.isSynced() {
			i := bytes.IndexByte(data, MessageValueSync)
			if i < 0 {
				return nil, nil, false
			}
			data = data[i+1:]
			s.setSynced(true)
			if onResync != nil {
				onResync()
			}
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			break
		}

		n := int(data[MessagePositionLen])
		if n < MessageLengthMin || n > MessageLengthMax ||
			data[MessagePositionSeq]&^MessageSeqMask != MessageDest {
			s.setSynced(false)
			continue
		}
		if len(data) < n {
			break
		}

		crc := uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1])
		if data[n-MessageTrailerSync] != MessageValueSync ||
			crc != CRC16(data[:n-MessageTrailerSize]) {
			s.setSynced(false)
			continue
		}
		return data[:n], data[n:], true
	}
	return nil, data, false
}

// payload strips the header and trailer from a block returned by next
func payload(block []byte) []byte {
	return block[MessageHeaderSize : len(block)-MessageTrailerSize]
}
