package timer

// Addr is a data-space address of an 8-bit peripheral register. On AVR this is
// the I/O address plus 0x20, which is what memory-mapped access expects.
type Addr uint16

// RegisterFile is the hardware the controller drives. The MCU build uses MMIO,
// host code and tests use Sim.
type RegisterFile interface {
	// Load8 reads one register
	Load8(a Addr) uint8

	// Store8 writes one register
	Store8(a Addr, v uint8)
}

// update8 is a read-modify-write that clears the bits in clear, then sets the
// bits in set. Other bits of the register are preserved.
func update8(r RegisterFile, a Addr, clear, set uint8) {
	r.Store8(a, (r.Load8(a)&^clear)|set)
}

// setBit sets or clears a single bit.
func setBit(r RegisterFile, a Addr, bit uint8, on bool) {
	if on {
		update8(r, a, 0, 1<<bit)
	} else {
		update8(r, a, 1<<bit, 0)
	}
}

// store16 writes a 16-bit register pair. The high byte goes first: the chip
// latches it in TEMP and commits both bytes on the low-byte write.
func store16(r RegisterFile, a Addr, v uint16) {
	r.Store8(a+1, uint8(v>>8))
	r.Store8(a, uint8(v))
}

// load16 reads a 16-bit register pair. The low byte goes first: reading it
// latches the high byte into TEMP.
func load16(r RegisterFile, a Addr) uint16 {
	lo := r.Load8(a)
	hi := r.Load8(a + 1)
	return uint16(hi)<<8 | uint16(lo)
}
