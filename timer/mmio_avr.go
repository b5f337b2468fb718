//go:build tinygo && avr

package timer

import (
	"runtime/volatile"
	"unsafe"
)

// MMIO accesses the real peripheral registers through volatile loads and
// stores at their data-space address.
type MMIO struct{}

// Load8 reads the register at a
func (MMIO) Load8(a Addr) uint8 {
	return (*volatile.Register8)(unsafe.Pointer(uintptr(a))).Get()
}

// Store8 writes v to the register at a
func (MMIO) Store8(a Addr, v uint8) {
	(*volatile.Register8)(unsafe.Pointer(uintptr(a))).Set(v)
}
