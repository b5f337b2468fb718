//go:build tinygo

package core

import "runtime/interrupt"

// Critical runs fn with interrupts masked, restoring the previous state after
func Critical(fn func()) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	fn()
}
