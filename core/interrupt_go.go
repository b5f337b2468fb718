//go:build !tinygo

package core

import "sync"

// Host builds have no interrupts. A mutex keeps Critical sections from
// overlapping when tests drive commands from several goroutines.
var criticalMu sync.Mutex

// Critical runs fn with interrupts masked
func Critical(fn func()) {
	criticalMu.Lock()
	defer criticalMu.Unlock()
	fn()
}
