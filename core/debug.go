package core

import "avrtimer/timer"

// DebugWriter writes one line of debug output
type DebugWriter func(string)

// TimerEvent is one timer command as the controller saw it
type TimerEvent struct {
	Op     timer.Op
	Timer  timer.ID
	Status timer.Status
	Arg    uint16 // prescale, threshold or flag, depending on Op
}

// EventRingSize is how many timer events are kept for post-mortem dumps
const EventRingSize = 16

var (
	debugPrintln DebugWriter = func(string) {}
	debugEnabled bool

	eventRing  [EventRingSize]TimerEvent
	eventHead  uint8
	eventCount uint8
)

// SetDebugWriter redirects debug output. nil discards it.
func SetDebugWriter(writer DebugWriter) {
	if writer == nil {
		writer = func(string) {}
	}
	debugPrintln = writer
}

// SetDebugEnabled gates DebugPrintln
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

func IsDebugEnabled() bool {
	return debugEnabled
}

func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent stores a timer event in the ring, overwriting the oldest
func RecordEvent(op timer.Op, id timer.ID, s timer.Status, arg uint16) {
	eventRing[eventHead] = TimerEvent{Op: op, Timer: id, Status: s, Arg: arg}
	eventHead = (eventHead + 1) % EventRingSize
	if eventCount < EventRingSize {
		eventCount++
	}
}

// Events returns the recorded events, oldest first
func Events() []TimerEvent {
	out := make([]TimerEvent, 0, eventCount)
	start := (eventHead + EventRingSize - eventCount) % EventRingSize
	for i := uint8(0); i < eventCount; i++ {
		out = append(out, eventRing[(start+i)%EventRingSize])
	}
	return out
}

// DumpEvents writes the ring through the debug writer regardless of
// SetDebugEnabled. It is meant for shutdown paths.
func DumpEvents() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[EVENTS] " + itoa(int(eventCount)) + " recorded")
	for _, ev := range Events() {
		debugPrintln("[EVENTS] " + ev.Op.String() +
			" timer=" + itoa(int(ev.Timer)) +
			" arg=" + itoa(int(ev.Arg)) +
			" status=" + ev.Status.String())
	}
}

func ClearEvents() {
	eventRing = [EventRingSize]TimerEvent{}
	eventHead = 0
	eventCount = 0
}
