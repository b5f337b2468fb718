// Package timer drives the timer/counter peripherals of the 8-bit AVR family
// through one logical API. Callers name a timer by its logical ID; the active
// Variant translates that into the chip's register layout.
//
// All persistent state lives in the registers. A Controller holds nothing but
// the variant descriptor and the register file it writes to.
package timer

// ID identifies a logical timer
type ID uint8

const (
	Timer0 ID = iota // 8-bit
	Timer1           // 16-bit
	Timer2           // 8-bit, richer prescaler
)

// NumTimers is the number of logical timer IDs
const NumTimers = 3

func (id ID) String() string {
	switch id {
	case Timer0:
		return "timer0"
	case Timer1:
		return "timer1"
	case Timer2:
		return "timer2"
	}
	return "timer?"
}

// Width is the counter width of an instance
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
)

// Max returns the counter's wrap value
func (w Width) Max() uint16 {
	if w == Width16 {
		return 0xFFFF
	}
	return 0xFF
}

// Prescale selects the clock divisor. PrescaleDisable stops the counter.
// Not every instance accepts every value, see Instance.SupportsPrescale.
type Prescale uint8

const (
	PrescaleDisable Prescale = iota
	Prescale1
	Prescale8
	Prescale32
	Prescale64
	Prescale128
	Prescale256
	Prescale1024

	numPrescale
)

var prescaleRatios = [numPrescale]uint32{0, 1, 8, 32, 64, 128, 256, 1024}

var prescaleNames = [numPrescale]string{
	"disable", "div1", "div8", "div32", "div64", "div128", "div256", "div1024",
}

// Ratio returns the clock divisor, 0 for PrescaleDisable
func (p Prescale) Ratio() uint32 {
	if p >= numPrescale {
		return 0
	}
	return prescaleRatios[p]
}

func (p Prescale) String() string {
	if p >= numPrescale {
		return "prescale?"
	}
	return prescaleNames[p]
}

// PrescaleNames lists the names of every Prescale value in order
func PrescaleNames() []string {
	return prescaleNames[:]
}

// Action is what an output-compare channel does to its pin on a match. The
// values are the chip's COM bit encoding for non-PWM modes.
type Action uint8

const (
	ActionNone Action = iota
	ActionToggle
	ActionClear
	ActionSet
)

var actionNames = [...]string{"none", "toggle", "clear", "set"}

func (a Action) String() string {
	if int(a) >= len(actionNames) {
		return "action?"
	}
	return actionNames[a]
}

// ActionNames lists the names of every Action value in order
func ActionNames() []string {
	return actionNames[:]
}

// Channel names an output-compare channel
type Channel uint8

const (
	ChannelA Channel = iota
	ChannelB
)

func (ch Channel) String() string {
	if ch == ChannelA {
		return "A"
	}
	if ch == ChannelB {
		return "B"
	}
	return "?"
}

// Flag is a sticky event bit set by hardware
type Flag uint8

const (
	FlagOverflow Flag = iota
	FlagCompareA
	FlagCompareB
)

var flagNames = [...]string{"overflow", "compare_a", "compare_b"}

func (f Flag) String() string {
	if int(f) >= len(flagNames) {
		return "flag?"
	}
	return flagNames[f]
}

// FlagNames lists the names of every Flag value in order
func FlagNames() []string {
	return flagNames[:]
}

// Op names a controller operation. It is passed to the assert hook and carried
// in status reports.
type Op uint8

const (
	OpEnableNormal Op = iota
	OpEnableCompareReset
	OpSetCompareA
	OpSetCompareB
	OpGetFlag
	OpClearFlag
	OpDisable
	OpCount
)

var opNames = [...]string{
	"enable_normal", "enable_compare_reset", "set_compare_a", "set_compare_b",
	"get_flag", "clear_flag", "disable", "count",
}

func (o Op) String() string {
	if int(o) >= len(opNames) {
		return "op?"
	}
	return opNames[o]
}

// Status is the outcome of a controller operation. Anything other than
// StatusOK means the operation wrote nothing.
type Status uint8

const (
	StatusOK Status = iota
	StatusUnknownTimer
	StatusUnsupported
	StatusBadPrescale
	StatusBadArgument
)

var statusNames = [...]string{"ok", "unknown timer", "unsupported", "bad prescale", "bad argument"}

func (s Status) String() string {
	if int(s) >= len(statusNames) {
		return "status?"
	}
	return statusNames[s]
}
