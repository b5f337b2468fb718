package timer

// noClockSelect marks a prescale value the instance cannot produce
const noClockSelect = 0xFF

// comField is the width mask of a channel's two COM bits
const comField = 0x03

// commonClockSelect maps prescale values to CS bits for Timer0 and Timer1
var commonClockSelect = [numPrescale]uint8{
	PrescaleDisable: 0,
	Prescale1:       1,
	Prescale8:       2,
	Prescale32:      noClockSelect,
	Prescale64:      3,
	Prescale128:     noClockSelect,
	Prescale256:     4,
	Prescale1024:    5,
}

// richClockSelect maps prescale values to CS bits for Timer2, which has a
// divider of its own with the two extra taps
var richClockSelect = [numPrescale]uint8{
	PrescaleDisable: 0,
	Prescale1:       1,
	Prescale8:       2,
	Prescale32:      3,
	Prescale64:      4,
	Prescale128:     5,
	Prescale256:     6,
	Prescale1024:    7,
}

// ChannelDesc locates one output-compare channel
type ChannelDesc struct {
	Present bool
	Compare Addr  // compare register, low byte on 16-bit instances
	Control Addr  // register holding the COM bits
	Shift   uint8 // bit position of the two COM bits
	IntBit  uint8 // match interrupt enable bit in the mask register
	FlagBit uint8 // match flag bit in the flag register
}

// Instance describes where one timer lives on a chip and what it can do
type Instance struct {
	ID    ID
	Width Width

	// Control lists the control registers, A first. ModeMask holds the
	// waveform generation bits of each, CompareResetBits the value those bits
	// take in compare-reset mode. CompareResetBits is nil when the instance
	// has no compare-reset mode.
	Control          []Addr
	ModeMask         []uint8
	CompareResetBits []uint8

	Clock       Addr
	ClockMask   uint8
	ClockSelect *[numPrescale]uint8

	Count    Addr // low byte on 16-bit instances
	Channels [2]ChannelDesc

	Mask        Addr
	Flags       Addr
	OverflowInt uint8
	OverflowBit uint8
}

// SupportsCompareReset reports whether the instance has compare-reset mode
func (in *Instance) SupportsCompareReset() bool {
	return in.CompareResetBits != nil
}

// HasChannel reports whether the output-compare channel exists
func (in *Instance) HasChannel(ch Channel) bool {
	_, ok := in.channel(ch)
	return ok
}

// SupportsPrescale reports whether p is a legal clock selection
func (in *Instance) SupportsPrescale(p Prescale) bool {
	_, ok := in.clockSelect(p)
	return ok
}

// Prescales lists the legal clock selections, PrescaleDisable first
func (in *Instance) Prescales() []Prescale {
	out := make([]Prescale, 0, numPrescale)
	for p := PrescaleDisable; p < numPrescale; p++ {
		if in.SupportsPrescale(p) {
			out = append(out, p)
		}
	}
	return out
}

func (in *Instance) channel(ch Channel) (*ChannelDesc, bool) {
	if ch > ChannelB || !in.Channels[ch].Present {
		return nil, false
	}
	return &in.Channels[ch], true
}

func (in *Instance) clockSelect(p Prescale) (uint8, bool) {
	if p >= numPrescale {
		return 0, false
	}
	cs := in.ClockSelect[p]
	return cs, cs != noClockSelect
}

// prescaleFor reverse-maps CS bits to a prescale value
func (in *Instance) prescaleFor(cs uint8) Prescale {
	for p := PrescaleDisable; p < numPrescale; p++ {
		if in.ClockSelect[p] == cs {
			return p
		}
	}
	return PrescaleDisable
}

// flagBit returns the flag register bit of an event
func (in *Instance) flagBit(f Flag) (uint8, bool) {
	switch f {
	case FlagOverflow:
		return in.OverflowBit, true
	case FlagCompareA:
		if cd, ok := in.channel(ChannelA); ok {
			return cd.FlagBit, true
		}
	case FlagCompareB:
		if cd, ok := in.channel(ChannelB); ok {
			return cd.FlagBit, true
		}
	}
	return 0, false
}

// interruptBits is every mask bit owned by the instance
func (in *Instance) interruptBits() uint8 {
	bits := uint8(1) << in.OverflowInt
	for i := range in.Channels {
		if in.Channels[i].Present {
			bits |= 1 << in.Channels[i].IntBit
		}
	}
	return bits
}

// flagBits is every flag bit owned by the instance
func (in *Instance) flagBits() uint8 {
	bits := uint8(1) << in.OverflowBit
	for i := range in.Channels {
		if in.Channels[i].Present {
			bits |= 1 << in.Channels[i].FlagBit
		}
	}
	return bits
}

// compareResetActive reports whether the mode bits read through load select
// compare-reset mode
func (in *Instance) compareResetActive(load func(Addr) uint8) bool {
	if !in.SupportsCompareReset() {
		return false
	}
	for i, a := range in.Control {
		if load(a)&in.ModeMask[i] != in.CompareResetBits[i] {
			return false
		}
	}
	return true
}

// Variant is the register map of one chip family
type Variant struct {
	Name string

	// SharedMask is set when all instances share one interrupt mask register
	// and one flag register
	SharedMask bool

	Instances [NumTimers]*Instance
}

// Lookup returns the instance behind id
func (v *Variant) Lookup(id ID) (*Instance, bool) {
	if id >= NumTimers || v.Instances[id] == nil {
		return nil, false
	}
	return v.Instances[id], true
}

// Timers lists the IDs the variant provides
func (v *Variant) Timers() []ID {
	ids := make([]ID, 0, NumTimers)
	for id := ID(0); id < NumTimers; id++ {
		if v.Instances[id] != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Variants lists the built-in chip variants
func Variants() []*Variant {
	return []*Variant{ATmega8, ATmega16, ATmega328P}
}

// VariantByName finds a built-in variant by chip name. Family aliases such
// as "atmega32" or "atmega168" resolve to the variant sharing their layout.
func VariantByName(name string) (*Variant, bool) {
	switch name {
	case "atmega8", "atmega8a":
		return ATmega8, true
	case "atmega16", "atmega16a", "atmega32", "atmega32a":
		return ATmega16, true
	case "atmega48", "atmega88", "atmega168", "atmega328", "atmega328p":
		return ATmega328P, true
	}
	return nil, false
}
