package timer

// simSize covers the AVR register space (data addresses below 0x100)
const simSize = 0x100

// Access is one register access recorded by Sim
type Access struct {
	Write bool
	Addr  Addr
	Value uint8
}

// Sim is a simulated register file for one variant. It models the parts of
// the timer hardware the controller depends on:
//
//   - flag registers are write-one-to-clear
//   - 16-bit registers go through the TEMP latch: a high-byte write is held
//     until the low byte is written, a low-byte read latches the high byte
//   - Step advances running counters and raises their flags
type Sim struct {
	variant *Variant

	mem    [simSize]uint8
	w1c    [simSize]bool
	wideLo [simSize]bool
	wideHi [simSize]bool
	temp   uint8

	// cycles not yet consumed by each instance's prescaler
	carry [NumTimers]uint32

	// Trace, when set, receives every access made through Load8/Store8
	Trace func(Access)
}

// NewSim creates a powered-on register file for v: every register reads zero
func NewSim(v *Variant) *Sim {
	s := &Sim{variant: v}
	for _, id := range v.Timers() {
		in := v.Instances[id]
		s.w1c[in.Flags] = true
		if in.Width == Width16 {
			s.markWide(in.Count)
			for i := range in.Channels {
				if in.Channels[i].Present {
					s.markWide(in.Channels[i].Compare)
				}
			}
		}
	}
	return s
}

func (s *Sim) markWide(lo Addr) {
	s.wideLo[lo] = true
	s.wideHi[lo+1] = true
}

// Load8 implements RegisterFile
func (s *Sim) Load8(a Addr) uint8 {
	a %= simSize
	v := s.mem[a]
	switch {
	case s.wideLo[a]:
		s.temp = s.mem[a+1]
	case s.wideHi[a]:
		v = s.temp
	}
	if s.Trace != nil {
		s.Trace(Access{Addr: a, Value: v})
	}
	return v
}

// Store8 implements RegisterFile
func (s *Sim) Store8(a Addr, v uint8) {
	a %= simSize
	if s.Trace != nil {
		s.Trace(Access{Write: true, Addr: a, Value: v})
	}
	switch {
	case s.w1c[a]:
		s.mem[a] &^= v
	case s.wideHi[a]:
		s.temp = v
	case s.wideLo[a]:
		s.mem[a] = v
		s.mem[a+1] = s.temp
	default:
		s.mem[a] = v
	}
}

// Peek reads a register without side effects
func (s *Sim) Peek(a Addr) uint8 {
	return s.mem[a%simSize]
}

// Poke writes a register without side effects. Tests use it to preload
// state, including setting flags that Store8 could only clear.
func (s *Sim) Poke(a Addr, v uint8) {
	s.mem[a%simSize] = v
}

// Snapshot copies the whole register space
func (s *Sim) Snapshot() [simSize]uint8 {
	return s.mem
}

// Raise sets an event flag as the hardware would
func (s *Sim) Raise(id ID, f Flag) {
	in, ok := s.variant.Lookup(id)
	if !ok {
		return
	}
	if bit, ok := in.flagBit(f); ok {
		s.mem[in.Flags] |= 1 << bit
	}
}

// Pending reports whether the event's interrupt vector would be pending:
// its flag is set and its interrupt is enabled
func (s *Sim) Pending(id ID, f Flag) bool {
	in, ok := s.variant.Lookup(id)
	if !ok {
		return false
	}
	bit, ok := in.flagBit(f)
	if !ok || s.mem[in.Flags]&(1<<bit) == 0 {
		return false
	}
	intBit := in.OverflowInt
	switch f {
	case FlagCompareA:
		intBit = in.Channels[ChannelA].IntBit
	case FlagCompareB:
		intBit = in.Channels[ChannelB].IntBit
	}
	return s.mem[in.Mask]&(1<<intBit) != 0
}

// Step advances the simulation by cycles CPU clock cycles
func (s *Sim) Step(cycles uint32) {
	for _, id := range s.variant.Timers() {
		s.stepInstance(s.variant.Instances[id], cycles)
	}
}

func (s *Sim) stepInstance(in *Instance, cycles uint32) {
	p := in.prescaleFor(s.mem[in.Clock] & in.ClockMask)
	ratio := p.Ratio()
	if ratio == 0 {
		return
	}
	s.carry[in.ID] += cycles
	ticks := s.carry[in.ID] / ratio
	s.carry[in.ID] %= ratio

	ctc := in.compareResetActive(s.Peek)
	for ; ticks > 0; ticks-- {
		s.tick(in, ctc)
	}
}

// tick advances one counter by one prescaled clock
func (s *Sim) tick(in *Instance, ctc bool) {
	count := s.peekWide(in, in.Count)
	next := count + 1
	if count == in.Width.Max() {
		next = 0
		s.mem[in.Flags] |= 1 << in.OverflowBit
	}
	if a, ok := in.channel(ChannelA); ok && ctc && count == s.peekWide(in, a.Compare) {
		next = 0
	}
	s.pokeWide(in, in.Count, next)

	for i := range in.Channels {
		cd := &in.Channels[i]
		if cd.Present && next == s.peekWide(in, cd.Compare) {
			s.mem[in.Flags] |= 1 << cd.FlagBit
		}
	}
}

func (s *Sim) peekWide(in *Instance, a Addr) uint16 {
	if in.Width == Width16 {
		return uint16(s.mem[a+1])<<8 | uint16(s.mem[a])
	}
	return uint16(s.mem[a])
}

func (s *Sim) pokeWide(in *Instance, a Addr, v uint16) {
	s.mem[a] = uint8(v)
	if in.Width == Width16 {
		s.mem[a+1] = uint8(v >> 8)
	}
}
