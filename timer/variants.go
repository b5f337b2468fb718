package timer

// Register addresses and bit positions below come from the chip datasheets.
// Addresses are data-space (I/O + 0x20).

// ATmega8: one TIMSK and one TIFR for all timers. Timer0 is a bare counter
// with no waveform generation and no compare unit; Timer2 has one channel.
var ATmega8 = &Variant{
	Name:       "atmega8",
	SharedMask: true,
	Instances: [NumTimers]*Instance{
		Timer0: {
			ID:          Timer0,
			Width:       Width8,
			Control:     []Addr{0x53}, // TCCR0
			ModeMask:    []uint8{0},
			Clock:       0x53,
			ClockMask:   0x07,
			ClockSelect: &commonClockSelect,
			Count:       0x52, // TCNT0
			Mask:        0x59, // TIMSK
			Flags:       0x58, // TIFR
			OverflowInt: 0,    // TOIE0
			OverflowBit: 0,    // TOV0
		},
		Timer1: {
			ID:               Timer1,
			Width:            Width16,
			Control:          []Addr{0x4F, 0x4E},    // TCCR1A, TCCR1B
			ModeMask:         []uint8{0x03, 0x18},   // WGM11:10, WGM13:12
			CompareResetBits: []uint8{0x00, 0x08},   // WGM12
			Clock:            0x4E,
			ClockMask:        0x07,
			ClockSelect:      &commonClockSelect,
			Count:            0x4C, // TCNT1L
			Channels: [2]ChannelDesc{
				{Present: true, Compare: 0x4A, Control: 0x4F, Shift: 6, IntBit: 4, FlagBit: 4}, // OCR1A, COM1A, OCIE1A
				{Present: true, Compare: 0x48, Control: 0x4F, Shift: 4, IntBit: 3, FlagBit: 3}, // OCR1B, COM1B, OCIE1B
			},
			Mask:        0x59,
			Flags:       0x58,
			OverflowInt: 2,
			OverflowBit: 2,
		},
		Timer2: {
			ID:               Timer2,
			Width:            Width8,
			Control:          []Addr{0x45},  // TCCR2
			ModeMask:         []uint8{0x48}, // WGM20, WGM21
			CompareResetBits: []uint8{0x08},
			Clock:            0x45,
			ClockMask:        0x07,
			ClockSelect:      &richClockSelect,
			Count:            0x44, // TCNT2
			Channels: [2]ChannelDesc{
				{Present: true, Compare: 0x43, Control: 0x45, Shift: 4, IntBit: 7, FlagBit: 7}, // OCR2, COM2, OCIE2
			},
			Mask:        0x59,
			Flags:       0x58,
			OverflowInt: 6,
			OverflowBit: 6,
		},
	},
}

// ATmega16 (and ATmega32): still a shared TIMSK/TIFR, but Timer0 gained
// waveform generation and a single compare channel.
var ATmega16 = &Variant{
	Name:       "atmega16",
	SharedMask: true,
	Instances: [NumTimers]*Instance{
		Timer0: {
			ID:               Timer0,
			Width:            Width8,
			Control:          []Addr{0x53},  // TCCR0
			ModeMask:         []uint8{0x48}, // WGM00, WGM01
			CompareResetBits: []uint8{0x08},
			Clock:            0x53,
			ClockMask:        0x07,
			ClockSelect:      &commonClockSelect,
			Count:            0x52, // TCNT0
			Channels: [2]ChannelDesc{
				{Present: true, Compare: 0x5C, Control: 0x53, Shift: 4, IntBit: 1, FlagBit: 1}, // OCR0, COM0, OCIE0
			},
			Mask:        0x59,
			Flags:       0x58,
			OverflowInt: 0,
			OverflowBit: 0,
		},
		Timer1: {
			ID:               Timer1,
			Width:            Width16,
			Control:          []Addr{0x4F, 0x4E},
			ModeMask:         []uint8{0x03, 0x18},
			CompareResetBits: []uint8{0x00, 0x08},
			Clock:            0x4E,
			ClockMask:        0x07,
			ClockSelect:      &commonClockSelect,
			Count:            0x4C,
			Channels: [2]ChannelDesc{
				{Present: true, Compare: 0x4A, Control: 0x4F, Shift: 6, IntBit: 4, FlagBit: 4},
				{Present: true, Compare: 0x48, Control: 0x4F, Shift: 4, IntBit: 3, FlagBit: 3},
			},
			Mask:        0x59,
			Flags:       0x58,
			OverflowInt: 2,
			OverflowBit: 2,
		},
		Timer2: {
			ID:               Timer2,
			Width:            Width8,
			Control:          []Addr{0x45},
			ModeMask:         []uint8{0x48},
			CompareResetBits: []uint8{0x08},
			Clock:            0x45,
			ClockMask:        0x07,
			ClockSelect:      &richClockSelect,
			Count:            0x44,
			Channels: [2]ChannelDesc{
				{Present: true, Compare: 0x43, Control: 0x45, Shift: 4, IntBit: 7, FlagBit: 7},
			},
			Mask:        0x59,
			Flags:       0x58,
			OverflowInt: 6,
			OverflowBit: 6,
		},
	},
}

// ATmega328P (and 48/88/168): every timer has its own TIMSKn and TIFRn, two
// control registers and two compare channels.
var ATmega328P = &Variant{
	Name: "atmega328p",
	Instances: [NumTimers]*Instance{
		Timer0: {
			ID:               Timer0,
			Width:            Width8,
			Control:          []Addr{0x44, 0x45},  // TCCR0A, TCCR0B
			ModeMask:         []uint8{0x03, 0x08}, // WGM01:00, WGM02
			CompareResetBits: []uint8{0x02, 0x00},
			Clock:            0x45,
			ClockMask:        0x07,
			ClockSelect:      &commonClockSelect,
			Count:            0x46, // TCNT0
			Channels: [2]ChannelDesc{
				{Present: true, Compare: 0x47, Control: 0x44, Shift: 6, IntBit: 1, FlagBit: 1}, // OCR0A
				{Present: true, Compare: 0x48, Control: 0x44, Shift: 4, IntBit: 2, FlagBit: 2}, // OCR0B
			},
			Mask:        0x6E, // TIMSK0
			Flags:       0x35, // TIFR0
			OverflowInt: 0,
			OverflowBit: 0,
		},
		Timer1: {
			ID:               Timer1,
			Width:            Width16,
			Control:          []Addr{0x80, 0x81},  // TCCR1A, TCCR1B
			ModeMask:         []uint8{0x03, 0x18}, // WGM11:10, WGM13:12
			CompareResetBits: []uint8{0x00, 0x08},
			Clock:            0x81,
			ClockMask:        0x07,
			ClockSelect:      &commonClockSelect,
			Count:            0x84, // TCNT1L
			Channels: [2]ChannelDesc{
				{Present: true, Compare: 0x88, Control: 0x80, Shift: 6, IntBit: 1, FlagBit: 1}, // OCR1AL
				{Present: true, Compare: 0x8A, Control: 0x80, Shift: 4, IntBit: 2, FlagBit: 2}, // OCR1BL
			},
			Mask:        0x6F, // TIMSK1
			Flags:       0x36, // TIFR1
			OverflowInt: 0,
			OverflowBit: 0,
		},
		Timer2: {
			ID:               Timer2,
			Width:            Width8,
			Control:          []Addr{0xB0, 0xB1}, // TCCR2A, TCCR2B
			ModeMask:         []uint8{0x03, 0x08},
			CompareResetBits: []uint8{0x02, 0x00},
			Clock:            0xB1,
			ClockMask:        0x07,
			ClockSelect:      &richClockSelect,
			Count:            0xB2, // TCNT2
			Channels: [2]ChannelDesc{
				{Present: true, Compare: 0xB3, Control: 0xB0, Shift: 6, IntBit: 1, FlagBit: 1}, // OCR2A
				{Present: true, Compare: 0xB4, Control: 0xB0, Shift: 4, IntBit: 2, FlagBit: 2}, // OCR2B
			},
			Mask:        0x70, // TIMSK2
			Flags:       0x37, // TIFR2
			OverflowInt: 0,
			OverflowBit: 0,
		},
	},
}
