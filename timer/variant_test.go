package timer

import "testing"

func TestVariantCapabilities(t *testing.T) {
	tests := []struct {
		v            *Variant
		id           ID
		width        Width
		compareReset bool
		channelA     bool
		channelB     bool
	}{
		{ATmega8, Timer0, Width8, false, false, false},
		{ATmega8, Timer1, Width16, true, true, true},
		{ATmega8, Timer2, Width8, true, true, false},
		{ATmega16, Timer0, Width8, true, true, false},
		{ATmega16, Timer1, Width16, true, true, true},
		{ATmega16, Timer2, Width8, true, true, false},
		{ATmega328P, Timer0, Width8, true, true, true},
		{ATmega328P, Timer1, Width16, true, true, true},
		{ATmega328P, Timer2, Width8, true, true, true},
	}

	for _, tc := range tests {
		in, ok := tc.v.Lookup(tc.id)
		if !ok {
			t.Errorf("%s: %v missing", tc.v.Name, tc.id)
			continue
		}
		if in.Width != tc.width {
			t.Errorf("%s %v: expected width %d, got %d", tc.v.Name, tc.id, tc.width, in.Width)
		}
		if in.SupportsCompareReset() != tc.compareReset {
			t.Errorf("%s %v: compare-reset expected %v", tc.v.Name, tc.id, tc.compareReset)
		}
		if in.HasChannel(ChannelA) != tc.channelA {
			t.Errorf("%s %v: channel A expected %v", tc.v.Name, tc.id, tc.channelA)
		}
		if in.HasChannel(ChannelB) != tc.channelB {
			t.Errorf("%s %v: channel B expected %v", tc.v.Name, tc.id, tc.channelB)
		}
	}
}

func TestPrescaleSets(t *testing.T) {
	for _, v := range Variants() {
		for _, id := range v.Timers() {
			in, _ := v.Lookup(id)
			want := 6
			if id == Timer2 {
				want = 8
			}
			if got := len(in.Prescales()); got != want {
				t.Errorf("%s %v: expected %d prescale values, got %d", v.Name, id, want, got)
			}
			if in.Prescales()[0] != PrescaleDisable {
				t.Errorf("%s %v: first prescale is not disable", v.Name, id)
			}
		}
	}
}

func TestSharedMaskLayout(t *testing.T) {
	for _, v := range Variants() {
		seen := map[Addr]uint8{}
		for _, id := range v.Timers() {
			in, _ := v.Lookup(id)
			bits := in.interruptBits()
			if prev, ok := seen[in.Mask]; ok {
				if !v.SharedMask {
					t.Errorf("%s: mask 0x%02X shared but SharedMask unset", v.Name, in.Mask)
				}
				if prev&bits != 0 {
					t.Errorf("%s %v: interrupt bits overlap another timer", v.Name, id)
				}
			}
			seen[in.Mask] |= bits
		}
	}
}

func TestVariantByName(t *testing.T) {
	tests := map[string]*Variant{
		"atmega8":    ATmega8,
		"atmega32":   ATmega16,
		"atmega168":  ATmega328P,
		"atmega328p": ATmega328P,
	}
	for name, want := range tests {
		if got, ok := VariantByName(name); !ok || got != want {
			t.Errorf("VariantByName(%q) returned %v", name, got)
		}
	}
	if _, ok := VariantByName("attiny85"); ok {
		t.Error("attiny85 should not resolve")
	}
	if _, ok := ATmega8.Lookup(ID(NumTimers)); ok {
		t.Error("Lookup accepted an out-of-range ID")
	}
}
