package mcu

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"avrtimer/host/simfw"
	"avrtimer/timer"
)

// connectSim starts simulated firmware for v and connects to it
func connectSim(t *testing.T, v *timer.Variant) (*MCU, *simfw.Firmware) {
	t.Helper()
	fw := simfw.Start(v)
	m := NewMCU()
	m.SetOutput(io.Discard)
	m.ConnectPort(fw.Port())
	t.Cleanup(func() {
		m.Close()
		fw.Close()
	})

	if err := m.RetrieveDictionary(); err != nil {
		t.Fatalf("RetrieveDictionary: %v", err)
	}
	return m, fw
}

func TestRetrieveDictionary(t *testing.T) {
	m, _ := connectSim(t, timer.ATmega328P)

	d := m.GetDictionary()
	if d.Version != "avrtimer-0.1.0" {
		t.Errorf("Unexpected version %q", d.Version)
	}
	if !strings.HasPrefix(d.BuildVersions, "simfw atmega328p ") {
		t.Errorf("Unexpected build versions %q", d.BuildVersions)
	}
	if d.Config["TIMER2_PRESCALERS"] != "disable,div1,div8,div32,div64,div128,div256,div1024" {
		t.Errorf("Unexpected TIMER2_PRESCALERS %q", d.Config["TIMER2_PRESCALERS"])
	}
	if d.Enumerations["hwtimer_action"]["toggle"] != int(timer.ActionToggle) {
		t.Errorf("Unexpected hwtimer_action enumeration %v", d.Enumerations["hwtimer_action"])
	}

	v, err := m.Variant()
	if err != nil || v != timer.ATmega328P {
		t.Errorf("Variant() = %v, %v", v, err)
	}
}

func TestRemoteToggleThenNormal(t *testing.T) {
	m, fw := connectSim(t, timer.ATmega328P)

	if err := m.SetCompareChannelA(timer.Timer0, timer.ActionToggle, 100, true); err != nil {
		t.Fatal(err)
	}
	if err := m.EnableNormalMode(timer.Timer0, timer.Prescale1, true); err != nil {
		t.Fatal(err)
	}
	if fw.Peek(0x44) != 0x40 || fw.Peek(0x45) != 0x01 || fw.Peek(0x6E) != 0x03 {
		t.Errorf("Registers TCCR0A=0x%02X TCCR0B=0x%02X TIMSK0=0x%02X",
			fw.Peek(0x44), fw.Peek(0x45), fw.Peek(0x6E))
	}

	fw.Step(150)
	n, err := m.Count(timer.Timer0)
	if err != nil || n != 150 {
		t.Errorf("Count = %d, %v; expected 150", n, err)
	}

	set, err := m.GetFlag(timer.Timer0, timer.FlagCompareA)
	if err != nil || !set {
		t.Fatalf("Compare A flag = %v, %v; expected set", set, err)
	}
	if err := m.ClearFlag(timer.Timer0, timer.FlagCompareA); err != nil {
		t.Fatal(err)
	}
	if set, _ := m.GetFlag(timer.Timer0, timer.FlagCompareA); set {
		t.Error("Compare A flag still set after ClearFlag")
	}
}

func TestRemoteRefusal(t *testing.T) {
	m, fw := connectSim(t, timer.ATmega8)

	err := m.EnableCompareResetMode(timer.Timer0, timer.Prescale8)
	var se *StatusError
	if !errors.As(err, &se) || se.Status != timer.StatusUnsupported || se.Op != timer.OpEnableCompareReset {
		t.Fatalf("Expected unsupported compare-reset refusal, got %v", err)
	}
	if !errors.Is(err, ErrRefused) {
		t.Error("StatusError does not match ErrRefused")
	}

	if err := m.SetCompareChannelB(timer.Timer2, timer.ActionSet, 1, false); !errors.Is(err, ErrRefused) {
		t.Errorf("Expected refusal for missing channel B, got %v", err)
	}
	if _, err := m.GetFlag(timer.Timer0, timer.FlagCompareA); !errors.Is(err, ErrRefused) {
		t.Errorf("Expected refusal for missing compare flag, got %v", err)
	}

	// a successful command after a refusal reports nothing
	if err := m.EnableNormalMode(timer.Timer1, timer.Prescale64, false); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if fw.Peek(0x4E) != 0x03 {
		t.Errorf("TCCR1B = 0x%02X, expected clk/64", fw.Peek(0x4E))
	}
}

func TestRemoteEmergencyStop(t *testing.T) {
	m, fw := connectSim(t, timer.ATmega16)

	if err := m.EnableNormalMode(timer.Timer2, timer.Prescale1024, true); err != nil {
		t.Fatal(err)
	}
	if err := m.EmergencyStop(); err != nil {
		t.Fatal(err)
	}
	cfg, err := m.GetConfig()
	if err != nil || !cfg.IsShutdown {
		t.Fatalf("Expected shutdown config, got %+v, %v", cfg, err)
	}
	if fw.Peek(0x45) != 0 {
		t.Errorf("TCCR2 = 0x%02X after emergency stop", fw.Peek(0x45))
	}

	if err := m.EnableNormalMode(timer.Timer2, timer.Prescale1, false); !errors.Is(err, ErrShutdown) {
		t.Errorf("Expected ErrShutdown, got %v", err)
	}
	if err := m.ConfigReset(); err != nil {
		t.Fatal(err)
	}
	if err := m.EnableNormalMode(timer.Timer2, timer.Prescale1, false); err != nil {
		t.Errorf("Enable after config_reset: %v", err)
	}
}

func TestRemoteDisable(t *testing.T) {
	m, fw := connectSim(t, timer.ATmega328P)

	m.EnableNormalMode(timer.Timer1, timer.Prescale1, true)
	fw.Step(1000)
	if err := m.Disable(timer.Timer1); err != nil {
		t.Fatal(err)
	}
	fw.Step(1000)
	if n, _ := m.Count(timer.Timer1); n != 0 {
		t.Errorf("Disabled timer counted to %d", n)
	}
	if _, err := m.Count(timer.ID(7)); !errors.Is(err, ErrRefused) {
		t.Errorf("Expected refusal for unknown timer, got %v", err)
	}
}

func TestNotConnected(t *testing.T) {
	m := NewMCU()
	if err := m.RetrieveDictionary(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	if err := m.SendCommand("get_config"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	m, _ := connectSim(t, timer.ATmega8)
	if err := m.SendCommand("get_uptime"); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("Expected ErrUnknownMessage, got %v", err)
	}
	if err := m.SendCommand("hwtimer_disable"); !errors.Is(err, ErrArgumentCount) {
		t.Errorf("Expected ErrArgumentCount, got %v", err)
	}
}

func TestRemoteEvents(t *testing.T) {
	m, _ := connectSim(t, timer.ATmega8)

	m.EnableNormalMode(timer.Timer2, timer.Prescale256, false)
	m.EnableCompareResetMode(timer.Timer0, timer.Prescale1)

	events, err := m.Events()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %v", events)
	}
	if events[0] != (TimerEvent{timer.OpEnableNormal, timer.Timer2, timer.StatusOK, uint16(timer.Prescale256)}) {
		t.Errorf("Unexpected first event %v", events[0])
	}
	if events[1].String() != "enable_compare_reset timer=0 arg=1 status=unsupported" {
		t.Errorf("Unexpected second event %v", events[1])
	}

	// reading the ring is allowed in shutdown and records nothing
	m.EmergencyStop()
	if again, err := m.Events(); err != nil || len(again) != 2 {
		t.Errorf("Events after shutdown = %v, %v", again, err)
	}
}

func TestShutdownLog(t *testing.T) {
	var log bytes.Buffer
	fw := simfw.StartWithLog(timer.ATmega16, &log, false)
	m := NewMCU()
	m.SetOutput(io.Discard)
	m.ConnectPort(fw.Port())
	defer func() {
		m.Close()
		fw.Close()
	}()
	if err := m.RetrieveDictionary(); err != nil {
		t.Fatal(err)
	}
	if log.Len() != 0 {
		t.Errorf("Debug lines written with verbose off: %q", log.String())
	}

	m.Disable(timer.Timer1)
	if err := m.EmergencyStop(); err != nil {
		t.Fatal(err)
	}
	want := "[EVENTS] 1 recorded\n[EVENTS] disable timer=1 arg=0 status=ok\n"
	if log.String() != want {
		t.Errorf("Expected shutdown dump %q, got %q", want, log.String())
	}
}
