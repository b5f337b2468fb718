package mcu

import (
	"errors"
	"fmt"

	"avrtimer/timer"
)

// ErrRefused matches every StatusError
var ErrRefused = errors.New("timer operation refused")

// StatusError is a hwtimer_status report: the firmware left the timer
// untouched
type StatusError struct {
	Op     timer.Op
	Timer  timer.ID
	Status timer.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s on timer %d: %s", e.Op, e.Timer, e.Status)
}

func (e *StatusError) Unwrap() error {
	return ErrRefused
}

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (m *MCU) EnableNormalMode(id timer.ID, p timer.Prescale, irq bool) error {
	return m.exec("hwtimer_normal", uint32(id), uint32(p), boolArg(irq))
}

func (m *MCU) EnableCompareResetMode(id timer.ID, p timer.Prescale) error {
	return m.exec("hwtimer_compare_reset", uint32(id), uint32(p))
}

func (m *MCU) SetCompareChannel(id timer.ID, ch timer.Channel, a timer.Action, threshold uint16, irq bool) error {
	return m.exec("hwtimer_set_compare", uint32(id), uint32(ch), uint32(a), uint32(threshold), boolArg(irq))
}

func (m *MCU) SetCompareChannelA(id timer.ID, a timer.Action, threshold uint16, irq bool) error {
	return m.SetCompareChannel(id, timer.ChannelA, a, threshold, irq)
}

func (m *MCU) SetCompareChannelB(id timer.ID, a timer.Action, threshold uint16, irq bool) error {
	return m.SetCompareChannel(id, timer.ChannelB, a, threshold, irq)
}

// GetFlag reads an event flag without clearing it
func (m *MCU) GetFlag(id timer.ID, f timer.Flag) (bool, error) {
	r, err := m.Query("hwtimer_get_flag", []uint32{uint32(id), uint32(f)}, "hwtimer_flag")
	if err != nil {
		return false, err
	}
	if err := m.refusalError(); err != nil {
		return false, err
	}
	return r.Value("value") != 0, nil
}

func (m *MCU) ClearFlag(id timer.ID, f timer.Flag) error {
	return m.exec("hwtimer_clear_flag", uint32(id), uint32(f))
}

func (m *MCU) Disable(id timer.ID) error {
	return m.exec("hwtimer_disable", uint32(id))
}

// Count reads the live counter
func (m *MCU) Count(id timer.ID) (uint16, error) {
	r, err := m.Query("hwtimer_query", []uint32{uint32(id)}, "hwtimer_state")
	if err != nil {
		return 0, err
	}
	return uint16(r.Value("count")), nil
}

// TimerEvent is one entry of the firmware's timer event ring
type TimerEvent struct {
	Op     timer.Op
	Timer  timer.ID
	Status timer.Status
	Arg    uint16
}

func (e TimerEvent) String() string {
	return fmt.Sprintf("%s timer=%d arg=%d status=%s", e.Op, e.Timer, e.Arg, e.Status)
}

// Events reads the firmware's recent timer commands, oldest first. The
// replies are collected by the reader before the ack arrives.
func (m *MCU) Events() ([]TimerEvent, error) {
	m.takeEvents()
	if err := m.SendCommand("hwtimer_events"); err != nil {
		return nil, err
	}
	return m.takeEvents(), nil
}

func (m *MCU) takeEvents() []TimerEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := m.events
	m.events = nil
	return ev
}

// Config is the get_config reply
type Config struct {
	IsConfig   bool
	CRC        uint32
	IsShutdown bool
}

func (m *MCU) GetConfig() (*Config, error) {
	r, err := m.Query("get_config", nil, "config")
	if err != nil {
		return nil, err
	}
	return &Config{
		IsConfig:   r.Value("is_config") != 0,
		CRC:        uint32(r.Value("crc")),
		IsShutdown: r.Value("is_shutdown") != 0,
	}, nil
}

// EmergencyStop disables every timer and puts the firmware in shutdown
func (m *MCU) EmergencyStop() error {
	return m.SendCommand("emergency_stop")
}

// ConfigReset leaves shutdown
func (m *MCU) ConfigReset() error {
	return m.SendCommand("config_reset")
}
