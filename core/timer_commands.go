package core

import (
	"errors"
	"strings"

	"avrtimer/protocol"
	"avrtimer/timer"
)

// ErrNoController is returned by timer commands before SetTimerController
var ErrNoController = errors.New("timer controller not set")

var timerCtl *timer.Controller

// InitTimerCommands registers the hwtimer_* commands. Argument values use
// the timer package encodings, published as enumerations.
func InitTimerCommands() {
	RegisterCommand("hwtimer_normal", "timer=%c prescale=%c irq=%c", handleTimerNormal)
	RegisterCommand("hwtimer_compare_reset", "timer=%c prescale=%c", handleTimerCompareReset)
	RegisterCommand("hwtimer_set_compare", "timer=%c channel=%c action=%c value=%hu irq=%c", handleTimerSetCompare)
	RegisterCommand("hwtimer_get_flag", "timer=%c flag=%c", handleTimerGetFlag)
	RegisterCommand("hwtimer_clear_flag", "timer=%c flag=%c", handleTimerClearFlag)
	RegisterCommand("hwtimer_disable", "timer=%c", handleTimerDisable)
	RegisterCommand("hwtimer_query", "timer=%c", handleTimerQuery)
	RegisterCommand("hwtimer_events", "", handleTimerEvents)

	RegisterResponse("hwtimer_flag", "timer=%c flag=%c value=%c")
	RegisterResponse("hwtimer_state", "timer=%c count=%hu")
	RegisterResponse("hwtimer_status", "op=%c timer=%c status=%c")
	RegisterResponse("hwtimer_event", "op=%c timer=%c status=%c arg=%hu")

	RegisterEnumeration("hwtimer_prescale", timer.PrescaleNames())
	RegisterEnumeration("hwtimer_action", timer.ActionNames())
	RegisterEnumeration("hwtimer_flag", timer.FlagNames())
}

// SetTimerController binds the timer commands to c and publishes the
// variant's capabilities as dictionary constants. Call it before
// BuildDictionary.
func SetTimerController(c *timer.Controller) {
	timerCtl = c
	c.SetAssert(reportStatus)

	v := c.Variant()
	RegisterConstant("MCU", v.Name)
	RegisterConstant("TIMER_COUNT", len(v.Timers()))
	for _, id := range v.Timers() {
		in, _ := v.Lookup(id)
		prefix := "TIMER" + itoa(int(id)) + "_"
		RegisterConstant(prefix+"WIDTH", uint8(in.Width))
		RegisterConstant(prefix+"COMPARE_RESET", in.SupportsCompareReset())
		RegisterConstant(prefix+"CHANNEL_B", in.HasChannel(timer.ChannelB))

		names := make([]string, 0, len(in.Prescales()))
		for _, p := range in.Prescales() {
			names = append(names, p.String())
		}
		RegisterConstant(prefix+"PRESCALERS", strings.Join(names, ","))
	}
}

// reportStatus tells the host about an operation the controller refused
func reportStatus(op timer.Op, id timer.ID, s timer.Status) {
	SendResponse("hwtimer_status", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(op))
		protocol.EncodeVLQUint(output, uint32(id))
		protocol.EncodeVLQUint(output, uint32(s))
	})
}

func shutdownTimers() {
	if timerCtl != nil {
		Critical(timerCtl.DisableAll)
	}
}

func decodeArgs(data *[]byte, args ...*uint32) error {
	for _, a := range args {
		v, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		*a = v
	}
	return nil
}

// arg8 saturates so an oversized value stays out of range instead of
// wrapping onto a valid one
func arg8(v uint32) uint8 {
	if v > 0xFF {
		return 0xFF
	}
	return uint8(v)
}

// configAllowed gates commands that start hardware
func configAllowed() bool {
	if IsShutdown() {
		SendResponse("is_shutdown", nil)
		return false
	}
	return true
}

func handleTimerNormal(data *[]byte) error {
	var id, p, irq uint32
	if err := decodeArgs(data, &id, &p, &irq); err != nil {
		return err
	}
	if timerCtl == nil {
		return ErrNoController
	}
	if !configAllowed() {
		return nil
	}

	var s timer.Status
	Critical(func() {
		s = timerCtl.EnableNormalMode(timer.ID(arg8(id)), timer.Prescale(arg8(p)), irq != 0)
	})
	RecordEvent(timer.OpEnableNormal, timer.ID(arg8(id)), s, uint16(arg8(p)))
	return nil
}

func handleTimerCompareReset(data *[]byte) error {
	var id, p uint32
	if err := decodeArgs(data, &id, &p); err != nil {
		return err
	}
	if timerCtl == nil {
		return ErrNoController
	}
	if !configAllowed() {
		return nil
	}

	var s timer.Status
	Critical(func() {
		s = timerCtl.EnableCompareResetMode(timer.ID(arg8(id)), timer.Prescale(arg8(p)))
	})
	RecordEvent(timer.OpEnableCompareReset, timer.ID(arg8(id)), s, uint16(arg8(p)))
	return nil
}

func handleTimerSetCompare(data *[]byte) error {
	var id, ch, action, value, irq uint32
	if err := decodeArgs(data, &id, &ch, &action, &value, &irq); err != nil {
		return err
	}
	if timerCtl == nil {
		return ErrNoController
	}
	if !configAllowed() {
		return nil
	}

	tid := timer.ID(arg8(id))
	if ch > uint32(timer.ChannelB) {
		reportStatus(timer.OpSetCompareA, tid, timer.StatusBadArgument)
		RecordEvent(timer.OpSetCompareA, tid, timer.StatusBadArgument, uint16(value))
		return nil
	}
	op := timer.OpSetCompareA
	if timer.Channel(ch) == timer.ChannelB {
		op = timer.OpSetCompareB
	}

	var s timer.Status
	Critical(func() {
		s = timerCtl.SetCompareChannel(tid, timer.Channel(ch), timer.Action(arg8(action)), uint16(value), irq != 0)
	})
	RecordEvent(op, tid, s, uint16(value))
	return nil
}

func handleTimerGetFlag(data *[]byte) error {
	var id, f uint32
	if err := decodeArgs(data, &id, &f); err != nil {
		return err
	}
	if timerCtl == nil {
		return ErrNoController
	}

	var set bool
	Critical(func() {
		set = timerCtl.GetFlag(timer.ID(arg8(id)), timer.Flag(arg8(f)))
	})
	SendResponse("hwtimer_flag", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, id)
		protocol.EncodeVLQUint(output, f)
		protocol.EncodeVLQUint(output, boolArg(set))
	})
	return nil
}

func handleTimerClearFlag(data *[]byte) error {
	var id, f uint32
	if err := decodeArgs(data, &id, &f); err != nil {
		return err
	}
	if timerCtl == nil {
		return ErrNoController
	}

	var s timer.Status
	Critical(func() {
		s = timerCtl.ClearFlag(timer.ID(arg8(id)), timer.Flag(arg8(f)))
	})
	RecordEvent(timer.OpClearFlag, timer.ID(arg8(id)), s, uint16(arg8(f)))
	return nil
}

// handleTimerDisable is allowed in shutdown
func handleTimerDisable(data *[]byte) error {
	var id uint32
	if err := decodeArgs(data, &id); err != nil {
		return err
	}
	if timerCtl == nil {
		return ErrNoController
	}

	var s timer.Status
	Critical(func() {
		s = timerCtl.Disable(timer.ID(arg8(id)))
	})
	RecordEvent(timer.OpDisable, timer.ID(arg8(id)), s, 0)
	return nil
}

func handleTimerQuery(data *[]byte) error {
	var id uint32
	if err := decodeArgs(data, &id); err != nil {
		return err
	}
	if timerCtl == nil {
		return ErrNoController
	}

	var count uint16
	var s timer.Status
	Critical(func() {
		count, s = timerCtl.Count(timer.ID(arg8(id)))
	})
	if s != timer.StatusOK {
		return nil
	}
	SendResponse("hwtimer_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, id)
		protocol.EncodeVLQUint(output, uint32(count))
	})
	return nil
}

// handleTimerEvents replays the event ring, oldest first, one hwtimer_event
// per entry. It is read-only and allowed in shutdown.
func handleTimerEvents(data *[]byte) error {
	for _, ev := range Events() {
		SendResponse("hwtimer_event", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(ev.Op))
			protocol.EncodeVLQUint(output, uint32(ev.Timer))
			protocol.EncodeVLQUint(output, uint32(ev.Status))
			protocol.EncodeVLQUint(output, uint32(ev.Arg))
		})
	}
	return nil
}
