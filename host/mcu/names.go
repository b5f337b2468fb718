package mcu

import (
	"fmt"
	"strconv"
	"strings"

	"avrtimer/timer"
)

func lookupName(kind, s string, names []string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q (want one of %s)", kind, s, strings.Join(names, ", "))
}

// ParseTimer accepts "1", "t1" or "timer1"
func ParseTimer(s string) (timer.ID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "timer"), "t")
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n >= timer.NumTimers {
		return 0, fmt.Errorf("unknown timer %q", s)
	}
	return timer.ID(n), nil
}

// ParsePrescale accepts a prescale name ("div64") or its ratio ("64");
// "0" and "off" mean stopped
func ParsePrescale(s string) (timer.Prescale, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "0", "off":
		return timer.PrescaleDisable, nil
	}
	if _, err := strconv.Atoi(s); err == nil {
		s = "div" + s
	}
	i, err := lookupName("prescale", s, timer.PrescaleNames())
	return timer.Prescale(i), err
}

func ParseAction(s string) (timer.Action, error) {
	i, err := lookupName("action", s, timer.ActionNames())
	return timer.Action(i), err
}

// ParseFlag accepts the flag names and the short forms "ov", "a" and "b"
func ParseFlag(s string) (timer.Flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ov":
		return timer.FlagOverflow, nil
	case "a":
		return timer.FlagCompareA, nil
	case "b":
		return timer.FlagCompareB, nil
	}
	i, err := lookupName("flag", s, timer.FlagNames())
	return timer.Flag(i), err
}

func ParseChannel(s string) (timer.Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a":
		return timer.ChannelA, nil
	case "b":
		return timer.ChannelB, nil
	}
	return 0, fmt.Errorf("unknown channel %q (want a or b)", s)
}

// ParseBool accepts the usual on/off spellings
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "on", "irq", "true", "yes":
		return true, nil
	case "0", "off", "noirq", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on/off, got %q", s)
}
