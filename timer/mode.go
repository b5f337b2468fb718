package timer

// EnableNormalMode restarts the timer free-running from zero, wrapping at the
// counter's maximum. The overflow interrupt is enabled iff irq is set.
// Selecting a clock other than PrescaleDisable starts counting immediately.
//
// Configure compare channels before calling this: once the clock runs, the
// channels act on whatever threshold their registers hold.
func (c *Controller) EnableNormalMode(id ID, p Prescale, irq bool) Status {
	in, s := c.resolve(OpEnableNormal, id)
	if s != StatusOK {
		return s
	}
	cs, ok := in.clockSelect(p)
	if !ok {
		return c.refuse(OpEnableNormal, id, StatusBadPrescale)
	}

	c.enterMode(in, nil)
	setBit(c.regs, in.Mask, in.OverflowInt, irq)
	c.startClock(in, cs)
	return StatusOK
}

// EnableCompareResetMode restarts the timer from zero counting up to the
// channel A threshold, where it resets. Instances without this mode are
// left untouched and StatusUnsupported is returned.
func (c *Controller) EnableCompareResetMode(id ID, p Prescale) Status {
	in, s := c.resolve(OpEnableCompareReset, id)
	if s != StatusOK {
		return s
	}
	if !in.SupportsCompareReset() {
		return c.refuse(OpEnableCompareReset, id, StatusUnsupported)
	}
	cs, ok := in.clockSelect(p)
	if !ok {
		return c.refuse(OpEnableCompareReset, id, StatusBadPrescale)
	}

	c.enterMode(in, in.CompareResetBits)
	c.startClock(in, cs)
	return StatusOK
}

// enterMode stops the clock, replaces the mode bits and zeroes the count.
// A nil bits slice selects normal mode.
func (c *Controller) enterMode(in *Instance, bits []uint8) {
	update8(c.regs, in.Clock, in.ClockMask, 0)
	for i, a := range in.Control {
		var set uint8
		if bits != nil {
			set = bits[i]
		}
		update8(c.regs, a, in.ModeMask[i], set)
	}
	c.storeWide(in, in.Count, 0)
}

func (c *Controller) startClock(in *Instance, cs uint8) {
	update8(c.regs, in.Clock, in.ClockMask, cs&in.ClockMask)
}
