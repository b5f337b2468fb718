package timer

// Disable stops the clock, zeroes the control registers and the count, and
// masks every interrupt of the instance and clears its pending flags. On chips
// with shared mask and flag registers only the instance's own bits change.
//
// Disable is idempotent.
func (c *Controller) Disable(id ID) Status {
	in, s := c.resolve(OpDisable, id)
	if s != StatusOK {
		return s
	}

	// clock first so the counter is frozen before it is zeroed
	update8(c.regs, in.Clock, in.ClockMask, 0)
	for _, a := range in.Control {
		c.regs.Store8(a, 0)
	}
	c.storeWide(in, in.Count, 0)

	if c.variant.SharedMask {
		update8(c.regs, in.Mask, in.interruptBits(), 0)
	} else {
		c.regs.Store8(in.Mask, 0)
	}
	// write-one-to-clear: other timers' flags in a shared TIFR are untouched
	c.regs.Store8(in.Flags, in.flagBits())
	return StatusOK
}

// DisableAll disables every timer the variant provides
func (c *Controller) DisableAll() {
	for _, id := range c.variant.Timers() {
		c.Disable(id)
	}
}
