package timer

// SetCompareChannelA configures output-compare channel A. In compare-reset
// mode its threshold is the counter's top.
func (c *Controller) SetCompareChannelA(id ID, a Action, threshold uint16, irq bool) Status {
	return c.SetCompareChannel(id, ChannelA, a, threshold, irq)
}

// SetCompareChannelB configures output-compare channel B. Instances without
// a channel B are left untouched and StatusUnsupported is returned.
func (c *Controller) SetCompareChannelB(id ID, a Action, threshold uint16, irq bool) Status {
	return c.SetCompareChannel(id, ChannelB, a, threshold, irq)
}

// SetCompareChannel sets the pin action, writes the threshold at the
// instance's width and enables the match interrupt iff irq is set. Unrelated
// bits of the shared control register are preserved.
func (c *Controller) SetCompareChannel(id ID, ch Channel, a Action, threshold uint16, irq bool) Status {
	op := OpSetCompareA
	if ch == ChannelB {
		op = OpSetCompareB
	}
	in, s := c.resolve(op, id)
	if s != StatusOK {
		return s
	}
	if a > ActionSet {
		return c.refuse(op, id, StatusBadArgument)
	}
	cd, ok := in.channel(ch)
	if !ok {
		return c.refuse(op, id, StatusUnsupported)
	}

	update8(c.regs, cd.Control, comField<<cd.Shift, uint8(a)<<cd.Shift)
	c.storeWide(in, cd.Compare, threshold)
	setBit(c.regs, in.Mask, cd.IntBit, irq)
	return StatusOK
}
