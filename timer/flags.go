package timer

// GetFlag reports whether the event flag is set. The flag is not cleared.
// Unknown timers and events the instance cannot raise read as false.
func (c *Controller) GetFlag(id ID, f Flag) bool {
	in, s := c.resolve(OpGetFlag, id)
	if s != StatusOK {
		return false
	}
	bit, s := c.flagBit(OpGetFlag, in, f)
	if s != StatusOK {
		return false
	}
	return c.regs.Load8(in.Flags)&(1<<bit) != 0
}

// ClearFlag clears an event flag by writing a one to its bit. Only that bit
// is written: a read-modify-write would also clear every other pending flag
// sharing the register.
func (c *Controller) ClearFlag(id ID, f Flag) Status {
	in, s := c.resolve(OpClearFlag, id)
	if s != StatusOK {
		return s
	}
	bit, s := c.flagBit(OpClearFlag, in, f)
	if s != StatusOK {
		return s
	}
	c.regs.Store8(in.Flags, 1<<bit)
	return StatusOK
}

func (c *Controller) flagBit(op Op, in *Instance, f Flag) (uint8, Status) {
	if f > FlagCompareB {
		return 0, c.refuse(op, in.ID, StatusBadArgument)
	}
	bit, ok := in.flagBit(f)
	if !ok {
		return 0, c.refuse(op, in.ID, StatusUnsupported)
	}
	return bit, StatusOK
}
