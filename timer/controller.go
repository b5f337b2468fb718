package timer

// AssertFunc observes operations that did not complete. The command layer
// uses it to report refusals to the host.
type AssertFunc func(op Op, id ID, s Status)

// Controller maps logical timer operations onto the registers of one chip
// variant. It keeps no state of its own: two controllers over the same
// register file see the same timers.
//
// Operations never block. None of them masks interrupts: if an interrupt
// handler touches the same control or mask register, the caller must make
// the call atomic (see core.Critical).
type Controller struct {
	variant *Variant
	regs    RegisterFile
	assert  AssertFunc
}

// New creates a controller for variant v writing to regs
func New(v *Variant, regs RegisterFile) *Controller {
	return &Controller{variant: v, regs: regs}
}

// Variant returns the chip variant the controller was built for
func (c *Controller) Variant() *Variant {
	return c.variant
}

// SetAssert installs fn to be called whenever an operation is refused
func (c *Controller) SetAssert(fn AssertFunc) {
	c.assert = fn
}

// resolve looks the instance up once per call
func (c *Controller) resolve(op Op, id ID) (*Instance, Status) {
	in, ok := c.variant.Lookup(id)
	if !ok {
		return nil, c.refuse(op, id, StatusUnknownTimer)
	}
	return in, StatusOK
}

func (c *Controller) refuse(op Op, id ID, s Status) Status {
	if c.assert != nil {
		c.assert(op, id, s)
	}
	return s
}

// storeWide writes a count or compare register at the instance's width.
// Values wider than an 8-bit instance are truncated.
func (c *Controller) storeWide(in *Instance, a Addr, v uint16) {
	if in.Width == Width16 {
		store16(c.regs, a, v)
		return
	}
	c.regs.Store8(a, uint8(v))
}

func (c *Controller) loadWide(in *Instance, a Addr) uint16 {
	if in.Width == Width16 {
		return load16(c.regs, a)
	}
	return uint16(c.regs.Load8(a))
}

// Count reads the live counter value
func (c *Controller) Count(id ID) (uint16, Status) {
	in, s := c.resolve(OpCount, id)
	if s != StatusOK {
		return 0, s
	}
	return c.loadWide(in, in.Count), StatusOK
}
