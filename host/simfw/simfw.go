// Package simfw runs the timer firmware in-process: the real command layer
// and transport over a pipe, with a simulated register file in place of the
// chip.
package simfw

import (
	"fmt"
	"io"
	"net"
	"runtime"

	"avrtimer/core"
	"avrtimer/protocol"
	"avrtimer/timer"
)

// Firmware is a running simulated MCU
type Firmware struct {
	sim  *timer.Sim
	host net.Conn
	conn net.Conn
	done chan struct{}
}

// Start builds the command tables for v and serves them. The command layer
// is global, so only one Firmware may run per process at a time.
func Start(v *timer.Variant) *Firmware {
	return StartWithLog(v, nil, false)
}

// StartWithLog is Start with the firmware's debug output written to log, one
// line per message. Shutdown event dumps always reach log; other debug lines
// only when verbose is set. A nil log discards everything.
func StartWithLog(v *timer.Variant, log io.Writer, verbose bool) *Firmware {
	core.GetGlobalRegistry().Reset()
	core.GetGlobalDictionary().Reset()
	core.ResetFirmwareState()
	core.ClearEvents()

	core.SetDebugWriter(nil)
	core.SetDebugEnabled(false)
	if log != nil {
		core.SetDebugWriter(func(s string) { fmt.Fprintln(log, s) })
		core.SetDebugEnabled(verbose)
	}

	core.InitCoreCommands()
	core.InitTimerCommands()
	sim := timer.NewSim(v)
	core.SetTimerController(timer.New(v, sim))
	core.GetGlobalDictionary().SetBuildVersions("simfw " + v.Name + " " + runtime.Version())
	core.GetGlobalDictionary().BuildDictionary()

	hostEnd, fwEnd := net.Pipe()
	f := &Firmware{sim: sim, host: hostEnd, conn: fwEnd, done: make(chan struct{})}
	go f.serve()
	return f
}

// Port is the host end of the link
func (f *Firmware) Port() io.ReadWriteCloser {
	return f.host
}

func (f *Firmware) serve() {
	defer close(f.done)

	out := protocol.NewScratchOutput()
	tr := protocol.NewTransport(out, core.DispatchCommand)
	tr.SetResetCallback(core.ResetFirmwareState)
	core.SetGlobalTransport(tr)
	defer core.SetGlobalTransport(nil)

	in := protocol.NewFifoBuffer(protocol.MessageMax)
	buf := make([]byte, 64)
	for {
		n, err := f.conn.Read(buf)
		if err != nil {
			return
		}
		in.Write(buf[:n])
		tr.Receive(in)
		if len(out.Result()) > 0 {
			if _, err := f.conn.Write(out.Result()); err != nil {
				return
			}
			out.Reset()
		}
	}
}

// Step advances the simulated timers by cycles CPU cycles
func (f *Firmware) Step(cycles uint32) {
	core.Critical(func() { f.sim.Step(cycles) })
}

// Raise sets an event flag as the hardware would
func (f *Firmware) Raise(id timer.ID, fl timer.Flag) {
	core.Critical(func() { f.sim.Raise(id, fl) })
}

// Peek reads a simulated register without side effects
func (f *Firmware) Peek(a timer.Addr) uint8 {
	var v uint8
	core.Critical(func() { v = f.sim.Peek(a) })
	return v
}

// Close stops the firmware. The host end is closed too.
func (f *Firmware) Close() error {
	err := f.conn.Close()
	<-f.done
	f.host.Close()
	return err
}
