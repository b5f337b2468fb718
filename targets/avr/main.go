//go:build tinygo && avr

package main

import (
	"machine"
	"runtime"

	"avrtimer/core"
	"avrtimer/protocol"
	"avrtimer/timer"
)

// baudRate matches the host's serial default
const baudRate = 250000

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	uart = machine.Serial

	// version overrides the dictionary version:
	// tinygo build -ldflags "-X main.version=..."
	version string

	// Debug counters
	messagesReceived uint32
	msgerrors        uint32
)

func main() {
	uart.Configure(machine.UARTConfig{BaudRate: baudRate})

	core.InitCoreCommands()
	core.InitTimerCommands()

	// every timer starts stopped, whatever the bootloader left behind
	ctl := timer.New(chip, timer.MMIO{})
	ctl.DisableAll()
	core.SetTimerController(ctl)

	// The UART carries the protocol, so there is no debug writer; the host
	// reads the event ring with hwtimer_events instead.
	dict := core.GetGlobalDictionary()
	if version != "" {
		dict.SetVersion(version)
	}
	dict.SetBuildVersions("tinygo " + runtime.Version() + " " + chip.Name)

	// Build and cache dictionary after all commands registered
	dict.BuildDictionary()

	// kept small for the AVR SRAM
	inputBuffer = protocol.NewFifoBuffer(128)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, core.DispatchCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
		core.ResetFirmwareState()
	})
	// the host waits for the ack before it sends anything else
	transport.SetFlushCallback(writeUART)
	core.SetGlobalTransport(transport)

	for {
		pollOnce()
	}
}

// pollOnce moves received bytes into the FIFO, runs complete blocks and
// writes any replies
func pollOnce() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			inputBuffer.Reset()
			outputBuffer.Reset()
		}
	}()

	for uart.Buffered() > 0 && inputBuffer.Free() > 0 {
		b, err := uart.ReadByte()
		if err != nil {
			msgerrors++
			break
		}
		inputBuffer.Write([]byte{b})
	}

	if inputBuffer.Available() > 0 {
		data := inputBuffer.Data()
		originalLen := len(data)
		in := protocol.NewSliceInputBuffer(data)
		transport.Receive(in)
		messagesReceived++

		if consumed := originalLen - in.Available(); consumed > 0 {
			inputBuffer.Pop(consumed)
		}
	}

	writeUART()
}

// writeUART sends everything queued in the output buffer
func writeUART() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}
	if _, err := uart.Write(result); err != nil {
		msgerrors++
	}
	outputBuffer.Reset()
}
