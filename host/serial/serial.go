// Package serial opens the host end of the firmware's UART link
package serial

import "io"

// Port is a byte link to the firmware. Besides the native port, tests and
// the simulator hand the MCU connection an in-memory pipe.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data not yet read or written
	Flush() error
}

type Config struct {
	// Device path (e.g. "/dev/ttyUSB0", "COM3")
	Device string

	Baud int

	// Read timeout in milliseconds. A timeout lets the reader notice Close.
	ReadTimeout int
}

// DefaultConfig matches the firmware's UART setup
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100,
	}
}
