//go:build !tinygo

package serial

import (
	"fmt"
	"sort"

	bugst "go.bug.st/serial"
)

// ListPorts returns the serial devices present on this machine, sorted.
// tarm/serial cannot enumerate ports, so this goes through go.bug.st/serial.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}
