package core

import (
	"sync/atomic"

	"avrtimer/protocol"
)

// FirmwareState is the configuration handshake state reported by get_config
type FirmwareState struct {
	configCRC  uint32 // atomic
	isShutdown uint32 // atomic bool
}

var globalState = &FirmwareState{}

// InitCoreCommands registers the protocol commands every build carries.
// identify_response and identify must take IDs 0 and 1: the host bootstraps
// with those before it has read the dictionary.
func InitCoreCommands() {
	RegisterResponse("identify_response", "offset=%u data=%*s")
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify)

	RegisterCommand("get_config", "", handleGetConfig)
	RegisterCommand("config_reset", "", handleConfigReset)
	RegisterCommand("finalize_config", "crc=%u", handleFinalizeConfig)
	RegisterCommand("emergency_stop", "", handleEmergencyStop)

	RegisterResponse("config", "is_config=%c crc=%u is_shutdown=%c")
	RegisterResponse("is_shutdown", "")
}

func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	chunk := GetGlobalDictionary().GetChunk(offset, uint8(count))
	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func handleGetConfig(data *[]byte) error {
	crc := atomic.LoadUint32(&globalState.configCRC)
	SendResponse("config", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, boolArg(crc != 0))
		protocol.EncodeVLQUint(output, crc)
		protocol.EncodeVLQUint(output, boolArg(IsShutdown()))
	})
	return nil
}

// handleConfigReset forgets the configuration and leaves shutdown. Timers
// stay disabled until the host configures them again.
func handleConfigReset(data *[]byte) error {
	atomic.StoreUint32(&globalState.configCRC, 0)
	atomic.StoreUint32(&globalState.isShutdown, 0)
	return nil
}

func handleFinalizeConfig(data *[]byte) error {
	crc, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	atomic.StoreUint32(&globalState.configCRC, crc)
	return nil
}

func handleEmergencyStop(data *[]byte) error {
	TryShutdown("emergency stop")
	return nil
}

// TryShutdown stops every timer and refuses further timer configuration
// until config_reset
func TryShutdown(reason string) {
	atomic.StoreUint32(&globalState.isShutdown, 1)
	shutdownTimers()
	DebugPrintln("[SHUTDOWN] " + reason)
	DumpEvents()
}

func IsShutdown() bool {
	return atomic.LoadUint32(&globalState.isShutdown) != 0
}

// ResetFirmwareState is called when the host restarts its sequence
func ResetFirmwareState() {
	atomic.StoreUint32(&globalState.configCRC, 0)
	atomic.StoreUint32(&globalState.isShutdown, 0)
}

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// ResponseSender is the part of protocol.Transport used to answer commands
type ResponseSender interface {
	SendCommand(cmdID uint16, args func(output protocol.OutputBuffer))
}

var globalTransport ResponseSender

// SetGlobalTransport sets where SendResponse writes
func SetGlobalTransport(transport ResponseSender) {
	globalTransport = transport
}

// SendResponse encodes a registered response. Responses are registered at
// init, so an unknown name is a programming error and panics.
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) {
	if globalTransport == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(responseName)
	if !ok {
		panic("response not registered: " + responseName)
	}
	globalTransport.SendCommand(cmd.ID, args)
}
