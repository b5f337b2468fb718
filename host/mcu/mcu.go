// Package mcu is the host side of a connection to the timer firmware
package mcu

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"avrtimer/host/serial"
	"avrtimer/protocol"
	"avrtimer/timer"
)

var (
	ErrNotConnected   = errors.New("not connected to MCU")
	ErrNoDictionary   = errors.New("dictionary not loaded")
	ErrUnknownMessage = errors.New("unknown message")
	ErrShutdown       = errors.New("MCU is shut down")
)

// Bootstrap IDs, fixed before the dictionary is known
const (
	identifyResponseID = 0
	identifyID         = 1
	identifyChunk      = 40
)

const DefaultResponseTimeout = time.Second

// MCU is a connection to one firmware instance
type MCU struct {
	transport *protocol.HostTransport
	out       io.Writer

	dictionary     *Dictionary
	dictionaryData []byte
	commands       map[string]*MessageFormat
	responses      map[uint16]*MessageFormat

	// filled by the reader goroutine
	mu       sync.Mutex
	refusals []*StatusError
	shutdown bool
	events   []TimerEvent

	connected bool
}

// Dictionary is the parsed identify data
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`
}

func NewMCU() *MCU {
	return &MCU{out: os.Stdout}
}

// SetOutput redirects progress messages
func (m *MCU) SetOutput(w io.Writer) {
	m.out = w
}

func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	m.ConnectPort(port)

	// an AVR resets when the port opens; let the bootloader hand over
	time.Sleep(2 * time.Second)
	return nil
}

// ConnectPort uses an already open link
func (m *MCU) ConnectPort(port io.ReadWriteCloser) {
	m.transport = protocol.NewHostTransport(port)
	m.transport.SetResponseHandler(m.handleResponse)
	m.connected = true
}

func (m *MCU) Close() error {
	m.connected = false
	if m.transport == nil {
		return nil
	}
	return m.transport.Close()
}

func (m *MCU) IsConnected() bool {
	return m.connected
}

// RetrieveDictionary reads the dictionary with identify, decompresses and
// parses it
func (m *MCU) RetrieveDictionary() error {
	if !m.connected {
		return ErrNotConnected
	}

	fmt.Fprintln(m.out, "Retrieving dictionary from MCU...")
	var buf bytes.Buffer
	for {
		chunk, err := m.sendIdentify(uint32(buf.Len()), identifyChunk)
		if err != nil {
			return fmt.Errorf("dictionary chunk at offset %d: %w", buf.Len(), err)
		}
		buf.Write(chunk)
		if len(chunk) < identifyChunk {
			break
		}
	}

	data := buf.Bytes()
	if len(data) > 0 && data[0] == 0x78 {
		plain, err := decompress(data)
		if err != nil {
			return fmt.Errorf("decompress dictionary: %w", err)
		}
		fmt.Fprintf(m.out, "Dictionary decompressed: %d -> %d bytes\n", len(data), len(plain))
		data = plain
	}
	m.dictionaryData = data

	return m.parseDictionary()
}

func decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (m *MCU) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	m.transport.DiscardResponses()
	err := m.transport.SendCommand(identifyID, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(count))
	})
	if err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}

	resp, err := m.transport.ReceiveResponse(DefaultResponseTimeout)
	if err != nil {
		return nil, fmt.Errorf("identify_response: %w", err)
	}

	payload := resp.Payload
	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("identify_response id: %w", err)
	}
	if cmdID != identifyResponseID {
		return nil, fmt.Errorf("%w: id %d while waiting for identify_response", ErrUnknownMessage, cmdID)
	}
	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("identify_response offset: %w", err)
	}
	if respOffset != offset {
		return nil, fmt.Errorf("identify_response offset %d, expected %d", respOffset, offset)
	}
	data, err := protocol.DecodeVLQBytes(&payload)
	if err != nil {
		return nil, fmt.Errorf("identify_response data: %w", err)
	}
	return append([]byte(nil), data...), nil
}

// parseDictionary builds the command and response tables
func (m *MCU) parseDictionary() error {
	dict := &Dictionary{}
	if err := json.Unmarshal(m.dictionaryData, dict); err != nil {
		return fmt.Errorf("parse dictionary: %w", err)
	}

	commands := make(map[string]*MessageFormat, len(dict.Commands))
	for sig, id := range dict.Commands {
		f, err := ParseFormat(sig, id)
		if err != nil {
			return err
		}
		commands[f.Name] = f
	}
	responses := make(map[uint16]*MessageFormat, len(dict.Responses))
	for sig, id := range dict.Responses {
		f, err := ParseFormat(sig, id)
		if err != nil {
			return err
		}
		responses[f.ID] = f
	}

	m.mu.Lock()
	m.dictionary = dict
	m.commands = commands
	m.responses = responses
	m.mu.Unlock()
	return nil
}

func (m *MCU) responseFormat(id uint16) (*MessageFormat, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.responses[id]
	return f, ok
}

// handleResponse runs on the transport's reader before the response is
// queued. It records refusals so the command that caused them can report
// them once acknowledged.
func (m *MCU) handleResponse(cmdID uint16, data *[]byte) error {
	f, ok := m.responseFormat(cmdID)
	if !ok {
		return nil
	}
	switch f.Name {
	case "hwtimer_status":
		r, err := f.Decode(data)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.refusals = append(m.refusals, &StatusError{
			Op:     timer.Op(r.Value("op")),
			Timer:  timer.ID(r.Value("timer")),
			Status: timer.Status(r.Value("status")),
		})
		m.mu.Unlock()
	case "is_shutdown":
		m.mu.Lock()
		m.shutdown = true
		m.mu.Unlock()
	case "hwtimer_event":
		r, err := f.Decode(data)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.events = append(m.events, TimerEvent{
			Op:     timer.Op(r.Value("op")),
			Timer:  timer.ID(r.Value("timer")),
			Status: timer.Status(r.Value("status")),
			Arg:    uint16(r.Value("arg")),
		})
		m.mu.Unlock()
	}
	return nil
}

// takeRefusals returns and clears what handleResponse recorded
func (m *MCU) takeRefusals() ([]*StatusError, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, s := m.refusals, m.shutdown
	m.refusals, m.shutdown = nil, false
	return r, s
}

func (m *MCU) GetDictionary() *Dictionary {
	return m.dictionary
}

func (m *MCU) GetDictionaryRaw() []byte {
	return m.dictionaryData
}

// Variant resolves the chip the firmware was built for
func (m *MCU) Variant() (*timer.Variant, error) {
	if m.dictionary == nil {
		return nil, ErrNoDictionary
	}
	name := m.dictionary.Config["MCU"]
	v, ok := timer.VariantByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: MCU %q", ErrUnknownMessage, name)
	}
	return v, nil
}

// SendCommand sends a command by name and waits for its ack
func (m *MCU) SendCommand(name string, args ...uint32) error {
	if !m.connected {
		return ErrNotConnected
	}
	if m.dictionary == nil {
		return ErrNoDictionary
	}
	f, ok := m.commands[name]
	if !ok {
		return fmt.Errorf("%w: command %s", ErrUnknownMessage, name)
	}
	if err := f.CheckArgs(args); err != nil {
		return err
	}
	return m.transport.SendCommand(f.ID, func(output protocol.OutputBuffer) {
		_ = f.EncodeArgs(output, args)
	})
}

// Query sends a command and returns the first response named respName
func (m *MCU) Query(name string, args []uint32, respName string) (*Response, error) {
	if !m.connected {
		return nil, ErrNotConnected
	}
	m.transport.DiscardResponses()
	m.takeRefusals()
	if err := m.SendCommand(name, args...); err != nil {
		return nil, err
	}

	// replies are queued before the ack, so once the queue is empty a
	// refusal is final
	deadline := time.Now().Add(DefaultResponseTimeout)
	for {
		msg, ok := m.transport.TryReceiveResponse()
		if !ok {
			if err := m.refusalError(); err != nil {
				return nil, err
			}
			var err error
			msg, err = m.transport.ReceiveResponse(time.Until(deadline))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", respName, err)
			}
		}

		payload := msg.Payload
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, err
		}
		f, ok := m.responseFormat(uint16(id))
		if !ok || f.Name != respName {
			continue
		}
		return f.Decode(&payload)
	}
}

// exec sends a command and turns a refusal reported alongside its ack into
// an error
func (m *MCU) exec(name string, args ...uint32) error {
	m.takeRefusals()
	if err := m.SendCommand(name, args...); err != nil {
		return err
	}
	return m.refusalError()
}

func (m *MCU) refusalError() error {
	refusals, shutdown := m.takeRefusals()
	if shutdown {
		return ErrShutdown
	}
	if len(refusals) > 0 {
		return refusals[0]
	}
	return nil
}

// PrintDictionary writes a summary of the dictionary
func (m *MCU) PrintDictionary() {
	if m.dictionary == nil {
		fmt.Fprintln(m.out, "No dictionary loaded")
		return
	}
	d := m.dictionary

	fmt.Fprintln(m.out, "\n=== MCU Dictionary ===")
	fmt.Fprintf(m.out, "Version: %s\n", d.Version)
	fmt.Fprintf(m.out, "Build: %s\n", d.BuildVersions)

	fmt.Fprintln(m.out, "\nConfig:")
	for _, k := range sortedKeys(d.Config) {
		fmt.Fprintf(m.out, "  %s = %s\n", k, d.Config[k])
	}
	fmt.Fprintf(m.out, "\nCommands (%d):\n", len(d.Commands))
	for _, sig := range sortedKeys(d.Commands) {
		fmt.Fprintf(m.out, "  [%d] %s\n", d.Commands[sig], sig)
	}
	fmt.Fprintf(m.out, "\nResponses (%d):\n", len(d.Responses))
	for _, sig := range sortedKeys(d.Responses) {
		fmt.Fprintf(m.out, "  [%d] %s\n", d.Responses[sig], sig)
	}
	if len(d.Enumerations) > 0 {
		fmt.Fprintf(m.out, "\nEnumerations (%d):\n", len(d.Enumerations))
		for _, name := range sortedKeys(d.Enumerations) {
			fmt.Fprintf(m.out, "  %s: %d values\n", name, len(d.Enumerations[name]))
		}
	}
	fmt.Fprintln(m.out, "======================")
}
