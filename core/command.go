package core

import (
	"errors"
	"sync"
)

var (
	ErrUnknownCommand = errors.New("unknown command ID")
	ErrResponseOnly   = errors.New("command is a response")
)

// CommandHandler decodes its own arguments from data
type CommandHandler func(data *[]byte) error

// Command is one entry of the data dictionary. Responses (MCU -> host) have
// a nil Handler.
type Command struct {
	ID      uint16
	Name    string
	Format  string // argument format, e.g. "timer=%c prescale=%c"
	Handler CommandHandler
}

// Signature is the dictionary key of the command: its name followed by its
// argument format
func (c *Command) Signature() string {
	if c.Format == "" {
		return c.Name
	}
	return c.Name + " " + c.Format
}

// CommandRegistry assigns IDs in registration order
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
	nextID   uint16
}

var globalRegistry = NewCommandRegistry()

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// RegisterCommand adds a command to the global registry
func RegisterCommand(name string, format string, handler CommandHandler) uint16 {
	return globalRegistry.Register(name, format, handler)
}

// RegisterResponse adds a response message to the global registry
func RegisterResponse(name string, format string) uint16 {
	return globalRegistry.Register(name, format, nil)
}

// Register adds a command and returns its ID. Registering a name twice
// returns the first ID.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := r.nextID
	r.nextID++
	r.commands[id] = &Command{ID: id, Name: name, Format: format, Handler: handler}
	r.nameToID[name] = id
	return id
}

func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch runs the handler of cmdID
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok {
		return ErrUnknownCommand
	}
	if cmd.Handler == nil {
		return ErrResponseOnly
	}
	return cmd.Handler(data)
}

// GetCommandsAndResponses splits the registry into commands (host -> MCU)
// and responses, each keyed by signature
func (r *CommandRegistry) GetCommandsAndResponses() (map[string]int, map[string]int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make(map[string]int)
	responses := make(map[string]int)
	for id, cmd := range r.commands {
		if cmd.Handler != nil {
			commands[cmd.Signature()] = int(id)
		} else {
			responses[cmd.Signature()] = int(id)
		}
	}
	return commands, responses
}

// Reset forgets every command. Tests use it to rebuild the global registry.
func (r *CommandRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = make(map[uint16]*Command)
	r.nameToID = make(map[string]uint16)
	r.nextID = 0
}

// DispatchCommand dispatches through the global registry. It matches
// protocol.CommandHandler.
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

func GetGlobalRegistry() *CommandRegistry {
	return globalRegistry
}
