package core

import (
	"errors"
	"testing"
)

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var called bool
	id := registry.Register("test_command", "arg=%u", func(data *[]byte) error {
		called = true
		return nil
	})
	if id != 0 {
		t.Errorf("Expected first command to have ID 0, got %d", id)
	}

	cmd, ok := registry.GetCommand(id)
	if !ok || cmd.Name != "test_command" {
		t.Fatalf("Failed to retrieve registered command: %v", cmd)
	}
	if cmd.Signature() != "test_command arg=%u" {
		t.Errorf("Unexpected signature %q", cmd.Signature())
	}

	var data []byte
	if err := registry.Dispatch(id, &data); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if !called {
		t.Error("Command handler was not called")
	}

	if err := registry.Dispatch(999, &data); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
}

func TestCommandRegistryMultiple(t *testing.T) {
	registry := NewCommandRegistry()

	id1 := registry.Register("command1", "arg1=%u", func(data *[]byte) error { return nil })
	id2 := registry.Register("command2", "arg2=%u", func(data *[]byte) error { return nil })
	id3 := registry.Register("command3", "", func(data *[]byte) error { return nil })

	if id1 != 0 || id2 != 1 || id3 != 2 {
		t.Errorf("Command IDs not sequential: %d, %d, %d", id1, id2, id3)
	}
	if again := registry.Register("command2", "other=%c", nil); again != id2 {
		t.Errorf("Re-registering returned %d, expected %d", again, id2)
	}
	if registry.Count() != 3 {
		t.Errorf("Expected 3 commands, got %d", registry.Count())
	}
}

func TestResponseDispatch(t *testing.T) {
	registry := NewCommandRegistry()
	id := registry.Register("some_response", "value=%u", nil)

	var data []byte
	if err := registry.Dispatch(id, &data); !errors.Is(err, ErrResponseOnly) {
		t.Errorf("Expected ErrResponseOnly, got %v", err)
	}

	commands, responses := registry.GetCommandsAndResponses()
	if len(commands) != 0 || responses["some_response value=%u"] != int(id) {
		t.Errorf("Unexpected split: %v / %v", commands, responses)
	}
}

func TestGetCommandByName(t *testing.T) {
	registry := NewCommandRegistry()
	registry.Register("a", "", nil)
	id := registry.Register("b", "x=%c", nil)

	cmd, ok := registry.GetCommandByName("b")
	if !ok || cmd.ID != id {
		t.Errorf("Lookup of b returned %v", cmd)
	}
	if _, ok := registry.GetCommandByName("c"); ok {
		t.Error("Lookup of unknown name succeeded")
	}
}

func TestItoa(t *testing.T) {
	tests := map[int]string{0: "0", 7: "7", -42: "-42", 65535: "65535"}
	for n, want := range tests {
		if got := itoa(n); got != want {
			t.Errorf("itoa(%d) = %q", n, got)
		}
	}
}
