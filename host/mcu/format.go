package mcu

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"avrtimer/protocol"
)

var (
	ErrBadFormat     = errors.New("bad message format")
	ErrArgumentCount = errors.New("wrong argument count")
)

// Param is one argument of a message: "name=%type"
type Param struct {
	Name string
	Type string
}

// IsBytes reports whether the parameter is a length-prefixed buffer
func (p Param) IsBytes() bool {
	return p.Type == "%s" || p.Type == "%*s" || p.Type == "%.*s"
}

// isSigned covers the formats sent as two's complement
func (p Param) isSigned() bool {
	return p.Type == "%i" || p.Type == "%hi"
}

// MessageFormat is one parsed dictionary entry
type MessageFormat struct {
	ID     uint16
	Name   string
	Params []Param
}

// ParseFormat splits a dictionary signature such as
// "hwtimer_state timer=%c count=%hu"
func ParseFormat(sig string, id int) (*MessageFormat, error) {
	fields := strings.Fields(sig)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty signature", ErrBadFormat)
	}
	if id < 0 || id > 0xFFFF {
		return nil, fmt.Errorf("%w: id %d out of range", ErrBadFormat, id)
	}

	f := &MessageFormat{ID: uint16(id), Name: fields[0]}
	for _, field := range fields[1:] {
		name, typ, ok := strings.Cut(field, "=")
		if !ok || name == "" || !strings.HasPrefix(typ, "%") {
			return nil, fmt.Errorf("%w: %q in %q", ErrBadFormat, field, sig)
		}
		f.Params = append(f.Params, Param{Name: name, Type: typ})
	}
	return f, nil
}

// CheckArgs verifies args can be encoded for this message
func (f *MessageFormat) CheckArgs(args []uint32) error {
	if len(args) != len(f.Params) {
		return fmt.Errorf("%s: %w: got %d, want %d", f.Name, ErrArgumentCount, len(args), len(f.Params))
	}
	for _, p := range f.Params {
		if p.IsBytes() {
			return fmt.Errorf("%s: %w: %s is a buffer", f.Name, ErrBadFormat, p.Name)
		}
	}
	return nil
}

// EncodeArgs writes the integer arguments in order. The message ID is
// written by the transport.
func (f *MessageFormat) EncodeArgs(output protocol.OutputBuffer, args []uint32) error {
	if err := f.CheckArgs(args); err != nil {
		return err
	}
	for _, a := range args {
		protocol.EncodeVLQUint(output, a)
	}
	return nil
}

// Response is a decoded message. Integer parameters are in Values, buffer
// parameters in Bytes.
type Response struct {
	Name   string
	Values map[string]int64
	Bytes  map[string][]byte
}

// Value returns an integer parameter, 0 when absent
func (r *Response) Value(name string) int64 {
	return r.Values[name]
}

func (r *Response) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	for _, k := range sortedKeys(r.Values) {
		fmt.Fprintf(&b, " %s=%d", k, r.Values[k])
	}
	for _, k := range sortedKeys(r.Bytes) {
		fmt.Fprintf(&b, " %s=%q", k, r.Bytes[k])
	}
	return b.String()
}

// Decode reads the parameters following the message ID
func (f *MessageFormat) Decode(data *[]byte) (*Response, error) {
	r := &Response{Name: f.Name, Values: map[string]int64{}, Bytes: map[string][]byte{}}
	for _, p := range f.Params {
		if p.IsBytes() {
			b, err := protocol.DecodeVLQBytes(data)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", f.Name, p.Name, err)
			}
			r.Bytes[p.Name] = append([]byte(nil), b...)
			continue
		}

		v, err := protocol.DecodeVLQInt(data)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", f.Name, p.Name, err)
		}
		if p.isSigned() {
			r.Values[p.Name] = int64(v)
		} else {
			r.Values[p.Name] = int64(uint32(v))
		}
	}
	return r, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
