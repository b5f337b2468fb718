package mcu

import (
	"errors"
	"testing"

	"avrtimer/protocol"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("hwtimer_set_compare timer=%c channel=%c action=%c value=%hu irq=%c", 9)
	if err != nil {
		t.Fatal(err)
	}
	if f.ID != 9 || f.Name != "hwtimer_set_compare" || len(f.Params) != 5 {
		t.Fatalf("Unexpected format %+v", f)
	}
	if f.Params[3] != (Param{"value", "%hu"}) {
		t.Errorf("Unexpected value param %+v", f.Params[3])
	}

	for _, bad := range []string{"", "cmd arg", "cmd =%c", "cmd arg=c"} {
		if _, err := ParseFormat(bad, 1); !errors.Is(err, ErrBadFormat) {
			t.Errorf("ParseFormat(%q): expected ErrBadFormat, got %v", bad, err)
		}
	}
}

func TestDecodeResponse(t *testing.T) {
	f, _ := ParseFormat("identify_response offset=%u data=%*s", 0)
	out := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(out, 40)
	protocol.EncodeVLQBytes(out, []byte("chunk"))

	data := out.Result()
	r, err := f.Decode(&data)
	if err != nil {
		t.Fatal(err)
	}
	if r.Value("offset") != 40 || string(r.Bytes["data"]) != "chunk" {
		t.Errorf("Unexpected response %s", r)
	}
}

func TestDecodeSigned(t *testing.T) {
	f, _ := ParseFormat("sample a=%i b=%u", 3)
	out := protocol.NewScratchOutput()
	protocol.EncodeVLQInt(out, -5)
	protocol.EncodeVLQUint(out, 0xFFFFFFFF)

	data := out.Result()
	r, err := f.Decode(&data)
	if err != nil {
		t.Fatal(err)
	}
	if r.Value("a") != -5 || r.Value("b") != 0xFFFFFFFF {
		t.Errorf("Unexpected values %v", r.Values)
	}
	if r.String() != "sample a=-5 b=4294967295" {
		t.Errorf("Unexpected String() %q", r.String())
	}

	data = []byte{}
	if _, err := f.Decode(&data); !errors.Is(err, protocol.ErrBufferTooSmall) {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}
}

func TestEncodeArgs(t *testing.T) {
	f, _ := ParseFormat("hwtimer_normal timer=%c prescale=%c irq=%c", 4)
	out := protocol.NewScratchOutput()
	if err := f.EncodeArgs(out, []uint32{1, 2}); !errors.Is(err, ErrArgumentCount) {
		t.Errorf("Expected ErrArgumentCount, got %v", err)
	}
	if err := f.EncodeArgs(out, []uint32{1, 2, 1}); err != nil {
		t.Fatal(err)
	}
	if string(out.Result()) != "\x01\x02\x01" {
		t.Errorf("Unexpected encoding %X", out.Result())
	}

	bytesFmt, _ := ParseFormat("identify_response offset=%u data=%*s", 0)
	if err := bytesFmt.CheckArgs([]uint32{0, 0}); !errors.Is(err, ErrBadFormat) {
		t.Errorf("Expected ErrBadFormat for buffer argument, got %v", err)
	}
}
