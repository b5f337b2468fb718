package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"avrtimer/host/mcu"
	"avrtimer/host/simfw"
	"avrtimer/timer"
)

func newSimSession(t *testing.T) *session {
	t.Helper()
	fw := simfw.Start(timer.ATmega328P)
	m := mcu.NewMCU()
	m.SetOutput(io.Discard)
	m.ConnectPort(fw.Port())
	s := &session{m: m, fw: fw, v: timer.ATmega328P}
	t.Cleanup(s.close)
	if err := m.RetrieveDictionary(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestREPL(t *testing.T) {
	s := newSimSession(t)

	script := strings.Join([]string{
		"compare t0 a toggle 100 irq",
		"normal timer0 1",
		"step 150",
		"count 0",
		"flag 0 compare_a",
		"clear 0 a",
		"flag 0 a",
		"ctc 0 8 extra",
		"bogus",
		`send "hwtimer_disable" 0`,
		"events",
		"quit",
		"count 0",
	}, "\n")

	var out bytes.Buffer
	if err := s.repl(strings.NewReader(script), &out); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"timer0: 150\n",
		"timer0 compare_a: true\n",
		"timer0 compare_a: false\n",
		"usage: ctc <timer> <prescale>",
		"usage: unknown command bogus",
		"disable timer=0 arg=0 status=ok\n",
		"Goodbye!",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, out.String())
		}
	}
	if strings.Count(out.String(), "timer0: ") != 1 {
		t.Error("Commands after quit were run")
	}
}

func TestREPLRefusal(t *testing.T) {
	s := newSimSession(t)

	var out bytes.Buffer
	s.repl(strings.NewReader("normal 1 32\n"), &out)
	if !strings.Contains(out.String(), "Error: enable_normal on timer 1: bad prescale") {
		t.Errorf("Expected a refusal, got:\n%s", out.String())
	}
}
