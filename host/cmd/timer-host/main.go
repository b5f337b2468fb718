// Command timer-host drives the timer firmware from a terminal, over a
// serial port or against an in-process simulation.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"avrtimer/host/mcu"
	"avrtimer/host/serial"
	"avrtimer/host/simfw"
	"avrtimer/timer"
)

var (
	device  = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud    = flag.Int("baud", 250000, "Baud rate")
	sim     = flag.String("sim", "", "Run against a simulated chip (atmega8, atmega16, atmega328p)")
	verbose = flag.Bool("verbose", false, "Print the full dictionary on connect")
	list    = flag.Bool("list", false, "List serial ports and exit")
)

// errUsage marks a malformed REPL line
var errUsage = errors.New("usage")

type session struct {
	m  *mcu.MCU
	fw *simfw.Firmware
	v  *timer.Variant
}

func main() {
	flag.Parse()

	if *list {
		ports, err := serial.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	fmt.Println("AVR Timer Host")
	fmt.Println("==============")

	s := &session{m: mcu.NewMCU()}
	if err := s.connect(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer s.close()

	if err := s.m.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}
	v, err := s.m.Variant()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	s.v = v
	fmt.Printf("Connected to %s (%d timers)\n", v.Name, len(v.Timers()))
	if *verbose {
		s.m.PrintDictionary()
	}

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	if err := s.repl(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func (s *session) connect() error {
	if *sim != "" {
		v, ok := timer.VariantByName(*sim)
		if !ok {
			return fmt.Errorf("unknown chip %q", *sim)
		}
		s.fw = simfw.StartWithLog(v, os.Stderr, *verbose)
		s.m.ConnectPort(s.fw.Port())
		fmt.Printf("Simulating %s\n", v.Name)
		return nil
	}

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	fmt.Printf("Connecting to MCU on %s at %d baud...\n", cfg.Device, cfg.Baud)
	return s.m.ConnectWithConfig(cfg)
}

func (s *session) close() {
	s.m.Close()
	if s.fw != nil {
		s.fw.Close()
	}
}

func (s *session) repl(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" || args[0] == "q" {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		if err := s.run(out, args[0], args[1:]); err != nil {
			if errors.Is(err, errUsage) {
				fmt.Fprintf(out, "%v (type 'help')\n", err)
			} else {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		}
	}
	return scanner.Err()
}

func need(args []string, min, max int, usage string) error {
	if len(args) < min || len(args) > max {
		return fmt.Errorf("%w: %s", errUsage, usage)
	}
	return nil
}

// optBool parses an optional trailing irq argument
func optBool(args []string, i int) (bool, error) {
	if i >= len(args) {
		return false, nil
	}
	return mcu.ParseBool(args[i])
}

func (s *session) run(out io.Writer, cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		printHelp(out)

	case "normal":
		if err := need(args, 2, 3, "normal <timer> <prescale> [irq]"); err != nil {
			return err
		}
		id, err := mcu.ParseTimer(args[0])
		if err != nil {
			return err
		}
		p, err := mcu.ParsePrescale(args[1])
		if err != nil {
			return err
		}
		irq, err := optBool(args, 2)
		if err != nil {
			return err
		}
		return s.m.EnableNormalMode(id, p, irq)

	case "ctc":
		if err := need(args, 2, 2, "ctc <timer> <prescale>"); err != nil {
			return err
		}
		id, err := mcu.ParseTimer(args[0])
		if err != nil {
			return err
		}
		p, err := mcu.ParsePrescale(args[1])
		if err != nil {
			return err
		}
		return s.m.EnableCompareResetMode(id, p)

	case "compare":
		if err := need(args, 4, 5, "compare <timer> <a|b> <action> <value> [irq]"); err != nil {
			return err
		}
		id, err := mcu.ParseTimer(args[0])
		if err != nil {
			return err
		}
		ch, err := mcu.ParseChannel(args[1])
		if err != nil {
			return err
		}
		a, err := mcu.ParseAction(args[2])
		if err != nil {
			return err
		}
		value, err := strconv.ParseUint(args[3], 0, 16)
		if err != nil {
			return fmt.Errorf("bad compare value %q", args[3])
		}
		irq, err := optBool(args, 4)
		if err != nil {
			return err
		}
		return s.m.SetCompareChannel(id, ch, a, uint16(value), irq)

	case "flag", "clear":
		if err := need(args, 2, 2, cmd+" <timer> <flag>"); err != nil {
			return err
		}
		id, err := mcu.ParseTimer(args[0])
		if err != nil {
			return err
		}
		f, err := mcu.ParseFlag(args[1])
		if err != nil {
			return err
		}
		if cmd == "clear" {
			return s.m.ClearFlag(id, f)
		}
		set, err := s.m.GetFlag(id, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "timer%d %s: %v\n", id, f, set)

	case "disable":
		if err := need(args, 1, 1, "disable <timer|all>"); err != nil {
			return err
		}
		if args[0] == "all" {
			for _, id := range s.v.Timers() {
				if err := s.m.Disable(id); err != nil {
					return err
				}
			}
			return nil
		}
		id, err := mcu.ParseTimer(args[0])
		if err != nil {
			return err
		}
		return s.m.Disable(id)

	case "count":
		if err := need(args, 0, 1, "count [timer]"); err != nil {
			return err
		}
		ids := s.v.Timers()
		if len(args) == 1 {
			id, err := mcu.ParseTimer(args[0])
			if err != nil {
				return err
			}
			ids = []timer.ID{id}
		}
		for _, id := range ids {
			n, err := s.m.Count(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "timer%d: %d\n", id, n)
		}

	case "step":
		if s.fw == nil {
			return errors.New("step needs -sim")
		}
		if err := need(args, 1, 1, "step <cycles>"); err != nil {
			return err
		}
		n, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return fmt.Errorf("bad cycle count %q", args[0])
		}
		s.fw.Step(uint32(n))

	case "config":
		cfg, err := s.m.GetConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "is_config=%v crc=0x%08X is_shutdown=%v\n",
			cfg.IsConfig, cfg.CRC, cfg.IsShutdown)

	case "events":
		events, err := s.m.Events()
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(out, "No events recorded")
		}
		for _, ev := range events {
			fmt.Fprintln(out, ev)
		}

	case "estop":
		return s.m.EmergencyStop()

	case "reset":
		return s.m.ConfigReset()

	case "dict":
		s.m.PrintDictionary()

	case "raw":
		raw := s.m.GetDictionaryRaw()
		fmt.Fprintf(out, "Raw dictionary data (%d bytes):\n%s\n", len(raw), raw)

	case "send":
		if err := need(args, 1, 16, "send <command> [args...]"); err != nil {
			return err
		}
		vals := make([]uint32, 0, len(args)-1)
		for _, a := range args[1:] {
			v, err := strconv.ParseUint(a, 0, 32)
			if err != nil {
				return fmt.Errorf("bad argument %q", a)
			}
			vals = append(vals, uint32(v))
		}
		return s.m.SendCommand(args[0], vals...)

	default:
		return fmt.Errorf("%w: unknown command %s", errUsage, strings.ToLower(cmd))
	}
	return nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "\nAvailable commands:")
	fmt.Fprintln(out, "  normal <timer> <prescale> [irq]            - Free-running mode")
	fmt.Fprintln(out, "  ctc <timer> <prescale>                     - Clear counter on compare A match")
	fmt.Fprintln(out, "  compare <timer> <a|b> <action> <value> [irq] - Configure a compare channel")
	fmt.Fprintln(out, "  flag <timer> <overflow|compare_a|compare_b> - Read an event flag")
	fmt.Fprintln(out, "  clear <timer> <flag>                       - Clear an event flag")
	fmt.Fprintln(out, "  disable <timer|all>                        - Stop a timer")
	fmt.Fprintln(out, "  count [timer]                              - Read counters")
	fmt.Fprintln(out, "  step <cycles>                              - Advance the simulated clock")
	fmt.Fprintln(out, "  config                                     - Get MCU configuration")
	fmt.Fprintln(out, "  events                                     - Show recent timer commands")
	fmt.Fprintln(out, "  estop                                      - Emergency stop")
	fmt.Fprintln(out, "  reset                                      - Leave shutdown (config_reset)")
	fmt.Fprintln(out, "  dict                                       - Print dictionary summary")
	fmt.Fprintln(out, "  raw                                        - Print raw dictionary data")
	fmt.Fprintln(out, "  send <command> [args...]                   - Send any dictionary command")
	fmt.Fprintln(out, "  quit/exit/q                                - Exit the program")
	fmt.Fprintln(out)
}
