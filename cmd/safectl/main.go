// Command safectl is a host-side console for a board running the pin
// manager firmware. It speaks the framed command protocol over the board's
// command UART: emergency stop, zone isolation, safe-mode clear and status.
//
// Usage:
//
//	safectl [flags]
//
// Flags:
//
//	-device string   Serial device (default /dev/ttyUSB0)
//	-baud int        Baud rate (default 115200)
//	-config string   YAML config file with device/baud defaults
//	-c string        Run a single command and exit (e.g. -c "estop lid open")
//
// Interactive Commands:
//
//	estop [reason...]    - Global emergency stop
//	clear <source>       - Exit global safe mode (source is recorded)
//	zone <name> on|off   - Isolate / release one subzone
//	status               - Dump the reservation table and safe-mode state
//	ping                 - Link check
//	quit                 - Exit
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/tarm/serial"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML config ("~/.safectl.yaml" style).
type fileConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
	Source string `yaml:"source"`
}

func main() {
	var (
		device  = flag.String("device", "", "serial device")
		baud    = flag.Int("baud", 0, "baud rate")
		cfgPath = flag.String("config", "", "YAML config file")
		oneShot = flag.String("c", "", "run a single command and exit")
	)
	flag.Parse()

	cfg := fileConfig{Device: "/dev/ttyUSB0", Baud: 115200, Source: "safectl"}
	if *cfgPath != "" {
		raw, err := os.ReadFile(*cfgPath)
		if err != nil {
			fatal("read config: %v", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			fatal("parse config: %v", err)
		}
	}
	if *device != "" {
		cfg.Device = *device
	}
	if *baud != 0 {
		cfg.Baud = *baud
	}

	port, err := serial.OpenPort(&serial.Config{Name: cfg.Device, Baud: cfg.Baud})
	if err != nil {
		fatal("open %s: %v", cfg.Device, err)
	}
	defer port.Close()

	s := newSession(port, cfg.Source)

	if *oneShot != "" {
		if err := s.exec(os.Stdout, *oneShot); err != nil {
			fatal("%v", err)
		}
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "safectl> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fatal("readline: %v", err)
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "connected to %s @ %d\n", cfg.Device, cfg.Baud)
	printHelp(rl.Stdout())

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(rl.Stdout(), "bye")
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		if line == "help" || line == "?" {
			printHelp(rl.Stdout())
			continue
		}
		if err := s.exec(rl.Stdout(), line); err != nil {
			fmt.Fprintln(rl.Stderr(), "error:", err)
		}
	}
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `commands:
  estop [reason...]    global emergency stop
  clear [source]       exit global safe mode
  zone <name> on|off   isolate / release one subzone
  status               reservation table and safe-mode state
  ping                 link check
  quit                 exit
`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
