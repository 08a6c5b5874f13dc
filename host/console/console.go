// Package console implements the interactive user-config terminal for
// the receiver: configuration messages are entered as text, validated,
// transmitted, and acknowledged or rejected with a readable diagnostic.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"

	"navcore/m8q"
	"navcore/protocol"
)

// Console drives one receiver from a line-oriented terminal.
type Console struct {
	dev *m8q.Device
	in  io.Reader
	out io.Writer
}

// New creates a console bound to dev, reading commands from in and
// writing results to out.
func New(dev *m8q.Device, in io.Reader, out io.Writer) *Console {
	return &Console{dev: dev, in: in, out: out}
}

// Run processes commands until EOF or "quit".
func (c *Console) Run() error {
	fmt.Fprintln(c.out, "M8Q config console (type 'help' for commands)")
	scanner := bufio.NewScanner(c.in)

	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		args, err := shlex.Split(line)
		if err != nil {
			fmt.Fprintf(c.out, "parse error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		if args[0] == "quit" || args[0] == "exit" {
			return scanner.Err()
		}
		c.dispatch(args)
	}
	return scanner.Err()
}

func (c *Console) dispatch(args []string) {
	switch args[0] {
	case "help":
		c.printHelp()

	case "send":
		if len(args) != 2 {
			fmt.Fprintln(c.out, "usage: send <config-line>")
			return
		}
		c.sendConfig(args[1])

	case "read":
		c.readOne()

	case "fix":
		c.printFix()

	case "status":
		fix := c.dev.Fix()
		fmt.Fprintf(c.out, "navstat=%s satellites=%d ack=%d nak=%d\n",
			orDash(fix.NavStatus), c.dev.Satellites(), c.dev.AckCount(), c.dev.NakCount())

	default:
		fmt.Fprintf(c.out, "unknown command: %s (try 'help')\n", args[0])
	}
}

// sendConfig transmits one config line and translates the driver's
// status into a diagnostic the operator can act on.
func (c *Console) sendConfig(line string) {
	err := c.dev.SendConfig(line)
	switch {
	case err == nil:
		fmt.Fprintln(c.out, "ok")
	case errors.Is(err, protocol.ErrConvFail):
		fmt.Fprintln(c.out, "rejected: malformed UBX text (hex byte pairs separated by commas, or 'poll')")
	case errors.Is(err, m8q.ErrInvalidConfig):
		fmt.Fprintln(c.out, "rejected: invalid config message (bad field count, or receiver answered NAK)")
	case errors.Is(err, m8q.ErrWriteFault):
		fmt.Fprintf(c.out, "transport write fault: %v\n", err)
	default:
		fmt.Fprintf(c.out, "error: %v\n", err)
	}
}

func (c *Console) readOne() {
	if !c.dev.Ready() {
		fmt.Fprintln(c.out, "no data pending")
		return
	}
	buf := make([]byte, 512)
	n, err := c.dev.ReadMessage(buf)
	switch {
	case err == nil:
		if buf[0] == protocol.NMEAStart {
			fmt.Fprintf(c.out, "%s", buf[:n])
		} else {
			fmt.Fprintf(c.out, "ubx % X\n", buf[:n])
		}
	case errors.Is(err, m8q.ErrNoData):
		fmt.Fprintln(c.out, "no data pending")
	case errors.Is(err, m8q.ErrUnknownData):
		fmt.Fprintln(c.out, "unrecognized data at stream head")
	default:
		fmt.Fprintf(c.out, "read error: %v\n", err)
	}
}

func (c *Console) printFix() {
	fix := c.dev.Fix()
	if fix.NavStatus == "" {
		fmt.Fprintln(c.out, "no position message received yet")
		return
	}
	fmt.Fprintf(c.out, "lat=%.6f%c lon=%.6f%c navstat=%s time=%s date=%s\n",
		fix.Latitude, fix.NS, fix.Longitude, fix.EW,
		fix.NavStatus, orDash(fix.Time), orDash(fix.Date))
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `commands:
  send <line>   transmit a config line:
                  UBX:  "B5,62,06,09,00,00,..." ('poll' for a poll request)
                  NMEA: "PUBX,40,GLL,0,0,0,0" or "PUBX,41,..."
  read          pull one pending message from the receiver
  fix           show the last parsed position solution
  status        show navigation status and ACK/NAK counters
  quit          exit
`)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
