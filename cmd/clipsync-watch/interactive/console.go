// Package interactive provides the clipsync-watch command console.
package interactive

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/clipsync/clipsync-go/pkg/connection"
	"github.com/clipsync/clipsync-go/pkg/journal"
	"github.com/clipsync/clipsync-go/pkg/wire"
)

// DefaultHistory is the number of entries "history" shows without an argument.
const DefaultHistory = 10

// Client is the part of the connection controller the console drives.
type Client interface {
	Connect() error
	Disconnect()
	ReconnectNow() error
	Status() connection.Status
	State() connection.State
	SessionID() string
	RetryAt() time.Time
	Attempts() uint64
}

// History lists journaled notifications.
type History interface {
	Recent(limit int, kind wire.Type) ([]journal.Entry, error)
}

// Console handles interactive mode for clipsync-watch.
type Console struct {
	Client  Client
	History History

	rl  *readline.Instance
	out io.Writer
	now func() time.Time
}

// New creates a console bound to the terminal.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "clipsync> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("status"),
			readline.PcItem("connect"),
			readline.PcItem("disconnect"),
			readline.PcItem("reconnect"),
			readline.PcItem("history",
				readline.PcItem(string(wire.TypeNewClip)),
				readline.PcItem(string(wire.TypeUpdatedClip)),
				readline.PcItem(string(wire.TypeDeletedClip)),
				readline.PcItem(string(wire.TypeClipsCleanedUp)),
			),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout(), now: time.Now}, nil
}

// NewWithWriter creates a console without a terminal; use Execute to drive it.
func NewWithWriter(out io.Writer) *Console {
	return &Console{out: out, now: time.Now}
}

// Stdout returns a writer that properly coordinates with the readline input.
func (c *Console) Stdout() io.Writer {
	if c.rl == nil {
		return os.Stdout
	}
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	if c.rl == nil {
		return os.Stderr
	}
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.Execute(line); quit {
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the console should exit.
func (c *Console) Execute(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "status", "s":
		c.cmdStatus()

	case "connect", "c":
		c.report("connect", c.Client.Connect())

	case "disconnect", "d":
		c.Client.Disconnect()
		fmt.Fprintln(c.out, "Disconnected")

	case "reconnect", "r":
		c.report("reconnect", c.Client.ReconnectNow())

	case "history", "h":
		c.cmdHistory(args)

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Clipsync Watch Commands:
  Connection:
    status               - Show connection status
    connect              - Open the push channel
    disconnect           - Close the push channel
    reconnect            - Reconnect now, skipping any backoff

  Journal:
    history [n] [type]   - Show the last n notifications (default 10)

  General:
    help                 - Show this help
    quit                 - Exit`)
}

func (c *Console) report(op string, err error) {
	if err != nil {
		fmt.Fprintf(c.out, "%s failed: %v\n", op, err)
		return
	}
	fmt.Fprintf(c.out, "%s requested\n", op)
}

func (c *Console) cmdStatus() {
	state := c.Client.State()
	fmt.Fprintf(c.out, "Status:   %s\n", c.Client.Status())
	fmt.Fprintf(c.out, "State:    %s\n", state)
	if sid := c.Client.SessionID(); sid != "" {
		fmt.Fprintf(c.out, "Session:  %s\n", sid)
	}
	fmt.Fprintf(c.out, "Attempts: %d\n", c.Client.Attempts())
	if state == connection.StateBackoff {
		if at := c.Client.RetryAt(); !at.IsZero() {
			wait := at.Sub(c.now()).Round(100 * time.Millisecond)
			if wait < 0 {
				wait = 0
			}
			fmt.Fprintf(c.out, "Retry in: %s\n", wait)
		}
	}
}

func (c *Console) cmdHistory(args []string) {
	if c.History == nil {
		fmt.Fprintln(c.out, "Journal disabled (start with -journal)")
		return
	}

	limit := DefaultHistory
	var kind wire.Type
	for _, arg := range args {
		if n, err := strconv.Atoi(arg); err == nil {
			if n <= 0 {
				fmt.Fprintf(c.out, "Invalid count: %s\n", arg)
				return
			}
			limit = n
			continue
		}
		t := wire.Type(strings.ToLower(arg))
		if !t.IsNotification() {
			fmt.Fprintf(c.out, "Unknown notification type: %s\n", arg)
			return
		}
		kind = t
	}

	entries, err := c.History.Recent(limit, kind)
	if err != nil {
		fmt.Fprintf(c.out, "history failed: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "No notifications recorded")
		return
	}

	for _, e := range entries {
		ts := e.ReceivedAt.Local().Format("2006-01-02 15:04:05")
		switch e.Kind {
		case wire.TypeNewClip:
			fmt.Fprintf(c.out, "%s  %-16s %s %q\n", ts, e.Kind, e.ClipID, e.Excerpt)
		case wire.TypeClipsCleanedUp:
			fmt.Fprintf(c.out, "%s  %-16s %d clips\n", ts, e.Kind, e.Count)
		default:
			fmt.Fprintf(c.out, "%s  %-16s %s\n", ts, e.Kind, e.ClipID)
		}
	}
}
