// Package interactive provides the interactive command-line interface
// for the LwM2M client.
package interactive

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/mikegpl/lwm2m-go/pkg/content"
	"github.com/mikegpl/lwm2m-go/pkg/service"
	"github.com/mikegpl/lwm2m-go/pkg/tlv"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// Client is the part of service.DeviceService the console drives.
type Client interface {
	Read(path string, accept wire.Format) (content.Result, error)
	Register(ctx context.Context) error
	Update(ctx context.Context) error
	Deregister(ctx context.Context) error
	Send(ctx context.Context) error
	SetTemperature(v float64)
	Status() service.Status
	OnEvent(handler service.EventHandler)
}

var _ Client = (*service.DeviceService)(nil)

// Console handles interactive mode for lwm2m-client.
type Console struct {
	client Client
	rl     *readline.Instance
	out    io.Writer

	// Bounds each console-issued request.
	timeout time.Duration
}

// New creates a console reading from the terminal. Bind must be called
// before Run.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lwm2m> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{rl: rl, out: rl.Stdout(), timeout: 10 * time.Second}, nil
}

func newConsole(client Client, out io.Writer) *Console {
	c := &Console{out: out, timeout: 10 * time.Second}
	c.Bind(client)
	return c
}

// Bind attaches the console to a client and subscribes to its events.
func (c *Console) Bind(client Client) {
	c.client = client
	client.OnEvent(c.handleEvent)
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
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

		if !c.Execute(ctx, line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the user asked
// to quit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "read", "r":
		c.cmdRead(args)
	case "discover", "d":
		c.cmdDiscover(args)
	case "register", "reg":
		c.lifecycle(ctx, "register", c.client.Register)
	case "update", "up":
		c.lifecycle(ctx, "update", c.client.Update)
	case "deregister", "dereg":
		c.lifecycle(ctx, "deregister", c.client.Deregister)
	case "send":
		c.lifecycle(ctx, "send", c.client.Send)
	case "temp", "t":
		c.cmdTemp(args)
	case "status", "s":
		c.cmdStatus()
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return false
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
LwM2M Client Commands:
  Object model:
    read <path> [format]  - Read a path (format: text, tlv, opaque, or a number)
    discover [path]       - List the children of a path (default /)
    temp <celsius>        - Override the current temperature

  Registration:
    register              - Send REGISTER now
    update                - Send UPDATE now
    deregister            - Send DEREGISTER (no automatic re-registration)
    send                  - Push the current temperature as SenML
    status                - Show client status

  General:
    help                  - Show this help
    quit                  - Exit client

  Path Format:
    /object/instance/resource[/instance] - e.g., /3303/0/5700`)
}

func (c *Console) cmdRead(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: read <path> [format]")
		fmt.Fprintln(c.out, "  Example: read /3/0 tlv")
		return
	}

	accept := wire.FormatNone
	if len(args) > 1 {
		f, ok := wire.ParseFormat(strings.ToLower(args[1]))
		if !ok {
			fmt.Fprintf(c.out, "Unknown format: %s\n", args[1])
			return
		}
		accept = f
	}

	res, err := c.client.Read(args[0], accept)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v (%s)\n", err, content.StatusFor(err))
		return
	}
	c.printResult(res)
}

func (c *Console) cmdDiscover(args []string) {
	path := "/"
	if len(args) > 0 {
		path = args[0]
	}
	res, err := c.client.Read(path, wire.FormatLinkFormat)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v (%s)\n", err, content.StatusFor(err))
		return
	}
	for _, p := range res.Links {
		fmt.Fprintf(c.out, "  %s\n", p)
	}
}

func (c *Console) printResult(res content.Result) {
	fmt.Fprintf(c.out, "[%s, %d bytes]\n", res.Format, len(res.Payload))
	switch res.Format {
	case wire.FormatTextPlain:
		fmt.Fprintf(c.out, "%s\n", res.Payload)
	case wire.FormatTLV:
		elems, err := tlv.Decode(res.Payload)
		if err != nil {
			fmt.Fprintf(c.out, "%s\n", hex.EncodeToString(res.Payload))
			return
		}
		for _, e := range elems {
			fmt.Fprintf(c.out, "%s\n", e)
		}
		fmt.Fprintf(c.out, "hex: %s\n", hex.EncodeToString(res.Payload))
	default:
		fmt.Fprintf(c.out, "%s\n", hex.EncodeToString(res.Payload))
	}
}

func (c *Console) lifecycle(ctx context.Context, name string, op func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := op(ctx); err != nil {
		fmt.Fprintf(c.out, "%s failed: %v\n", name, err)
		return
	}
	fmt.Fprintf(c.out, "%s ok\n", name)
}

func (c *Console) cmdTemp(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: temp <celsius>")
		return
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid temperature: %s\n", args[0])
		return
	}
	c.client.SetTemperature(v)
	fmt.Fprintf(c.out, "Temperature set to %.2f Cel\n", v)
}

func (c *Console) cmdStatus() {
	st := c.client.Status()
	fmt.Fprintf(c.out, "Service:      %s\n", st.State)
	fmt.Fprintf(c.out, "Endpoint:     %s\n", st.Endpoint)
	fmt.Fprintf(c.out, "Server:       %s\n", st.Server)
	fmt.Fprintf(c.out, "Registration: %s (supervisor %s)\n", st.Registration, st.Supervisor)
	if st.Location != "" {
		fmt.Fprintf(c.out, "Location:     %s\n", st.Location)
		fmt.Fprintf(c.out, "Registered:   %s\n", st.RegisteredAt.Format(time.RFC3339))
		if !st.LastUpdate.IsZero() {
			fmt.Fprintf(c.out, "Last update:  %s\n", st.LastUpdate.Format(time.RFC3339))
		}
	}
	if st.UpdateFailures > 0 {
		fmt.Fprintf(c.out, "Failed updates: %d\n", st.UpdateFailures)
	}
	fmt.Fprintf(c.out, "Temperature:  %v Cel (min %v, max %v)\n", st.Temperature, st.TemperatureMinMax[0], st.TemperatureMinMax[1])
}

func (c *Console) handleEvent(e service.Event) {
	switch e.Type {
	case service.EventRegistered:
		fmt.Fprintf(c.out, "[EVENT] Registered at %s\n", e.Location)
	case service.EventRegistrationFailed:
		fmt.Fprintf(c.out, "[EVENT] Registration attempt %d failed: %v (retry in %s)\n", e.Attempt, e.Error, e.RetryIn.Round(time.Millisecond))
	case service.EventRegistrationLost:
		fmt.Fprintln(c.out, "[EVENT] Registration lost")
	case service.EventDeregistered:
		fmt.Fprintln(c.out, "[EVENT] Deregistered")
	case service.EventSendFailed:
		fmt.Fprintf(c.out, "[EVENT] Send failed: %v\n", e.Error)
	}
}
