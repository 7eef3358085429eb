// Package console implements the operator commands of the controller
// station and an interactive shell running them.
package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/triton/esclink/pkg/controller"
	"github.com/triton/esclink/pkg/protocol"
	"github.com/triton/esclink/pkg/telemetry"
)

// DefaultHistoryLines is the number of frames printed by history.
const DefaultHistoryLines = 10

var (
	// ErrUsage indicates bad command arguments.
	ErrUsage = errors.New("usage")
	// ErrUnknownCommand indicates the command doesn't exist.
	ErrUnknownCommand = errors.New("unknown command")
)

// Command is an operator command.
type Command struct {
	Name    string
	Aliases []string
	Help    string
	Run     func(c *Console, w io.Writer, args []string) error
}

// Console executes operator commands against the controller.
type Console struct {
	Side       *controller.Side
	OutputJSON bool

	codec *protocol.Codec
	cmds  map[string]*Command
}

var commands = []*Command{
	&ThrottleCmd,
	&StopCmd,
	&EstopCmd,
	&ModeCmd,
	&StatusCmd,
	&StatsCmd,
	&HistoryCmd,
	&ResetCmd,
}

// AddCmds registers extra commands, used from init funcs.
func AddCmds(cmds ...*Command) {
	commands = append(commands, cmds...)
}

// Commands returns registered commands.
func Commands() []*Command {
	return commands
}

// NewConsole creates a Console.
func NewConsole(side *controller.Side) *Console {
	c := &Console{
		Side:  side,
		codec: protocol.NewCodec(side.Layout),
		cmds:  make(map[string]*Command),
	}
	for _, cmd := range commands {
		c.cmds[cmd.Name] = cmd
		for _, alias := range cmd.Aliases {
			c.cmds[alias] = cmd
		}
	}
	return c
}

// Exec runs a command line.
func (c *Console) Exec(w io.Writer, args ...string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, ok := c.cmds[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	return cmd.Run(c, w, args[1:])
}

func (c *Console) printJSON(w io.Writer, v interface{}) error {
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

type statusView struct {
	Phase     string `json:"phase"`
	Target    int    `json:"target"`
	Confirmed int    `json:"confirmed"`
	Armed     bool   `json:"armed"`
	Estop     bool   `json:"estop"`
	Mode      string `json:"mode,omitempty"`
	AckAgeMs  int64  `json:"ack_age_ms,omitempty"`
}

type statsView struct {
	Name  string  `json:"name"`
	Unit  string  `json:"unit,omitempty"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

func (c *Console) stats() []statsView {
	stats := c.Side.ChannelStats()
	views := make([]statsView, 0, len(stats))
	for n, ch := range c.Side.Layout.Channels {
		if n >= len(stats) || stats[n].Count == 0 {
			continue
		}
		st := stats[n]
		views = append(views, statsView{
			Name:  ch.Name,
			Unit:  ch.Unit,
			Min:   st.Min,
			Max:   st.Max,
			Avg:   st.Avg(),
			Count: st.Count,
		})
	}
	return views
}

func parseCount(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: expect a positive count", ErrUsage)
	}
	return n, nil
}

func okay(w io.Writer) error {
	_, err := fmt.Fprintln(w, "OK")
	return err
}

var (
	// ThrottleCmd sets the target throttle.
	ThrottleCmd = Command{
		Name:    "throttle",
		Aliases: []string{"t"},
		Help:    "PERCENT",
		Run: func(c *Console, w io.Writer, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: throttle PERCENT", ErrUsage)
			}
			pct, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: throttle PERCENT", ErrUsage)
			}
			v, err := c.Side.SetThrottle(pct)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "target %d%%\n", v)
			return err
		},
	}

	// StopCmd stops the motor.
	StopCmd = Command{
		Name:    "stop",
		Aliases: []string{"s"},
		Run: func(c *Console, w io.Writer, args []string) error {
			if err := c.Side.Stop(); err != nil {
				return err
			}
			return okay(w)
		},
	}

	// EstopCmd latches the emergency stop.
	EstopCmd = Command{
		Name:    "estop",
		Aliases: []string{"e", "x"},
		Help:    "latch emergency stop, release with throttle 0",
		Run: func(c *Console, w io.Writer, args []string) error {
			if err := c.Side.Estop(); err != nil {
				return err
			}
			return okay(w)
		},
	}

	// ModeCmd sets the vehicle mode.
	ModeCmd = Command{
		Name: "mode",
		Help: "PASSIVE|ACTIVE",
		Run: func(c *Console, w io.Writer, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: mode PASSIVE|ACTIVE", ErrUsage)
			}
			if err := c.Side.SetMode(protocol.Mode(strings.ToUpper(args[0]))); err != nil {
				return err
			}
			return okay(w)
		},
	}

	// StatusCmd prints the motor state.
	StatusCmd = Command{
		Name: "status",
		Run: func(c *Console, w io.Writer, args []string) error {
			st := c.Side.Status()
			v := statusView{
				Phase:     st.Phase.String(),
				Target:    st.Target,
				Confirmed: st.Confirmed,
				Armed:     st.Armed,
				Estop:     st.Estop,
				Mode:      string(st.Mode),
			}
			if !st.LastAck.IsZero() {
				v.AckAgeMs = time.Since(st.LastAck).Milliseconds()
			}
			if c.OutputJSON {
				return c.printJSON(w, v)
			}
			fmt.Fprintf(w, "%s target=%d%% confirmed=%d%%", v.Phase, v.Target, v.Confirmed)
			if v.Mode != "" {
				fmt.Fprintf(w, " mode=%s", v.Mode)
			}
			if st.LastAck.IsZero() {
				_, err := fmt.Fprintln(w, " no ack")
				return err
			}
			_, err := fmt.Fprintf(w, " ack %s ago\n", time.Duration(v.AckAgeMs)*time.Millisecond)
			return err
		},
	}

	// StatsCmd prints running channel stats.
	StatsCmd = Command{
		Name: "stats",
		Run: func(c *Console, w io.Writer, args []string) error {
			views := c.stats()
			if c.OutputJSON {
				return c.printJSON(w, views)
			}
			if len(views) == 0 {
				_, err := fmt.Fprintln(w, "No telemetry")
				return err
			}
			for _, v := range views {
				fmt.Fprintf(w, "%-12s min=%.2f max=%.2f avg=%.2f n=%d %s\n",
					v.Name, v.Min, v.Max, v.Avg, v.Count, v.Unit)
			}
			return nil
		},
	}

	// HistoryCmd prints recent telemetry frames.
	HistoryCmd = Command{
		Name:    "history",
		Aliases: []string{"h"},
		Help:    "[COUNT]",
		Run: func(c *Console, w io.Writer, args []string) error {
			n, err := parseCount(args, DefaultHistoryLines)
			if err != nil {
				return err
			}
			frames := c.Side.History.Last(n)
			if c.OutputJSON {
				rows := make([]map[string]interface{}, 0, len(frames))
				for _, f := range frames {
					rows = append(rows, frameRow(c.Side.Layout, f))
				}
				return c.printJSON(w, rows)
			}
			for _, f := range frames {
				fmt.Fprint(w, c.codec.EncodeTelemetry(f))
			}
			return nil
		},
	}

	// ResetCmd clears history and stats.
	ResetCmd = Command{
		Name: "reset",
		Run: func(c *Console, w io.Writer, args []string) error {
			c.Side.ResetSession()
			return okay(w)
		},
	}
)

func frameRow(layout telemetry.Layout, f telemetry.Frame) map[string]interface{} {
	row := map[string]interface{}{
		"timestamp": f.Timestamp.UTC().Format(time.RFC3339Nano),
		"elapsed":   f.Elapsed.Seconds(),
	}
	for n, ch := range layout.Channels {
		if v := f.Value(n); v.IsFault() {
			row[ch.Name] = v.Raw
		} else {
			row[ch.Name] = v.Num
		}
	}
	return row
}
