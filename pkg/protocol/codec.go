package protocol

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/triton/esclink/pkg/telemetry"
)

// Line prefixes.
const (
	PrefixCommand = "CMD:"
	PrefixAck     = "ACK:"
)

const (
	commandFields = 3
	ackFields     = 4

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Line is the result of DecodeLine: *Command, *Ack, *Telemetry or *Malformed.
type Line interface{}

// Telemetry is a decoded telemetry line.
type Telemetry struct {
	telemetry.Frame
}

// Codec encodes and decodes lines for a telemetry layout.
type Codec struct {
	Layout telemetry.Layout
}

// NewCodec creates a Codec.
func NewCodec(layout telemetry.Layout) *Codec {
	return &Codec{Layout: layout}
}

// TelemetryFields is the minimum field count of a telemetry line.
func (c *Codec) TelemetryFields() int {
	return 2 + c.Layout.Len()
}

// EncodeCommand encodes a command line.
func (c *Codec) EncodeCommand(cmd Command) string {
	return cmd.String() + "\n"
}

// EncodeAck encodes an ack line.
func (c *Codec) EncodeAck(ack Ack) string {
	return ack.String() + "\n"
}

// EncodeTelemetry encodes a frame with per-channel decimals.
func (c *Codec) EncodeTelemetry(f telemetry.Frame) string {
	var sb strings.Builder
	sb.WriteString(f.Timestamp.UTC().Format(timestampLayout))
	sb.WriteByte(',')
	sb.WriteString(strconv.FormatFloat(f.Elapsed.Seconds(), 'f', 3, 64))
	for n, ch := range c.Layout.Channels {
		sb.WriteByte(',')
		v := f.Value(n)
		if v.IsFault() {
			sb.WriteString(v.Raw)
			continue
		}
		sb.WriteString(strconv.FormatFloat(v.Num, 'f', ch.Decimals, 64))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// DecodeLine decodes one line, with or without its terminator.
func (c *Codec) DecodeLine(line string) Line {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return &Malformed{Line: line, Reason: "empty"}
	case strings.HasPrefix(line, PrefixCommand):
		return c.decodeCommand(line)
	case strings.HasPrefix(line, PrefixAck):
		return c.decodeAck(line)
	}
	return c.decodeTelemetry(line)
}

func (c *Codec) decodeCommand(line string) Line {
	fields := strings.Split(line, ":")
	if len(fields) < commandFields {
		return &Malformed{Line: line, Reason: "too few fields"}
	}
	cmd := &Command{Kind: ParseKind(fields[1])}
	if cmd.Kind == KindUnknown {
		cmd.RawKind = strings.ToUpper(fields[1])
	}
	if cmd.Kind == KindMode {
		cmd.Mode = Mode(strings.ToUpper(fields[2]))
	} else {
		cmd.Value = parseValue(fields[2])
	}
	return cmd
}

func (c *Codec) decodeAck(line string) Line {
	fields := strings.Split(line, ":")
	if len(fields) < ackFields {
		return &Malformed{Line: line, Reason: "too few fields"}
	}
	status, ok := ParseStatus(fields[3])
	if !ok {
		return &Malformed{Line: line, Reason: "unknown status " + strconv.Quote(fields[3])}
	}
	ack := &Ack{Kind: ParseKind(fields[1]), Status: status}
	if ack.Kind == KindUnknown {
		ack.RawKind = fields[1]
	}
	if ack.Kind == KindMode {
		ack.Mode = Mode(strings.ToUpper(fields[2]))
	} else {
		ack.Value = parseValue(fields[2])
	}
	return ack
}

func (c *Codec) decodeTelemetry(line string) Line {
	fields := strings.Split(line, ",")
	if len(fields) < c.TelemetryFields() {
		return &Malformed{Line: line, Reason: "too few telemetry fields"}
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(fields[0]))
	if err != nil {
		return &Malformed{Line: line, Reason: "invalid timestamp"}
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return &Malformed{Line: line, Reason: "invalid elapsed"}
	}
	t := &Telemetry{Frame: telemetry.Frame{
		Timestamp: ts,
		Elapsed:   time.Duration(math.Round(secs*1000)) * time.Millisecond,
		Values:    make([]telemetry.Value, c.Layout.Len()),
	}}
	for n := range t.Values {
		field := strings.TrimSpace(fields[n+2])
		if v, err := strconv.ParseFloat(field, 64); err == nil {
			t.Values[n] = telemetry.Num(v)
		} else {
			t.Values[n] = telemetry.Fault(field)
		}
	}
	return t
}

// parseValue parses a numeric value field, 0 if it isn't a number.
// Values beyond the int range saturate.
func parseValue(s string) int {
	s = strings.TrimSpace(s)
	v, err := strconv.Atoi(s)
	if err == nil || errors.Is(err, strconv.ErrRange) {
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}
