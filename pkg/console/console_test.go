package console

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triton/esclink/pkg/controller"
	"github.com/triton/esclink/pkg/motor"
	"github.com/triton/esclink/pkg/protocol"
	"github.com/triton/esclink/pkg/telemetry"
)

type testChannel struct {
	lock    sync.Mutex
	written []string
}

func (c *testChannel) WriteLine(line string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.written = append(c.written, line)
	return nil
}

func (c *testChannel) Listen(ctx context.Context, window time.Duration) ([]string, error) {
	return nil, nil
}

func newTestConsole() (*Console, *testChannel) {
	ch := &testChannel{}
	layout := telemetry.Layout{Channels: []telemetry.Channel{
		{Name: "temp", Unit: "C", Decimals: 1},
		{Name: "rpm", Decimals: 0},
	}}
	return NewConsole(controller.New(ch, layout)), ch
}

func exec(t *testing.T, c *Console, args ...string) string {
	var out bytes.Buffer
	require.NoError(t, c.Exec(&out, args...))
	return out.String()
}

func TestThrottleCommand(t *testing.T) {
	c, _ := newTestConsole()
	require.Equal(t, "target 40%\n", exec(t, c, "throttle", "40"))
	require.Equal(t, "target 100%\n", exec(t, c, "t", "140"))
	require.Equal(t, 100, c.Side.Status().Target)

	var out bytes.Buffer
	require.ErrorIs(t, c.Exec(&out, "throttle"), ErrUsage)
	require.ErrorIs(t, c.Exec(&out, "throttle", "fast"), ErrUsage)
	require.ErrorIs(t, c.Exec(&out, "warp"), ErrUnknownCommand)
	require.ErrorIs(t, c.Exec(&out), ErrUsage)
}

func TestEstopCommand(t *testing.T) {
	c, ch := newTestConsole()
	exec(t, c, "throttle", "30")
	require.Equal(t, "OK\n", exec(t, c, "estop"))
	require.Contains(t, ch.written, "CMD:ESTOP:0\n")

	var out bytes.Buffer
	require.ErrorIs(t, c.Exec(&out, "throttle", "10"), motor.ErrEstopActive)
	require.Equal(t, "target 0%\n", exec(t, c, "throttle", "0"))
	require.False(t, c.Side.Status().Estop)
}

func TestStopAndModeCommands(t *testing.T) {
	c, ch := newTestConsole()
	exec(t, c, "stop")
	exec(t, c, "mode", "active")
	require.Equal(t, []string{"CMD:STOP:0\n", "CMD:MODE:ACTIVE\n"}, ch.written)

	var out bytes.Buffer
	require.ErrorIs(t, c.Exec(&out, "mode", "turbo"), motor.ErrInvalidMode)
}

func TestStatusCommand(t *testing.T) {
	c, _ := newTestConsole()
	require.Equal(t, "DISARMED target=0% confirmed=0% mode=PASSIVE no ack\n", exec(t, c, "status"))

	exec(t, c, "throttle", "20")
	c.Side.HandleAck(context.Background(), protocol.Ack{Kind: protocol.KindThrottle, Value: 20, Status: protocol.StatusOK})
	require.True(t, strings.HasPrefix(exec(t, c, "status"), "ARMED target=20% confirmed=20% mode=PASSIVE ack "))

	c.OutputJSON = true
	var v statusView
	require.NoError(t, json.Unmarshal([]byte(exec(t, c, "status")), &v))
	require.Equal(t, 20, v.Confirmed)
	require.True(t, v.Armed)
}

func TestStatsHistoryReset(t *testing.T) {
	c, _ := newTestConsole()
	require.Equal(t, "No telemetry\n", exec(t, c, "stats"))

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for n := 0; n < 3; n++ {
		c.Side.HandleTelemetry(context.Background(), &protocol.Telemetry{Frame: telemetry.Frame{
			Timestamp: start.Add(time.Duration(n) * time.Second),
			Elapsed:   time.Duration(n) * time.Second,
			Values:    []telemetry.Value{telemetry.Num(20 + float64(n)), telemetry.Fault("")},
		}})
	}
	require.Equal(t, "temp         min=20.00 max=22.00 avg=21.00 n=3 C\n", exec(t, c, "stats"))

	require.Equal(t, "2026-01-02T03:04:07.000Z,2.000,22.0,ERR\n", exec(t, c, "history", "1"))
	require.Len(t, strings.Split(strings.TrimSpace(exec(t, c, "h")), "\n"), 3)

	var out bytes.Buffer
	require.ErrorIs(t, c.Exec(&out, "history", "0"), ErrUsage)

	c.OutputJSON = true
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(exec(t, c, "history", "2")), &rows))
	require.Len(t, rows, 2)
	require.Equal(t, "ERR", rows[1]["rpm"])
	require.Equal(t, 22.0, rows[1]["temp"])

	c.OutputJSON = false
	require.Equal(t, "OK\n", exec(t, c, "reset"))
	require.Equal(t, "No telemetry\n", exec(t, c, "stats"))
	require.Empty(t, exec(t, c, "history"))
}
