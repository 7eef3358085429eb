package link

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/triton/esclink/pkg/metrics"
	"github.com/triton/esclink/pkg/protocol"
)

// DefaultPollWindow is how long the receiver listens per poll.
const DefaultPollWindow = 50 * time.Millisecond

// CommandHandler receives decoded commands.
type CommandHandler interface {
	HandleCommand(context.Context, protocol.Command)
}

// HandleCommandFunc is the func form of CommandHandler.
type HandleCommandFunc func(context.Context, protocol.Command)

// HandleCommand implements CommandHandler.
func (f HandleCommandFunc) HandleCommand(ctx context.Context, cmd protocol.Command) {
	f(ctx, cmd)
}

// Receiver is the vehicle side receive-first role: it listens in short
// windows and hands every decoded command to Commands. Between windows
// the channel is free for acknowledgments and telemetry.
type Receiver struct {
	Channel        Channel
	Codec          *protocol.Codec
	Commands       CommandHandler
	Window         time.Duration
	ReconnectDelay time.Duration
}

// NewReceiver creates a Receiver.
func NewReceiver(ch Channel, codec *protocol.Codec, h CommandHandler) *Receiver {
	return &Receiver{
		Channel:        ch,
		Codec:          codec,
		Commands:       h,
		Window:         DefaultPollWindow,
		ReconnectDelay: DefaultReconnectDelay,
	}
}

// Name implements Named.
func (r *Receiver) Name() string {
	return "receiver"
}

// Run implements Runnable.
func (r *Receiver) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		lines, err := r.Channel.Listen(ctx, r.Window)
		for _, line := range lines {
			r.route(ctx, line)
		}
		if err != nil {
			glog.V(1).Infof("listen: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.ReconnectDelay):
			}
		}
		// let writers in between windows
		time.Sleep(time.Millisecond)
	}
}

func (r *Receiver) route(ctx context.Context, line string) {
	switch msg := r.Codec.DecodeLine(line).(type) {
	case *protocol.Command:
		glog.V(2).Infof("RX %s", msg)
		metrics.ObserveLineReceived(metrics.LineCommand)
		r.Commands.HandleCommand(ctx, *msg)
	case *protocol.Malformed:
		glog.Warning(msg)
		metrics.ObserveLineReceived(metrics.LineMalformed)
	default:
		glog.V(2).Infof("discard %q", line)
	}
}
