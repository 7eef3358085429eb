package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Loop runs controllers by priority level on a fixed interval,
// or immediately when triggered, feeding them posted messages.
type Loop struct {
	Interval time.Duration

	controllers [PriorityLevels][]Controller
	runners     []Runnable

	messages []Message
	lock     sync.Mutex

	wakeUpCh chan struct{}
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopCtxKey struct{}

type loopIteration struct {
	*Loop
	ctx           context.Context
	time          time.Time
	priorityLevel int
	messages      []Message
}

// LoopCtlFrom gets LoopControl from a context passed to
// runnables and controllers of the loop.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey{}).(LoopControl)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{
		Interval: 100 * time.Millisecond,
		wakeUpCh: make(chan struct{}, 1),
	}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers to the loop.
// Controllers which are also Runnable are started with the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementions.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	interval := l.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	runner := NewRunnerWith(context.WithValue(ctx, loopCtxKey{}, LoopControl(l)))
	runner.Go(l.runners...)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return runner.Wait()
		case <-ticker.C:
			l.runIteration(ctx)
		case <-l.wakeUpCh:
			l.runIteration(ctx)
		}
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.messages = append(l.messages, msg)
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

func (l *Loop) runIteration(ctx context.Context) {
	iter := &loopIteration{Loop: l, time: time.Now()}
	l.lock.Lock()
	iter.messages, l.messages = l.messages, nil
	l.lock.Unlock()
	iter.ctx = context.WithValue(ctx, loopCtxKey{}, LoopControl(l))
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		for _, ctl := range l.controllers[i] {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("controller error: %v", err)
			}
		}
	}
	if n := len(iter.messages); n > 0 {
		glog.V(3).Infof("%d messages dropped unprocessed", n)
	}
}

func (t *loopIteration) Context() context.Context { return t.ctx }
func (t *loopIteration) Time() time.Time          { return t.time }
func (t *loopIteration) PriorityLevel() int       { return t.priorityLevel }
func (t *loopIteration) Messages() MessageStore   { return t }
func (t *loopIteration) Len() int                 { return len(t.messages) }

type messageContext struct {
	msg   Message
	taken bool
}

func (c *messageContext) CurrentMessage() Message { return c.msg }
func (c *messageContext) MessageTaken()           { c.taken = true }

func (t *loopIteration) ProcessMessages(proc MessageProcessor) {
	msgs := t.messages
	t.messages = nil
	for _, msg := range msgs {
		mctx := &messageContext{msg: msg}
		proc.ProcessMessage(mctx)
		if !mctx.taken {
			t.messages = append(t.messages, msg)
		}
	}
}

// RunOrFail runs the loop with extra Runnables, see RunOrFail.
func (l *Loop) RunOrFail(extra ...Runnable) {
	RunOrFail(append([]Runnable{NamedRun("loop", l)}, extra...)...)
}
