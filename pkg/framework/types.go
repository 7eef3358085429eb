package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Message is anything posted into a control loop. Concrete
// types are matched by the controllers consuming them.
type Message interface{}

// Controller defines the abstract controlling logic.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// ControlContext provides the context of current control
// iteration.
type ControlContext interface {
	// Time is the time the iteration started.
	Time() time.Time
	// Context retrieves context.Context.
	Context() context.Context
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
	// Messages retrieves all messages collected when
	// this iteration starts.
	Messages() MessageStore

	LoopControl
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 4

// Priority levels, executed in order within one iteration.
const (
	// PrLvLink drains inbound link traffic.
	PrLvLink int = iota
	// PrLvControl applies commands to state machines.
	PrLvControl
	// PrLvActuate pushes state to outputs.
	PrLvActuate
	// PrLvReport samples and reports telemetry.
	PrLvReport
)

// LoopControl exposes access to the controlling loop.
type LoopControl interface {
	// PostMessage enqueues the message.
	PostMessage(Message)
	// TriggerNext schedules the next iteration to be executed
	// immediately after the current iteration.
	TriggerNext()
}

// MessageStore provides access to the messages of an iteration.
type MessageStore interface {
	// ProcessMessages uses a processor to process all messages.
	ProcessMessages(MessageProcessor)
	// Len is the number of messages not yet taken.
	Len() int
}

// MessageProcessor is used by MessageStore to process messages.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext provides context for current message.
type MessageProcessingContext interface {
	// CurrentMessage gets the current message being processed.
	CurrentMessage() Message
	// MessageTaken indicates the message has been processed and
	// should be removed from store.
	MessageTaken()
}
