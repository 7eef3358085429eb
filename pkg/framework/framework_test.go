package framework

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Aggregate())

	errA := errors.New("a")
	errs.Add(nil, context.Canceled, errA)
	err := errs.Aggregate()
	require.Error(t, err)
	require.Equal(t, "a", err.Error())
	require.ErrorIs(t, err, errA)

	errs.Add(errors.New("b"))
	require.Equal(t, "multiple errors:\na\nb", errs.Error())
}

func TestRunnerWaitTimeout(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	require.NoError(t, r.WaitTimeout(time.Second))

	stuck := make(chan struct{})
	defer close(stuck)
	r = NewRunner()
	r.Go(NamedRun("stuck", RunFunc(func(ctx context.Context) error {
		<-stuck
		return nil
	})))
	require.ErrorIs(t, r.WaitTimeout(10*time.Millisecond), ErrWaitTimeout)
}

func TestRunnerCollectsErrors(t *testing.T) {
	errBoom := errors.New("boom")
	r := NewRunner()
	r.Go(
		RunFunc(func(ctx context.Context) error { return errBoom }),
		RunFunc(func(ctx context.Context) error { return nil }),
	)
	require.ErrorIs(t, r.Wait(), errBoom)
}

type testMsg struct{ n int }

func TestLoopProcessesMessagesByPriority(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Hour

	var order []int
	var seen int32
	done := make(chan struct{})
	loop.AddController(PrLvReport, ControlFunc(func(cc ControlContext) error {
		if cc.Messages().Len() > 0 {
			order = append(order, PrLvReport)
		}
		return nil
	}))
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			if msg, ok := mctx.CurrentMessage().(*testMsg); ok && msg.n == 1 {
				mctx.MessageTaken()
				order = append(order, PrLvControl)
				if atomic.AddInt32(&seen, 1) == 1 {
					close(done)
				}
			}
		}))
		return nil
	}))
	loop.AddRunnable(RunFunc(func(ctx context.Context) error {
		ctl := LoopCtlFrom(ctx)
		ctl.PostMessage(&testMsg{n: 1})
		ctl.PostMessage(&testMsg{n: 2})
		ctl.TriggerNext()
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("message not processed")
	}
	cancel()
	require.NoError(t, <-errCh)
	require.Equal(t, []int{PrLvControl, PrLvReport}, order)
}
