package framework

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// Runner runs multiple Runnables and collect errors.
type Runner struct {
	Context context.Context
	Runners []Runnable

	cancel func()
	errCh  chan error
	exitCh chan struct{}
}

// NewRunner creates a runner with a default background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner with a specified context.
func NewRunnerWith(ctx context.Context) *Runner {
	r := &Runner{
		errCh:  make(chan error, 16),
		exitCh: make(chan struct{}),
	}
	r.Context, r.cancel = context.WithCancel(ctx)
	return r
}

// HandleSignals handles CtrlC and SIGTERM from the system.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		r.cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.exitCh)
	}()
	return r
}

// Stop cancels the context shared by all Runnables.
func (r *Runner) Stop() {
	r.cancel()
}

// Go spawns Runnables with the runner context.
func (r *Runner) Go(runners ...Runnable) *Runner {
	for _, runner := range runners {
		var name string
		if named, ok := runner.(Named); ok {
			name = named.Name()
		} else {
			name = strconv.Itoa(len(r.Runners))
		}
		r.Runners = append(r.Runners, runner)
		glog.V(4).Infof("start Runner[%s]", name)
		go func(runner Runnable, name string) {
			glog.V(4).Infof("Runner[%s] started", name)
			err := runner.Run(r.Context)
			glog.V(4).Infof("Runner[%s] stopped: %v", name, err)
			r.errCh <- err
		}(runner, name)
	}
	return r
}

// Wait waits until all Runnables stops and aggregate errors.
func (r *Runner) Wait() error {
	return r.wait(nil)
}

// WaitTimeout cancels all Runnables and waits at most timeout
// for them to stop.
func (r *Runner) WaitTimeout(timeout time.Duration) error {
	r.cancel()
	return r.wait(time.After(timeout))
}

func (r *Runner) wait(timeoutCh <-chan time.Time) error {
	var errs AggregatedError
	for range r.Runners {
		select {
		case <-r.exitCh:
			return ErrForcedExit
		case <-timeoutCh:
			return errs.Add(ErrWaitTimeout).Aggregate()
		case err := <-r.errCh:
			errs.Add(err)
		}
	}
	return errs.Aggregate()
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// RunWithContextCloser runs fn which doesn't accept a context, and
// ensures closer.Close is called either on cancel or exit of fn.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		closer.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		closer.Close()
		return err
	}
}

// RunOrFail is intended to be used in main. It runs the Runnables until
// interrupted or until any of them stops, and exits on error.
func RunOrFail(runnables ...Runnable) {
	r := NewRunner().HandleSignals()
	for _, runnable := range runnables {
		runnable := runnable
		name := strconv.Itoa(len(r.Runners))
		if named, ok := runnable.(Named); ok {
			name = named.Name()
		}
		r.Go(NamedRun(name, RunFunc(func(ctx context.Context) error {
			defer r.Stop()
			return runnable.Run(ctx)
		})))
	}
	if err := r.Wait(); err != nil {
		glog.Exit(err)
	}
}
