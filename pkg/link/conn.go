package link

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/triton/esclink/pkg/metrics"
)

// Defaults of the link.
const (
	DefaultReconnectDelay = time.Second
	DefaultMaxLineLen     = 256

	idlePoll = 5 * time.Millisecond
)

// Conn owns the half-duplex channel. A single lock serializes writes
// and listen windows, so nothing is transmitted while listening.
type Conn struct {
	Open           Opener
	ReconnectDelay time.Duration
	MaxLineLen     int
	Now            func() time.Time

	lock    sync.Mutex
	port    Port
	retryAt time.Time
	pending []byte
}

// NewConn creates a Conn which opens ports lazily.
func NewConn(open Opener) *Conn {
	return &Conn{
		Open:           open,
		ReconnectDelay: DefaultReconnectDelay,
		MaxLineLen:     DefaultMaxLineLen,
		Now:            time.Now,
	}
}

// WriteLine transmits one line, terminator included.
func (c *Conn) WriteLine(line string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	port, err := c.ensureOpen()
	if err != nil {
		return err
	}
	glog.V(2).Infof("TX %q", line)
	if _, err = port.Write([]byte(line)); err != nil {
		return c.fail("write", err)
	}
	return nil
}

// Listen holds the channel for window and returns the complete lines
// received meanwhile. Partial lines are kept for the next window.
func (c *Conn) Listen(ctx context.Context, window time.Duration) ([]string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	port, err := c.ensureOpen()
	if err != nil {
		return nil, err
	}

	var lines []string
	buf := make([]byte, 64)
	deadline := c.Now().Add(window)
	for ctx.Err() == nil && c.Now().Before(deadline) {
		n, err := port.Read(buf)
		if n > 0 {
			lines = c.split(lines, buf[:n])
		}
		if err != nil {
			return lines, c.fail("read", err)
		}
		if n == 0 {
			time.Sleep(idlePoll)
		}
	}
	return lines, nil
}

// Close closes the port.
func (c *Conn) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port, c.pending = nil, nil
	return err
}

// Connected reports whether a port is open.
func (c *Conn) Connected() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.port != nil
}

func (c *Conn) ensureOpen() (Port, error) {
	if c.port != nil {
		return c.port, nil
	}
	if c.Now().Before(c.retryAt) {
		return nil, &LinkError{Op: "open", Err: ErrNotConnected}
	}
	port, err := c.Open()
	if err != nil {
		c.retryAt = c.Now().Add(c.ReconnectDelay)
		metrics.ObserveLinkError("open")
		return nil, &LinkError{Op: "open", Err: err}
	}
	glog.Info("link opened")
	c.port = port
	return port, nil
}

func (c *Conn) fail(op string, err error) error {
	glog.Warningf("link %s failed, reopen in %s: %v", op, c.ReconnectDelay, err)
	metrics.ObserveLinkError(op)
	if c.port != nil {
		c.port.Close()
	}
	c.port, c.pending = nil, nil
	c.retryAt = c.Now().Add(c.ReconnectDelay)
	return &LinkError{Op: op, Err: err}
}

func (c *Conn) split(lines []string, data []byte) []string {
	c.pending = append(c.pending, data...)
	for {
		idx := bytes.IndexByte(c.pending, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimRight(c.pending[:idx], "\r")
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
		c.pending = c.pending[idx+1:]
	}
	if max := c.MaxLineLen; max > 0 && len(c.pending) > max {
		glog.Warningf("dropping %d bytes: %v", len(c.pending), ErrLineTooLong)
		c.pending = nil
	}
	if len(c.pending) == 0 {
		c.pending = nil
	}
	return lines
}
