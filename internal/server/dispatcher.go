package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ConnHandler serves a single accepted connection and is responsible for
// closing it.
type ConnHandler interface {
	ServeConn(conn net.Conn)
}

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Dispatcher accepts connections and runs each one on its own goroutine.
type Dispatcher struct {
	listener net.Listener
	handler  ConnHandler
	slots    *semaphore.Weighted // nil when unbounded
	logger   *slog.Logger

	wg       sync.WaitGroup
	active   atomic.Int64
	served   atomic.Uint64
	panicked atomic.Uint64
}

// NewDispatcher creates a dispatcher. maxConnections <= 0 means no limit.
func NewDispatcher(l net.Listener, handler ConnHandler, maxConnections int, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		listener: l,
		handler:  handler,
		logger:   logger,
	}
	if maxConnections > 0 {
		d.slots = semaphore.NewWeighted(int64(maxConnections))
	}
	return d
}

// Addr returns the listener address.
func (d *Dispatcher) Addr() net.Addr { return d.listener.Addr() }

// Serve accepts until ctx is cancelled or the listener fails permanently. On
// cancellation it closes the listener, waits for in-flight connections and
// returns nil.
func (d *Dispatcher) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			d.listener.Close()
		case <-stop:
		}
	}()
	defer d.wg.Wait()

	var backoff time.Duration
	for {
		if d.slots != nil {
			if err := d.slots.Acquire(ctx, 1); err != nil {
				return nil
			}
		}

		conn, err := d.listener.Accept()
		if err != nil {
			d.release()
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				d.logger.Warn("Accept failed, retrying",
					"error", err.Error(),
					"backoff", backoff.String(),
				)
				select {
				case <-time.After(backoff):
					continue
				case <-ctx.Done():
					return nil
				}
			}
			return fmt.Errorf("accept: %w", err)
		}
		backoff = 0

		d.wg.Add(1)
		d.active.Add(1)
		go d.serve(conn)
	}
}

// serve runs one connection. A panic is contained here so it never reaches
// the accept loop or other connections.
func (d *Dispatcher) serve(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			d.panicked.Add(1)
			d.logger.Error("Connection worker panicked",
				"error", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			conn.Close()
		}
		d.active.Add(-1)
		d.served.Add(1)
		d.release()
		d.wg.Done()
	}()
	d.handler.ServeConn(conn)
}

func (d *Dispatcher) release() {
	if d.slots != nil {
		d.slots.Release(1)
	}
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Active   int64  `json:"active"`
	Served   uint64 `json:"served"`
	Panicked uint64 `json:"panicked"`
}

// Stats returns current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Active:   d.active.Load(),
		Served:   d.served.Load(),
		Panicked: d.panicked.Load(),
	}
}

func nextBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptBackoff
	}
	next := prev * 2
	if next > maxAcceptBackoff {
		return maxAcceptBackoff
	}
	return next
}
