package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/unkn0wn-root/casrdzv"
	"github.com/unkn0wn-root/casrdzv/internal/wire"
	"github.com/unkn0wn-root/casrdzv/store"
)

// getSlack lets the server's own read timeout answer a blocked Get before
// the client deadline fires.
const getSlack = time.Second

// Client talks to a Server over one connection. Calls are serialized; a
// broken connection is dropped and redialed on the next call.
type Client struct {
	addr    string
	timeout time.Duration
	log     casrdzv.Logger

	mu     sync.Mutex
	conn   net.Conn
	r      *bufio.Reader
	closed bool
}

var _ store.Store = (*Client)(nil)

// Dial connects to the server at addr, retrying with backoff until it
// answers a ping or readTimeout elapses. Peers usually start before the host
// has bound its port, so a refused connection is not fatal by itself.
func Dial(ctx context.Context, addr string, readTimeout time.Duration, log casrdzv.Logger) (*Client, error) {
	if readTimeout <= 0 {
		return nil, fmt.Errorf("tcp store: read timeout must be positive, got %v", readTimeout)
	}
	c := &Client{addr: addr, timeout: readTimeout, log: casrdzv.OrNopLogger(log)}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Addr is the server address the client dials.
func (c *Client) Addr() string { return c.addr }

func (c *Client) connectLocked(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = c.timeout

	var d net.Dialer
	attempt := 0
	op := func() error {
		attempt++
		conn, err := d.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			c.log.Debug("tcp store dial failed", casrdzv.Fields{"addr": c.addr, "attempt": attempt, "err": err})
			return err
		}
		r := bufio.NewReader(conn)
		st, payload, err := exchange(ctx, conn, r, time.Now().Add(c.timeout), wire.OpPing)
		if err != nil {
			_ = conn.Close()
			if errors.Is(err, wire.ErrCorrupt) {
				// something answers on the port, but not a store server
				return backoff.Permanent(err)
			}
			return err
		}
		if st != wire.StatusOK {
			_ = conn.Close()
			return backoff.Permanent(&store.RemoteError{Op: wire.OpPing.String(), Msg: string(payload)})
		}
		c.conn, c.r = conn, r
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("tcp store: connect %s: %w", c.addr, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.do(ctx, c.timeout+getSlack, wire.OpGet, []byte(key))
}

func (c *Client) CompareAndSet(ctx context.Context, key string, expected, desired []byte) ([]byte, error) {
	return c.do(ctx, c.timeout, wire.OpCompareSet, []byte(key), expected, desired)
}

func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	_, err := c.do(ctx, c.timeout, wire.OpSet, []byte(key), value)
	return err
}

// Ping checks the server is alive.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, c.timeout, wire.OpPing)
	return err
}

func (c *Client) do(ctx context.Context, budget time.Duration, op wire.Op, args ...[]byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, store.ErrClosed
	}
	// the server drops a connection that sends an oversized frame
	if err := wire.CheckArgs(args...); err != nil {
		return nil, fmt.Errorf("tcp store: %s: %w", op, err)
	}
	if c.conn == nil {
		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
	}

	st, payload, err := exchange(ctx, c.conn, c.r, time.Now().Add(budget), op, args...)
	if err != nil {
		// the stream position is unknown after a failed exchange
		_ = c.conn.Close()
		c.conn, c.r = nil, nil
		return nil, err
	}
	switch st {
	case wire.StatusOK:
		return payload, nil
	case wire.StatusTimeout:
		return nil, store.ErrTimeout
	default:
		return nil, &store.RemoteError{Op: op.String(), Msg: string(payload)}
	}
}

// exchange writes one request and reads its response. Cancelling ctx
// interrupts a blocked read.
func exchange(ctx context.Context, conn net.Conn, r *bufio.Reader, deadline time.Time, op wire.Op, args ...[]byte) (wire.Status, []byte, error) {
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := conn.Write(wire.EncodeRequest(op, args...)); err != nil {
		return 0, nil, classify(ctx, err)
	}
	st, payload, err := wire.ReadResponse(r)
	if err != nil {
		return 0, nil, classify(ctx, err)
	}
	return st, payload, nil
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", store.ErrTimeout, err)
	}
	return err
}

// Close closes the connection. Safe to call multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.r = nil, nil
	return err
}
