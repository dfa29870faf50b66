// Package tcp is the TCP-based shared store: one peer hosts a Server, every
// peer (the host included) talks to it through a Client.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/unkn0wn-root/casrdzv"
	"github.com/unkn0wn-root/casrdzv/store"
)

// Config selects how Open reaches the store.
type Config struct {
	// Addr is the store endpoint as host:port.
	Addr string
	// Server makes this process bind Addr's port on all interfaces and host
	// the store.
	Server bool
	// ReadTimeout bounds every blocking call, dialing included.
	ReadTimeout time.Duration
	Logger      casrdzv.Logger
}

// Store is a Client that may also own the Server it talks to.
type Store struct {
	*Client
	srv *Server
}

var _ store.Store = (*Store)(nil)

// Open connects to the store at cfg.Addr, first hosting it when cfg.Server is
// set. Hosting fails when the port is already bound.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if !cfg.Server {
		cl, err := Dial(ctx, cfg.Addr, cfg.ReadTimeout, cfg.Logger)
		if err != nil {
			return nil, err
		}
		return &Store{Client: cl}, nil
	}

	_, port, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("tcp store: %w", err)
	}
	srv, err := Listen(net.JoinHostPort("", port), cfg.ReadTimeout, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("tcp store: host %s: %w", cfg.Addr, err)
	}
	// the host reaches its own listener over loopback, whatever name the
	// endpoint uses
	self := net.JoinHostPort("127.0.0.1", strconv.Itoa(srv.Addr().(*net.TCPAddr).Port))
	cl, err := Dial(ctx, self, cfg.ReadTimeout, cfg.Logger)
	if err != nil {
		_ = srv.Close()
		return nil, err
	}
	return &Store{Client: cl, srv: srv}, nil
}

// IsServer reports whether this process hosts the store.
func (s *Store) IsServer() bool { return s.srv != nil }

// ServerAddr is the hosted listener address, or nil for clients.
func (s *Store) ServerAddr() net.Addr {
	if s.srv == nil {
		return nil
	}
	return s.srv.Addr()
}

// Close closes the client and, for the host, the server. Peers still
// connected see their next call fail.
func (s *Store) Close() error {
	err := s.Client.Close()
	if s.srv != nil {
		err = errors.Join(err, s.srv.Close())
	}
	return err
}
