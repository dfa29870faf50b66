package tcp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/unkn0wn-root/casrdzv"
	"github.com/unkn0wn-root/casrdzv/internal/wire"
	"github.com/unkn0wn-root/casrdzv/store"
	"github.com/unkn0wn-root/casrdzv/store/memory"
)

var arity = map[wire.Op]int{wire.OpPing: 0, wire.OpGet: 1, wire.OpSet: 2, wire.OpCompareSet: 3}

// Server hosts an in-memory store for the peers of a rendezvous. Each
// connection is served by its own goroutine; requests on one connection are
// handled in order.
type Server struct {
	ln  net.Listener
	st  store.Store
	log casrdzv.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// Listen binds addr and serves a fresh in-memory store. readTimeout bounds
// how long a Get waits for a missing key before answering with a timeout. A
// port already bound by another process fails here, which bootstrap relies on
// to detect a competing host.
func Listen(addr string, readTimeout time.Duration, log casrdzv.Logger) (*Server, error) {
	return ListenStore(addr, memory.New(readTimeout), log)
}

// ListenStore binds addr and serves st, which the server closes on Close.
// st must bound its own blocking Gets; the server passes no deadline.
func ListenStore(addr string, st store.Store, log casrdzv.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ln:     ln,
		st:     st,
		log:    casrdzv.OrNopLogger(log),
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr is the bound address; useful when listening on port 0.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("tcp store accept failed", casrdzv.Fields{"err": err})
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}
		if !s.track(conn) {
			_ = conn.Close()
			return
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	for {
		op, args, err := wire.ReadRequest(r)
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				s.log.Debug("tcp store dropped connection", casrdzv.Fields{"remote": conn.RemoteAddr().String(), "err": err})
			}
			return
		}
		st, payload := s.dispatch(op, args)
		if _, err := w.Write(wire.EncodeResponse(st, payload)); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(op wire.Op, args [][]byte) (wire.Status, []byte) {
	n, known := arity[op]
	if !known {
		return wire.StatusError, []byte("unknown op " + op.String())
	}
	if len(args) != n {
		return wire.StatusError, []byte("bad argument count for " + op.String())
	}

	ctx := s.ctx
	switch op {
	case wire.OpPing:
		return wire.StatusOK, nil
	case wire.OpGet:
		v, err := s.st.Get(ctx, string(args[0]))
		return result(v, err)
	case wire.OpSet:
		return result(nil, s.st.Set(ctx, string(args[0]), args[1]))
	default:
		v, err := s.st.CompareAndSet(ctx, string(args[0]), args[1], args[2])
		return result(v, err)
	}
}

func result(v []byte, err error) (wire.Status, []byte) {
	switch {
	case err == nil:
		return wire.StatusOK, v
	case errors.Is(err, store.ErrTimeout):
		return wire.StatusTimeout, []byte(err.Error())
	default:
		return wire.StatusError, []byte(err.Error())
	}
}

// Close stops accepting, drops open connections and wakes blocked readers.
// Safe to call multiple times.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.cancel()
		err = s.ln.Close()
		for c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
		_ = s.st.Close()
		s.wg.Wait()
	})
	return err
}
