// Package server wires the acceptor, worker pool, and dispatcher together:
// it owns the listening socket, the connection queue, the per-URI lock
// registry, and the worker goroutines that parse, lock, handle, and audit
// each request.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/foxhollow/httpserver/internal/audit"
	"github.com/foxhollow/httpserver/internal/fs"
	"github.com/foxhollow/httpserver/internal/handler"
	"github.com/foxhollow/httpserver/internal/queue"
	"github.com/foxhollow/httpserver/internal/registry"
	"github.com/foxhollow/httpserver/internal/request"
	"github.com/foxhollow/httpserver/internal/rwlock"
)

// Options configures a Server. Policy and N select the per-URI lock's
// fairness policy; Root is the directory GET/PUT paths are resolved
// against.
type Options struct {
	Addr    string
	Threads int
	Root    string
	Policy  rwlock.Policy
	N       uint
	FS      fs.FS
	Audit   *audit.Log
	Log     *logrus.Logger
}

// Server accepts connections on a single listener and dispatches them to a
// fixed pool of worker goroutines through a bounded queue.
type Server struct {
	opts     Options
	listener net.Listener
	conns    *queue.Queue[net.Conn]
	registry *registry.Registry
	wg       sync.WaitGroup
}

// New constructs a Server bound to opts.Addr. The listener is opened
// immediately so that callers can detect a bind failure before calling
// [Server.Run].
func New(opts Options) (*Server, error) {
	if opts.Log == nil {
		opts.Log = logrus.New()
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen: %w", err)
	}

	q, err := queue.New[net.Conn](opts.Threads)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("server: %w", err)
	}

	reg, err := registry.New(opts.Threads, func() (*rwlock.Lock, error) {
		return rwlock.New(opts.Policy, opts.N)
	})
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("server: %w", err)
	}

	return &Server{
		opts:     opts,
		listener: ln,
		conns:    q,
		registry: reg,
	}, nil
}

// Addr returns the address the listener bound to - useful for tests that
// pass port 0 and need to discover the assigned port.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run starts the acceptor and Threads workers, and blocks until ctx is
// cancelled. On return the listener is closed and all workers have joined,
// in that order, so no connection is left half-handled.
func (s *Server) Run(ctx context.Context) error {
	s.opts.Log.WithFields(logrus.Fields{
		"addr":           s.listener.Addr().String(),
		"threads":        s.opts.Threads,
		"queue_capacity": s.conns.Capacity(),
	}).Info("server starting")

	acceptDone := make(chan struct{})

	go func() {
		defer close(acceptDone)
		s.accept(ctx)
	}()

	for i := 0; i < s.opts.Threads; i++ {
		s.wg.Add(1)

		go func(id int) {
			defer s.wg.Done()
			s.work(ctx, id)
		}(i)
	}

	<-ctx.Done()

	s.opts.Log.Info("shutting down: closing listener")
	_ = s.listener.Close()

	<-acceptDone
	s.wg.Wait()

	s.opts.Log.Info("server stopped")

	return nil
}

// accept loops on the listener, pushing each accepted connection into the
// queue until ctx is cancelled or the listener is closed.
func (s *Server) accept(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			s.opts.Log.WithError(err).Warn("accept failed")

			continue
		}

		if err := s.conns.Push(ctx, conn); err != nil {
			conn.Close()
			return
		}
	}
}

// work is a single worker's loop: pop a connection, parse it, dispatch it,
// and close it. A handler panic is contained to the one connection it
// occurred on rather than taking down the worker.
func (s *Server) work(ctx context.Context, id int) {
	log := s.opts.Log.WithField("worker", id)

	for {
		conn, err := s.conns.Pop(ctx)
		if err != nil {
			return
		}

		s.dispatchRecovered(conn, log)
	}
}

func (s *Server) dispatchRecovered(conn net.Conn, log *logrus.Entry) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("recovered from panic while handling connection")
		}
	}()

	s.dispatch(conn)
}

// dispatch parses one request off conn, serves it, and closes conn. It
// never returns an error: every failure is translated into an HTTP
// response instead of being propagated. A GET or PUT also gets an audit
// line; a request that fails to parse gets only the canned response.
func (s *Server) dispatch(conn net.Conn) {
	defer conn.Close()

	statusOf := func(err error) int {
		if st, _, ok := handler.StatusOf(err); ok {
			return st
		}

		return 500
	}

	req, err := request.Parse(conn)
	if err != nil {
		s.respondParseError(conn, err)
		return
	}

	path, pathErr := handler.ResolvePath(s.opts.Root, req.URI)

	entry := s.registry.Acquire(req.URI)
	defer s.registry.Release(entry)

	lock := entry.Lock()

	var (
		status int
		sent   bool
	)

	switch req.Method {
	case "GET":
		lock.RLock()

		if pathErr != nil {
			status = statusOf(pathErr)
		} else {
			headerWritten, getErr := handler.Get(s.opts.FS, path, conn)
			sent = headerWritten

			if getErr != nil {
				status = statusOf(getErr)
			} else {
				status = 200
			}
		}

		s.audit(req, status)
		lock.RUnlock()

	case "PUT":
		lock.Lock()

		if pathErr != nil {
			status = statusOf(pathErr)
		} else {
			clValue, clPresent := req.Header("Content-Length")

			cl, clErr := handler.ParseContentLength(clValue, clPresent)
			if clErr != nil {
				status = 400
			} else {
				putStatus, putErr := handler.Put(s.opts.FS, path, cl, req.BodyPrefix, conn)
				if putErr != nil {
					status = statusOf(putErr)
				} else {
					status = putStatus
				}
			}
		}

		s.audit(req, status)
		lock.Unlock()
	}

	if !sent {
		writeCannedResponse(conn, status)
	}
}

func (s *Server) audit(req *request.Request, status int) {
	requestID := req.Headers["Request-Id"]
	s.opts.Audit.Record(req.Method, req.URI, status, requestID)
}

func (s *Server) respondParseError(conn net.Conn, err error) {
	status := 400

	switch {
	case errors.Is(err, request.ErrUnsupportedMethod):
		status = 501
	case errors.Is(err, request.ErrUnsupportedVersion):
		status = 505
	}

	writeCannedResponse(conn, status)
}
