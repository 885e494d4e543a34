package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/remotemouse/internal/config"
	"github.com/user/remotemouse/internal/dispatch"
)

// acceptTimeout bounds a blocked Accept so a cleared running flag is
// observed within about a second.
const acceptTimeout = 1 * time.Second

// ErrAlreadyRunning is returned by Start while the server is listening.
var ErrAlreadyRunning = errors.New("server already running")

type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
)

// Event describes a session lifecycle change, for the history log and
// any status display.
type Event struct {
	Kind       EventKind
	SessionID  string
	RemoteAddr string
	// Commands is the number of dispatched commands, reported on
	// disconnect.
	Commands int64
	Time     time.Time
}

// Server owns the listening socket and the registry of live sessions.
// Start and Stop may be called repeatedly; the port can change between
// a stop and the next start.
type Server struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger

	onCount func(int)
	onEvent func(Event)

	mu       sync.Mutex
	ln       net.Listener
	sessions map[string]*session
	running  atomic.Bool
	loopWG   sync.WaitGroup
	sessWG   sync.WaitGroup
}

func New(cfg *config.Config, d *dispatch.Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		dispatcher: d,
		log:        logger,
		sessions:   make(map[string]*session),
	}
}

// SetOnClientCount registers a callback invoked with the live session
// count whenever it changes. Must be set before Start.
func (s *Server) SetOnClientCount(fn func(int)) {
	s.onCount = fn
}

// SetOnSessionEvent registers a callback for connect/disconnect events.
// Must be set before Start.
func (s *Server) SetOnSessionEvent(fn func(Event)) {
	s.onEvent = fn
}

// Start binds the listening socket on all interfaces and launches the
// accept loop. A bind failure leaves the server stopped and is fatal to
// this attempt only.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("bind port %d: %w", s.cfg.Port, err)
	}

	s.ln = ln
	s.sessions = make(map[string]*session)
	s.running.Store(true)
	s.loopWG.Add(1)
	go s.acceptLoop(ln)

	s.log.Info("server listening", "addr", ln.Addr().String())
	return nil
}

// Stop clears the running flag, closes the listener and every session
// socket, and blocks until all sessions have torn down. Afterwards the
// registry is empty and the port is released.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return
	}
	s.running.Store(false)
	ln := s.ln
	s.ln = nil
	open := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, sess := range open {
		sess.closeConn()
	}

	s.loopWG.Wait()
	s.sessWG.Wait()
	s.publishCount(0)
	s.log.Info("server stopped")
}

// Addr returns the bound listen address, or "" when stopped. Useful
// when the configured port is 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) Running() bool {
	return s.running.Load()
}

// ClientCount returns the number of registered sessions.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.loopWG.Done()

	for s.running.Load() {
		if tl, ok := ln.(*net.TCPListener); ok {
			tl.SetDeadline(time.Now().Add(acceptTimeout))
		}
		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if s.running.Load() {
				s.log.Error("accept failed", "error", err)
			}
			return
		}
		s.HandleConn(conn)
	}
}

// HandleConn registers conn as a new session and starts its read loop.
// It is the single entry point for both accepted TCP connections and
// bridged WebSocket connections.
func (s *Server) HandleConn(conn net.Conn) {
	sess := newSession(conn, s)

	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.sessions[sess.id] = sess
	count := len(s.sessions)
	s.sessWG.Add(1)
	s.mu.Unlock()

	go sess.run()

	s.log.Info("client connected", "session", sess.id, "remote", sess.remoteAddr, "total", count)
	s.publishCount(count)
	s.emit(Event{
		Kind:       EventConnected,
		SessionID:  sess.id,
		RemoteAddr: sess.remoteAddr,
		Time:       time.Now(),
	})
}

// removeSession deletes the session from the registry. Called exactly
// once, from the owning session's teardown.
func (s *Server) removeSession(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return len(s.sessions)
}

func (s *Server) publishCount(count int) {
	if s.onCount != nil {
		s.onCount(count)
	}
}

func (s *Server) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
