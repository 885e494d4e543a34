package server

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/remotemouse/internal/protocol"
)

const (
	// readChunkSize bounds a single socket read; commands are tiny, so a
	// few KB is plenty.
	readChunkSize = 4096

	// readTimeout lets the read loop observe the running flag.
	readTimeout = 1 * time.Second

	// maxLineBytes caps how much of an unterminated line a session will
	// buffer; anything larger is discarded up to its terminator.
	maxLineBytes = 32768
)

// session owns one connection from accept to close. Complete lines are
// decoded and dispatched synchronously in arrival order, so commands
// from a single client are never reordered.
type session struct {
	id         string
	conn       net.Conn
	remoteAddr string
	srv        *Server

	// buffered bytes of a not-yet-terminated line
	pending []byte

	// discarding is set while skipping the remainder of an oversized line
	discarding bool

	commands int64
	once     sync.Once
}

func newSession(conn net.Conn, srv *Server) *session {
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return &session{
		id:         uuid.NewString(),
		conn:       conn,
		remoteAddr: remote,
		srv:        srv,
	}
}

func (c *session) run() {
	defer c.srv.sessWG.Done()
	defer c.teardown()

	buf := make([]byte, readChunkSize)
	for c.srv.running.Load() {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.pending = append(c.pending, buf[:n]...)
			c.drainLines()
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if err != io.EOF && c.srv.running.Load() {
				c.srv.log.Warn("session read error", "session", c.id, "error", err)
			}
			return
		}
	}
}

// drainLines splits the pending buffer on newlines and handles each
// complete line. Partial trailing data stays buffered; it is discarded
// on teardown without being dispatched.
func (c *session) drainLines() {
	for {
		idx := bytes.IndexByte(c.pending, '\n')
		if idx < 0 {
			if len(c.pending) > maxLineBytes {
				if !c.discarding {
					c.srv.log.Warn("dropping oversized line", "session", c.id, "buffered", len(c.pending))
					c.discarding = true
				}
				c.pending = c.pending[:0]
			}
			return
		}
		line := bytes.TrimSpace(c.pending[:idx])
		c.pending = c.pending[idx+1:]
		if c.discarding {
			// tail of an oversized line; its terminator ends the discard
			c.discarding = false
			continue
		}
		if idx > maxLineBytes {
			c.srv.log.Warn("dropping oversized line", "session", c.id, "buffered", idx)
			continue
		}
		if len(line) == 0 {
			continue
		}

		cmd, err := protocol.Decode(line)
		if err != nil {
			c.srv.log.Warn("undecodable command", "session", c.id, "error", err)
			continue
		}
		c.commands++
		c.srv.dispatcher.Dispatch(cmd)
	}
}

// closeConn forces the read loop out of a blocked read. Teardown then
// runs on the session's own goroutine.
func (c *session) closeConn() {
	c.conn.Close()
}

// teardown is idempotent and runs exactly once per session regardless
// of the exit cause.
func (c *session) teardown() {
	c.once.Do(func() {
		c.conn.Close()
		count := c.srv.removeSession(c.id)
		c.srv.log.Info("client disconnected", "session", c.id, "remote", c.remoteAddr, "total", count)
		c.srv.publishCount(count)
		c.srv.emit(Event{
			Kind:       EventDisconnected,
			SessionID:  c.id,
			RemoteAddr: c.remoteAddr,
			Commands:   c.commands,
			Time:       time.Now(),
		})
	})
}
