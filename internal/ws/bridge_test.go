package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/user/remotemouse/internal/config"
	"github.com/user/remotemouse/internal/dispatch"
	"github.com/user/remotemouse/internal/input"
	"github.com/user/remotemouse/internal/server"
)

type fakeActuator struct {
	mu    sync.Mutex
	x, y  int
	moves [][2]int
}

func (f *fakeActuator) Position() (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.x, f.y, nil
}

func (f *fakeActuator) ScreenSize() (int, int, error) { return 1920, 1080, nil }

func (f *fakeActuator) MoveTo(x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.x, f.y = x, y
	f.moves = append(f.moves, [2]int{x, y})
	return nil
}

func (f *fakeActuator) Click(input.Button) error { return nil }

func (f *fakeActuator) DoubleClick() error { return nil }

func (f *fakeActuator) Scroll(int, int) error { return nil }

func (f *fakeActuator) moveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.moves)
}

func newBridgedServer(t *testing.T, act *fakeActuator) (*server.Server, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	cfg.Port = 0
	d, err := dispatch.New(act, dispatch.PolicyFromConfig(cfg), nil)
	if err != nil {
		t.Fatalf("dispatch.New() error = %v", err)
	}

	srv := server.New(cfg, d, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(srv.Stop)

	web := httptest.NewServer(NewHandler(srv, nil))
	t.Cleanup(web.Close)
	return srv, web
}

func TestWebSocketClientDrivesPointer(t *testing.T) {
	act := &fakeActuator{x: 100, y: 100}
	srv, web := newBridgedServer(t, act)

	url := "ws" + strings.TrimPrefix(web.URL, "http")
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	dialCancel()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	writeCtx, writeCancel := context.WithTimeout(context.Background(), 1*time.Second)
	err = conn.Write(writeCtx, websocket.MessageText, []byte(`{"type":"move","deltaX":50,"deltaY":-20}`+"\n"))
	writeCancel()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && act.moveCount() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if act.moveCount() != 1 {
		t.Fatalf("expected 1 move, got %d", act.moveCount())
	}
	act.mu.Lock()
	target := act.moves[0]
	act.mu.Unlock()
	if target != [2]int{150, 80} {
		t.Errorf("move target = %v, want [150 80]", target)
	}

	conn.Close(websocket.StatusNormalClosure, "")

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && srv.ClientCount() != 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after close, want 0", srv.ClientCount())
	}
}

func TestWebSocketCountsAsSession(t *testing.T) {
	act := &fakeActuator{}
	srv, web := newBridgedServer(t, act)

	url := "ws" + strings.TrimPrefix(web.URL, "http")
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	dialCancel()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && srv.ClientCount() != 1 {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", srv.ClientCount())
	}
}

func TestIdleClientSurvivesPollDeadlines(t *testing.T) {
	act := &fakeActuator{x: 100, y: 100}
	srv, web := newBridgedServer(t, act)

	url := "ws" + strings.TrimPrefix(web.URL, "http")
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	dialCancel()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && srv.ClientCount() != 1 {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", srv.ClientCount())
	}

	// A phone is idle between gestures; several read-poll intervals
	// must pass without the session being torn down.
	time.Sleep(2500 * time.Millisecond)
	if srv.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d after idle period, want 1", srv.ClientCount())
	}

	writeCtx, writeCancel := context.WithTimeout(context.Background(), 1*time.Second)
	err = conn.Write(writeCtx, websocket.MessageText, []byte(`{"type":"move","deltaX":50,"deltaY":-20}`+"\n"))
	writeCancel()
	if err != nil {
		t.Fatalf("write after idle: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && act.moveCount() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if act.moveCount() != 1 {
		t.Fatalf("expected 1 move after idle period, got %d", act.moveCount())
	}
}

func TestRejectsWhenServerStopped(t *testing.T) {
	act := &fakeActuator{}
	cfg := config.Default()
	cfg.Port = 0
	d, err := dispatch.New(act, dispatch.PolicyFromConfig(cfg), nil)
	if err != nil {
		t.Fatalf("dispatch.New() error = %v", err)
	}
	srv := server.New(cfg, d, nil)

	web := httptest.NewServer(NewHandler(srv, nil))
	defer web.Close()

	resp, err := http.Get(web.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}
