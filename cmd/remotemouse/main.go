package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/remotemouse/internal/config"
	"github.com/user/remotemouse/internal/dispatch"
	"github.com/user/remotemouse/internal/history"
	"github.com/user/remotemouse/internal/input"
	"github.com/user/remotemouse/internal/netinfo"
	"github.com/user/remotemouse/internal/server"
	"github.com/user/remotemouse/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	act := input.NewDesktop()
	dispatcher, err := dispatch.New(act, dispatch.PolicyFromConfig(cfg), nil)
	if err != nil {
		slog.Error("failed to query screen", "error", err)
		os.Exit(1)
	}
	width, height := dispatcher.Bounds()
	slog.Info("screen resolution", "width", width, "height", height)

	srv := server.New(cfg, dispatcher, nil)
	srv.SetOnClientCount(func(n int) {
		slog.Info("connected devices", "count", n)
	})

	var store *history.Store
	if cfg.HistoryPath != "" {
		store, err = history.Open(context.Background(), cfg.HistoryPath)
		if err != nil {
			slog.Error("failed to open history database", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		srv.SetOnSessionEvent(func(ev server.Event) {
			err := store.Record(context.Background(), history.Entry{
				SessionID:  ev.SessionID,
				RemoteAddr: ev.RemoteAddr,
				Event:      string(ev.Kind),
				Commands:   ev.Commands,
				CreatedAt:  ev.Time,
			})
			if err != nil {
				slog.Warn("failed to record session event", "error", err)
			}
		})
	}

	if err := srv.Start(); err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	pairing := netinfo.PairingInfo(netinfo.LocalIP(), cfg.Port)
	payload, err := pairing.Encode()
	if err != nil {
		slog.Warn("failed to encode pairing payload", "error", err)
	}
	fmt.Printf("\nremotemouse listening on %s:%d\npairing payload: %s\n\n", pairing.IP, cfg.Port, payload)

	var webSrv *http.Server
	if cfg.WebPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/ws", ws.NewHandler(srv, nil))
		webSrv = &http.Server{
			Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.WebPort),
			Handler: mux,
		}
		go func() {
			slog.Info("websocket bridge listening", "addr", webSrv.Addr)
			if err := webSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("websocket bridge failed", "error", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutdown signal received")
	if webSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = webSrv.Shutdown(shutdownCtx)
		cancel()
	}
	srv.Stop()
}
