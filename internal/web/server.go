package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Controller exposes engine actions to the HTTP API.
// Implementations must be safe to call concurrently.
type Controller interface {
	ResetOrigin(immediate bool) error
	SetMode(mode string) error
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The appliance serves a single trusted LAN.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func Handler(status *Status, broadcaster *TiltBroadcaster, logs *LogBuffer, ctl Controller) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})

	mux.HandleFunc("/api/tilt/origin/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if ctl == nil {
			http.Error(w, "engine unavailable", http.StatusNotFound)
			return
		}
		immediate := strings.EqualFold(r.URL.Query().Get("immediate"), "true")
		if err := ctl.ResetOrigin(immediate); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{\"ok\":true}\n"))
	})

	mux.HandleFunc("/api/tilt/mode", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if ctl == nil {
			http.Error(w, "engine unavailable", http.StatusNotFound)
			return
		}
		var req struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if err := ctl.SetMode(req.Mode); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		status.SetMode(req.Mode)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{\"ok\":true}\n"))
	})

	// Server-sent events stream of solved orientations.
	mux.HandleFunc("/api/tilt/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if broadcaster == nil {
			http.Error(w, "stream unavailable", http.StatusNotFound)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		id, ch := broadcaster.Subscribe(4)
		defer broadcaster.Unsubscribe(id)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case o, ok := <-ch:
				if !ok {
					return
				}
				b, err := json.Marshal(o)
				if err != nil {
					continue
				}
				_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
				flusher.Flush()
			}
		}
	})

	// WebSocket stream of solved orientations.
	mux.HandleFunc("/api/tilt/ws", func(w http.ResponseWriter, r *http.Request) {
		if broadcaster == nil {
			http.Error(w, "stream unavailable", http.StatusNotFound)
			return
		}
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, ch := broadcaster.Subscribe(4)
		defer broadcaster.Unsubscribe(id)

		// Reader goroutine: surfaces client close.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case <-r.Context().Done():
				return
			case o, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteJSON(o); err != nil {
					return
				}
			}
		}
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.Handle("/api/about", AboutHandler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		snap := status.Snapshot(time.Now().UTC())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>tiltd</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>tiltd</h1>")
		_, _ = fmt.Fprintf(w, "<p>See <a href=\"/api/status\">/api/status</a> or stream <a href=\"/api/tilt/stream\">/api/tilt/stream</a>.</p>")
		_, _ = fmt.Fprintf(w, "<pre>tracking=%t\ntier=%s\nmode=%s\nyaw=%.2f pitch=%.2f roll=%.2f</pre>",
			snap.Tracking, snap.Tier, snap.Mode,
			snap.Orientation.YawDeg, snap.Orientation.PitchDeg, snap.Orientation.RollDeg,
		)
		_, _ = fmt.Fprintf(w, "</body></html>")
	})

	return mux
}

func Serve(ctx context.Context, listenAddr string, status *Status, broadcaster *TiltBroadcaster, logs *LogBuffer, ctl Controller) error {
	if status == nil {
		status = NewStatus()
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, broadcaster, logs, ctl),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.WithField("addr", listenAddr).Info("web: listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
