// Command mock-upstream runs a small upstream service for trying out
// the proxy. It echoes the identity headers the proxy forwards, so a
// request's resolved user is visible in the response.
//
// Configuration:
//
//	UPSTREAM_PORT - Listen port (default: 9000)
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("UPSTREAM_PORT")
	if port == "" {
		port = "9000"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", handleEcho)
	mux.HandleFunc("GET /headers", handleHeaders)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock upstream starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock upstream failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock upstream shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// handleEcho reports the request and the identity the proxy resolved.
func handleEcho(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"method":       r.Method,
		"path":         r.URL.Path,
		"user":         r.Header.Get("X-Forwarded-User"),
		"auth_type":    r.Header.Get("X-Forwarded-Auth-Type"),
		"impersonator": r.Header.Get("X-Forwarded-Impersonator"),
	})
}

// handleHeaders dumps all request headers for debugging.
func handleHeaders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r.Header)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
