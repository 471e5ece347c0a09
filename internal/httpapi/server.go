// Package httpapi serves the live code graph over HTTP and WebSocket.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/meridiancode/meridian/internal/broadcast"
	"github.com/meridiancode/meridian/internal/graph"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[2m"
)

const version = "0.1.0"

func statusColor(code int) string {
	switch {
	case code >= 500:
		return colorRed
	case code >= 400:
		return colorYellow
	case code >= 300:
		return colorCyan
	default:
		return colorGreen
	}
}

func methodColor(method string) string {
	switch method {
	case "GET":
		return colorGreen
	case "POST":
		return colorCyan
	case "PUT", "PATCH":
		return colorYellow
	case "DELETE":
		return colorRed
	default:
		return colorReset
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		duration := time.Since(start)

		fmt.Fprintf(os.Stdout, "%s%-7s%s %s %s%d%s %s%s%s\n",
			methodColor(r.Method), r.Method, colorReset,
			r.URL.Path,
			statusColor(status), status, colorReset,
			colorDim, duration, colorReset,
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewServer wires the graph snapshot/health/websocket routes over store and
// hub, listening on port.
func NewServer(store *graph.Store, hub *broadcast.Hub, port string) *http.Server {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	r.Get("/api/health", healthHandler)
	r.Get("/api/graph", graphHandler(store))
	r.Get("/ws", websocketHandler(hub))

	return &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
}

// Run starts srv and blocks until SIGINT/SIGTERM, then gracefully shuts it
// down. The caller is responsible for shutting down the watcher, updater,
// parser pool, and broadcast hub around this call per the shutdown order in
// the concurrency model.
func Run(srv *http.Server) error {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("httpapi: server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("httpapi: server error", "error", err)
		}
	}()

	<-done
	slog.Info("httpapi: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("httpapi: server shutdown: %w", err)
	}
	slog.Info("httpapi: server stopped")
	return nil
}
