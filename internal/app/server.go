package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-todo-server/internal/config"
)

// quietPaths are paths that are not request-logged (e.g., health checks)
var quietPaths = map[string]bool{
	"/health": true,
}

// StartSSEServer starts the SSE server
func StartSSEServer(s *mcp.Server, settings *config.Settings) error {
	srv := NewSSEServer(s, settings)

	slog.Info("Server listening (HTTP)", "addr", srv.Addr)
	return srv.ListenAndServe()
}

// NewSSEServer creates a new SSE server with request logging
func NewSSEServer(s *mcp.Server, settings *config.Settings) *http.Server {
	// Factory function returns the server instance for each request
	sseHandler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return s
	}, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/sse", sseHandler)

	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)

	return &http.Server{
		Addr:    addr,
		Handler: requestLogger(slog.Default())(mux),
	}
}

// requestLogger logs every request except quiet paths at debug level
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !quietPaths[r.URL.Path] {
				logger.DebugContext(r.Context(), "HTTP request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			}
			next.ServeHTTP(w, r)
		})
	}
}
