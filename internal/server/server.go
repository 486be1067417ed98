package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"

	"property-tour-router/internal/handlers"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	env        *Environment
	listener   net.Listener
	addr       string
}

// New creates and initializes a new server (does not start it)
func New(env *Environment) *Server {
	cfg := env.Config

	handler := &handlers.Handler{
		Sessions:  env.Sessions,
		Dataset:   env.Dataset,
		Graph:     env.Graph,
		Incidents: env.Incidents,
		Version:   Version,
	}
	if env.Store != nil {
		handler.DB = env.Store
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		env:        env,
		addr:       cfg.Server.Addr,
	}
}

// Start begins listening and returns the actual address (useful when port is 0)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	actualAddr := listener.Addr().String()
	log.Printf("[HTTP] Server listening on http://%s", actualAddr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] Server error: %v", err)
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server and releases the environment
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("[HTTP] Shutting down server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := s.env.Close(); err != nil {
		return fmt.Errorf("failed to close environment: %w", err)
	}

	log.Printf("[HTTP] Server shutdown complete")
	return nil
}

// NewRouter builds the API mux wrapped in logging and CORS middleware
func NewRouter(handler *handlers.Handler, allowedOrigins []string) http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return loggingMiddleware(corsHandler.Handler(setupRoutes(handler)))
}

func setupRoutes(handler *handlers.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", handler.HandleHealthCheck)

	mux.HandleFunc("/api/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.HandleCreateSession(w, r)
	})

	mux.HandleFunc("/api/v1/sessions/", func(w http.ResponseWriter, r *http.Request) {
		segments := handlers.PathSegments(r.URL.Path, "/api/v1/sessions/")
		if len(segments) == 0 {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}

		action := ""
		if len(segments) > 1 {
			action = segments[1]
		}

		switch {
		case action == "" && len(segments) == 1:
			switch r.Method {
			case http.MethodGet:
				handler.HandleGetSession(w, r)
			case http.MethodDelete:
				handler.HandleDeleteSession(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		case action == "start" && len(segments) == 2:
			methodOnly(w, r, http.MethodPut, handler.HandleSetStart)
		case action == "stops" && len(segments) == 2:
			methodOnly(w, r, http.MethodPost, handler.HandleAddStop)
		case action == "stops" && len(segments) == 3:
			methodOnly(w, r, http.MethodDelete, handler.HandleRemoveStop)
		case action == "optimize" && len(segments) == 2:
			methodOnly(w, r, http.MethodPost, handler.HandleOptimize)
		case action == "route" && len(segments) == 2:
			methodOnly(w, r, http.MethodPost, handler.HandleGenerateRoute)
		case action == "cancellations" && len(segments) == 2:
			methodOnly(w, r, http.MethodGet, handler.HandleListCancellations)
		case action == "history" && len(segments) == 2:
			methodOnly(w, r, http.MethodGet, handler.HandleSessionHistory)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	})

	mux.HandleFunc("/api/v1/properties", func(w http.ResponseWriter, r *http.Request) {
		methodOnly(w, r, http.MethodGet, handler.HandleListProperties)
	})

	mux.HandleFunc("/api/v1/properties/filter", func(w http.ResponseWriter, r *http.Request) {
		methodOnly(w, r, http.MethodPost, handler.HandleFilterProperties)
	})

	mux.HandleFunc("/api/v1/pois", func(w http.ResponseWriter, r *http.Request) {
		methodOnly(w, r, http.MethodGet, handler.HandleListPOIs)
	})

	mux.HandleFunc("/api/v1/threats/simulate", func(w http.ResponseWriter, r *http.Request) {
		methodOnly(w, r, http.MethodPost, handler.HandleSimulateThreats)
	})

	mux.HandleFunc("/api/v1/threats/simulations/", func(w http.ResponseWriter, r *http.Request) {
		methodOnly(w, r, http.MethodGet, handler.HandleGetSimulation)
	})

	mux.HandleFunc("/api/v1/threats/route-risk", func(w http.ResponseWriter, r *http.Request) {
		methodOnly(w, r, http.MethodPost, handler.HandleRouteRisk)
	})

	return mux
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string, fn http.HandlerFunc) {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	fn(w, r)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		log.Printf("[HTTP] %s %s %d %v", r.Method, r.URL.Path, lrw.statusCode, duration)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
