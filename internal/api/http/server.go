package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/google/uuid"

	"matchcast/internal/domain"
	"matchcast/internal/domain/ports"
	"matchcast/internal/usecase"
)

type StreamingUseCase interface {
	BestStream(ctx context.Context, eventID uuid.UUID) (domain.ClientPlaylist, error)
	StreamFor(ctx context.Context, sourceID uuid.UUID) (domain.ClientPlaylist, error)
	Status(ctx context.Context, sourceID uuid.UUID) (usecase.StreamStatus, error)
	KillFor(ctx context.Context, sourceID uuid.UUID) error
	KillOne(ctx context.Context, id domain.LocatorID) error
	DeleteFor(ctx context.Context, sourceID uuid.UUID) error
	DeleteOne(ctx context.Context, id domain.LocatorID) error
}

type PlaylistFileUseCase interface {
	ReadPlaylistFile(ctx context.Context, id domain.LocatorID) ([]byte, error)
	SegmentPath(ctx context.Context, id domain.LocatorID, segment string) (string, error)
	KillAll(ctx context.Context) int
}

type FileServerAdmin interface {
	Enable(id string) error
	Disable(id string) error
	ListEnabled() []ports.FileServer
}

type Server struct {
	streams   StreamingUseCase
	playlists PlaylistFileUseCase
	servers   FileServerAdmin
	logger    *slog.Logger
	handler   http.Handler
	wsHub     *wsHub

	rateRPS   float64
	rateBurst int
}

type ServerOption func(*Server)

func WithPlaylistFiles(uc PlaylistFileUseCase) ServerOption {
	return func(s *Server) { s.playlists = uc }
}

func WithFileServerAdmin(admin FileServerAdmin) ServerOption {
	return func(s *Server) { s.servers = admin }
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateRPS = rps
		s.rateBurst = burst
	}
}

func NewServer(streams StreamingUseCase, opts ...ServerOption) *Server {
	s := &Server{
		streams:   streams,
		rateRPS:   100,
		rateBurst: 200,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/events/", s.handleEventStream)
	mux.HandleFunc("/sources/", s.handleSource)
	mux.HandleFunc("/locators/", s.handleLocator)
	mux.HandleFunc("/streams/kill-all", s.handleKillAll)
	mux.HandleFunc("/servers", s.handleServers)
	mux.HandleFunc("/servers/", s.handleServerByID)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "matchcast",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/healthz"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateRPS, s.rateBurst, metricsMiddleware(corsMiddleware(traced))))
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

// Notifier exposes the websocket hub as a status notifier for wiring into
// the locator service.
func (s *Server) Notifier() *wsHub { return s.wsHub }

func (s *Server) Close() {
	s.wsHub.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// ListenAndServe runs the HTTP server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// pathParts splits the URL path below a prefix into its segments.
func pathParts(path, prefix string) []string {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
