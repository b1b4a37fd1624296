package fileserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"matchcast/internal/domain"
	"matchcast/internal/domain/ports"
	"matchcast/internal/metrics"
)

// Manager is the file server registry. Servers register once at startup
// and can be enabled or disabled at runtime; resolution always goes
// through an enabled server.
type Manager struct {
	Log *slog.Logger

	mu       sync.RWMutex
	servers  map[string]ports.FileServer
	disabled map[string]bool

	refreshMu sync.Mutex
	inflight  map[uuid.UUID]bool
}

func NewManager(log *slog.Logger) *Manager {
	return &Manager{
		Log:      log,
		servers:  make(map[string]ports.FileServer),
		disabled: make(map[string]bool),
		inflight: make(map[uuid.UUID]bool),
	}
}

func (m *Manager) Register(srv ports.FileServer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers[srv.ID()] = srv
	m.Log.Info("registered file server", "id", srv.ID(), "host", srv.Hostname())
}

// Enable marks the server usable. Unknown IDs return domain.ErrNotFound.
func (m *Manager) Enable(id string) error {
	return m.setDisabled(id, false)
}

func (m *Manager) Disable(id string) error {
	return m.setDisabled(id, true)
}

func (m *Manager) setDisabled(id string, disabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.servers[id]; !ok {
		return fmt.Errorf("%w: file server %s", domain.ErrNotFound, id)
	}
	m.disabled[id] = disabled
	return nil
}

// EnabledServerFor returns an enabled server accepting the URL, or false.
func (m *Manager) EnabledServerFor(externalURL string) (ports.FileServer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, srv := range m.servers {
		if !m.disabled[id] && srv.Accepts(externalURL) {
			return srv, true
		}
	}
	return nil, false
}

func (m *Manager) ListEnabled() []ports.FileServer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ports.FileServer, 0, len(m.servers))
	for id, srv := range m.servers {
		if !m.disabled[id] {
			out = append(out, srv)
		}
	}
	return out
}

// Refresh resolves the part's internal download URL. A still-fresh URL is
// returned as-is; a refresh already running for the same part fails fast
// with domain.ErrRefreshInProgress rather than queueing.
func (m *Manager) Refresh(ctx context.Context, part domain.Part) (domain.Part, error) {
	srv, ok := m.EnabledServerFor(part.ExternalURL)
	if !ok {
		metrics.FileRefreshes.WithLabelValues("no_server").Inc()
		return domain.Part{}, fmt.Errorf("%w: no enabled server accepts %s", domain.ErrNotFound, part.ExternalURL)
	}

	if part.InternalURL != "" && time.Since(part.LastRefreshed) < srv.RefreshInterval() {
		metrics.FileRefreshes.WithLabelValues("fresh").Inc()
		return part, nil
	}

	m.refreshMu.Lock()
	if m.inflight[part.ID] {
		m.refreshMu.Unlock()
		metrics.FileRefreshes.WithLabelValues("conflict").Inc()
		return domain.Part{}, fmt.Errorf("%w: part %s", domain.ErrRefreshInProgress, part.ID)
	}
	m.inflight[part.ID] = true
	m.refreshMu.Unlock()
	defer func() {
		m.refreshMu.Lock()
		delete(m.inflight, part.ID)
		m.refreshMu.Unlock()
	}()

	url, err := srv.ResolveDownloadURL(ctx, part.ExternalURL)
	if err != nil {
		metrics.FileRefreshes.WithLabelValues("error").Inc()
		return domain.Part{}, fmt.Errorf("resolving %s via %s: %w", part.ExternalURL, srv.ID(), err)
	}
	metrics.FileRefreshes.WithLabelValues("ok").Inc()

	part.InternalURL = url
	part.LastRefreshed = time.Now().UTC()
	m.Log.Debug("refreshed part", "partId", part.ID, "server", srv.ID())
	return part, nil
}
