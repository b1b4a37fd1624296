package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"matchcast/internal/domain"
	"matchcast/internal/domain/ports"
	"matchcast/internal/metrics"
)

// PingCache stores measured round-trip times per file server host.
type PingCache interface {
	Get(ctx context.Context, host string) (time.Duration, bool)
	Set(ctx context.Context, host string, rtt time.Duration)
}

// DelayAdvisor estimates how long a client should wait before a stream
// becomes playable, based on the aggregate state and measured network
// round-trip times to the file servers.
type DelayAdvisor struct {
	Files ports.FileResolver
	Cache PingCache
	Log   *slog.Logger

	// DefaultPing substitutes for hosts that were never measured.
	DefaultPing time.Duration
	// StartupOverhead covers process launch plus first segment write.
	StartupOverhead time.Duration
	// ReadyThreshold is the minimum aggregate completion ratio at which a
	// stream is considered playable.
	ReadyThreshold float64

	// DialTimeout bounds one ping attempt.
	DialTimeout time.Duration
	// dial is swappable in tests.
	dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// IsReady reports whether the playlist has transcoded enough to play.
func (a *DelayAdvisor) IsReady(pl domain.LocatorPlaylist) bool {
	st := pl.State()
	if st.Status == domain.JobCompleted {
		return true
	}
	return st.Status == domain.JobStreaming && st.CompletionRatio >= a.ReadyThreshold
}

// DelayAdvice returns the suggested wait before retrying the playlist. A
// playlist in the error state yields ErrStreamErrored; a ready playlist
// yields zero.
func (a *DelayAdvisor) DelayAdvice(ctx context.Context, pl domain.LocatorPlaylist) (time.Duration, error) {
	st := pl.State()
	if st.Status == domain.JobError {
		return 0, fmt.Errorf("%w: %s", ErrStreamErrored, st.Error)
	}
	if a.IsReady(pl) {
		return 0, nil
	}
	steps := st.Status.StepsToComplete()
	return time.Duration(steps)*a.pingTime(ctx, pl) + a.StartupOverhead, nil
}

// pingTime returns the cached round-trip time of the server hosting the
// playlist's first part, falling back to the default.
func (a *DelayAdvisor) pingTime(ctx context.Context, pl domain.LocatorPlaylist) time.Duration {
	if len(pl.Locators) == 0 || a.Cache == nil || a.Files == nil {
		return a.DefaultPing
	}
	srv, ok := a.Files.EnabledServerFor(pl.Locators[0].Part.ExternalURL)
	if !ok {
		return a.DefaultPing
	}
	if rtt, ok := a.Cache.Get(ctx, srv.Hostname()); ok {
		return rtt
	}
	return a.DefaultPing
}

// PingHost measures one TCP round trip to the host and records it. A
// failed dial records the timeout, leaving the advice pessimistic rather
// than stale.
func (a *DelayAdvisor) PingHost(ctx context.Context, host string) time.Duration {
	dial := a.dial
	if dial == nil {
		dial = func(network, addr string, timeout time.Duration) (net.Conn, error) {
			return net.DialTimeout(network, addr, timeout)
		}
	}

	start := time.Now()
	conn, err := dial("tcp", net.JoinHostPort(host, "443"), a.DialTimeout)
	rtt := time.Since(start)
	if err != nil {
		a.Log.Warn("pinging file server", "host", host, "error", err)
		rtt = a.DialTimeout
	} else {
		conn.Close()
	}

	if a.Cache != nil {
		a.Cache.Set(ctx, host, rtt)
	}
	metrics.ServerPingSeconds.WithLabelValues(host).Set(rtt.Seconds())
	return rtt
}

// PingEnabledServers sweeps every enabled file server once.
func (a *DelayAdvisor) PingEnabledServers(ctx context.Context) {
	if a.Files == nil {
		return
	}
	for _, srv := range a.Files.ListEnabled() {
		a.PingHost(ctx, srv.Hostname())
	}
}
