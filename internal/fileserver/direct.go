package fileserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DirectServer serves files whose external URL is already downloadable.
// Resolution verifies the file is reachable and returns the URL unchanged.
type DirectServer struct {
	Name     string
	Host     string
	Client   *http.Client
	Interval time.Duration
}

func (s *DirectServer) ID() string       { return s.Name }
func (s *DirectServer) Hostname() string { return s.Host }

func (s *DirectServer) Accepts(externalURL string) bool {
	u, err := url.Parse(externalURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host == s.Host
}

func (s *DirectServer) ResolveDownloadURL(ctx context.Context, externalURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, externalURL, nil)
	if err != nil {
		return "", err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("probing %s: %w", externalURL, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("probing %s: status %d", externalURL, resp.StatusCode)
	}
	return externalURL, nil
}

func (s *DirectServer) RefreshInterval() time.Duration {
	if s.Interval <= 0 {
		return time.Hour
	}
	return s.Interval
}
