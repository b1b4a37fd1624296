package apihttp

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"matchcast/internal/domain"
	"matchcast/internal/metrics"
)

// handleEventStream serves GET /events/{eventId}/stream: the playable
// client playlist for the event's best source.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/events/")
	if len(parts) != 2 || parts[1] != "stream" {
		writeError(w, http.StatusNotFound, "not_found", "unknown path")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	eventID, err := uuid.Parse(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid event id")
		return
	}

	pl, err := s.streams.BestStream(r.Context(), eventID)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

// handleSource routes /sources/{sourceId}/{stream|status|kill}.
func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/sources/")
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "not_found", "unknown path")
		return
	}
	sourceID, err := uuid.Parse(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid source id")
		return
	}

	switch {
	case parts[1] == "stream" && r.Method == http.MethodGet:
		pl, err := s.streams.StreamFor(r.Context(), sourceID)
		if err != nil {
			writeUseCaseError(w, err)
			return
		}
		if wantsM3U(r) {
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
			w.Write([]byte(pl.M3U()))
			return
		}
		writeJSON(w, http.StatusOK, pl)
	case parts[1] == "stream" && r.Method == http.MethodDelete:
		if err := s.streams.DeleteFor(r.Context(), sourceID); err != nil {
			writeUseCaseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case parts[1] == "status" && r.Method == http.MethodGet:
		status, err := s.streams.Status(r.Context(), sourceID)
		if err != nil {
			writeUseCaseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	case parts[1] == "kill" && r.Method == http.MethodPost:
		if err := s.streams.KillFor(r.Context(), sourceID); err != nil {
			writeUseCaseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// handleLocator routes /locators/{id}, /locators/{id}/playlist.m3u8,
// /locators/{id}/kill and /locators/{id}/{segment}.ts.
func (s *Server) handleLocator(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/locators/")
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "not_found", "unknown path")
		return
	}
	id64, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid locator id")
		return
	}
	id := domain.LocatorID(id64)

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.streams.DeleteOne(r.Context(), id); err != nil {
			writeUseCaseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && parts[1] == "kill" && r.Method == http.MethodPost:
		if err := s.streams.KillOne(r.Context(), id); err != nil {
			writeUseCaseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && parts[1] == "playlist.m3u8" && r.Method == http.MethodGet:
		s.servePlaylistFile(w, r, id)
	case len(parts) == 2 && strings.HasSuffix(parts[1], ".ts") && r.Method == http.MethodGet:
		s.serveSegment(w, r, id, parts[1])
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown path")
	}
}

func (s *Server) servePlaylistFile(w http.ResponseWriter, r *http.Request, id domain.LocatorID) {
	if s.playlists == nil {
		writeError(w, http.StatusNotImplemented, "not_available", "playlist files not available")
		return
	}
	data, err := s.playlists.ReadPlaylistFile(r.Context(), id)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

func (s *Server) serveSegment(w http.ResponseWriter, r *http.Request, id domain.LocatorID, name string) {
	if s.playlists == nil {
		writeError(w, http.StatusNotImplemented, "not_available", "segments not available")
		return
	}
	path, err := s.playlists.SegmentPath(r.Context(), id, name)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "segment not found")
		return
	}
	metrics.SegmentBytesServed.Add(float64(info.Size()))
	w.Header().Set("Content-Type", "video/mp2t")
	http.ServeFile(w, r, path)
}

func (s *Server) handleKillAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	if s.playlists == nil {
		writeError(w, http.StatusNotImplemented, "not_available", "kill-all not available")
		return
	}
	killed := s.playlists.KillAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"killed": killed})
}

type serverInfo struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`
}

func (s *Server) handleServers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	if s.servers == nil {
		writeError(w, http.StatusNotImplemented, "not_available", "file server admin not available")
		return
	}
	enabled := s.servers.ListEnabled()
	out := make([]serverInfo, 0, len(enabled))
	for _, srv := range enabled {
		out = append(out, serverInfo{ID: srv.ID(), Hostname: srv.Hostname()})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleServerByID routes POST /servers/{id}/enable and /servers/{id}/disable.
func (s *Server) handleServerByID(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/servers/")
	if len(parts) != 2 || r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "not_found", "unknown path")
		return
	}
	if s.servers == nil {
		writeError(w, http.StatusNotImplemented, "not_available", "file server admin not available")
		return
	}

	var err error
	switch parts[1] {
	case "enable":
		err = s.servers.Enable(parts[0])
	case "disable":
		err = s.servers.Disable(parts[0])
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown path")
		return
	}
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func wantsM3U(r *http.Request) bool {
	if r.URL.Query().Get("format") == "m3u" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "mpegurl")
}
