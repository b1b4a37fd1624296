package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"matchcast/internal/domain"
	"matchcast/internal/usecase"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeUseCaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrEmptySource):
		writeError(w, http.StatusUnprocessableEntity, "empty_source", err.Error())
	case errors.Is(err, domain.ErrAlreadyStreaming):
		writeError(w, http.StatusConflict, "already_streaming", err.Error())
	case errors.Is(err, domain.ErrRefreshInProgress):
		writeError(w, http.StatusConflict, "refresh_in_progress", err.Error())
	case errors.Is(err, domain.ErrNotRegularFile):
		writeError(w, http.StatusConflict, "not_regular_file", err.Error())
	case errors.Is(err, usecase.ErrStreamErrored):
		writeError(w, http.StatusBadGateway, "stream_errored", err.Error())
	case errors.Is(err, usecase.ErrIO):
		writeError(w, http.StatusServiceUnavailable, "io_error", err.Error())
	case errors.Is(err, usecase.ErrRepository):
		writeError(w, http.StatusInternalServerError, "repository_error", err.Error())
	case errors.Is(err, usecase.ErrTranscoder):
		writeError(w, http.StatusInternalServerError, "transcoder_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
