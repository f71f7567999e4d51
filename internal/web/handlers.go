package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
	"github.com/hugo-lorenzo-mato/crashguard/internal/ledger"
)

const (
	defaultCrashLimit = 50
	maxCrashLimit     = 1000
)

// CrashesResponse is the body of GET /api/v1/crashes.
type CrashesResponse struct {
	Window      string            `json:"window"`
	RecentCount int               `json:"recent_count"`
	Entries     []core.CrashEvent `json:"entries"`
	Skipped     int               `json:"skipped,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleAPIRoot returns API information.
func (s *Server) handleAPIRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"version": "v1", "name": "crashguard-api"})
}

func (s *Server) handleCrashes(w http.ResponseWriter, r *http.Request) {
	limit := defaultCrashLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxCrashLimit)
	}

	ctx := r.Context()
	count, err := s.ledger.RecentCount(ctx, s.window, s.now())
	if err != nil {
		s.logger.Error("reading crash ledger", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "reading crash ledger failed")
		return
	}
	lines, err := s.ledger.Tail(ctx, limit)
	if err != nil {
		s.logger.Error("reading crash ledger", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "reading crash ledger failed")
		return
	}

	resp := CrashesResponse{
		Window:      s.window.String(),
		RecentCount: count,
		Entries:     make([]core.CrashEvent, 0, len(lines)),
	}
	for _, line := range lines {
		ev, err := ledger.ParseLine(line)
		if err != nil {
			resp.Skipped++
			continue
		}
		resp.Entries = append(resp.Entries, ev)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

	alerts, err := s.alerts.List(r.Context(), unreadOnly)
	if err != nil {
		s.logger.Error("listing alerts", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "listing alerts failed")
		return
	}
	if alerts == nil {
		alerts = []core.Alert{}
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.alerts.MarkRead(r.Context(), id); err != nil {
		if core.IsCategory(err, core.ErrCatNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("marking alert read", slog.String("id", id), slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "marking alert read failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleArchive(w http.ResponseWriter, _ *http.Request) {
	dumps, err := s.archive.List()
	if err != nil {
		s.logger.Error("listing archive", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "listing archive failed")
		return
	}
	if dumps == nil {
		dumps = []core.ArchivedDump{}
	}
	respondJSON(w, http.StatusOK, dumps)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.report.Generate(r.Context())))
}
