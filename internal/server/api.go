package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/auditd/internal/audit"
	"github.com/felixgeelhaar/auditd/internal/errors"
	"github.com/felixgeelhaar/auditd/internal/stream"
)

// TokenPlaceholder in index.html is replaced with the capability token.
const TokenPlaceholder = "__SESSION_TOKEN__"

// RunHeader carries the run ID on audit stream responses.
const RunHeader = "X-Audit-Run"

// Client-facing error messages, kept identical to what the dashboard expects
var runErrorMessages = map[errors.ErrorCode]string{
	errors.ErrCodeSiteNotFound:       "Site niet gevonden",
	errors.ErrCodeContentUnavailable: "Content directory niet beschikbaar",
	errors.ErrCodeRunConflict:        "Audit al bezig",
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	html, err := os.ReadFile(filepath.Join(s.staticDir, "index.html"))
	if err != nil {
		s.logger.WithError(err).Error("failed to read index.html", "static_dir", s.staticDir)
		http.NotFound(w, r)
		return
	}

	page := strings.Replace(string(html), TokenPlaceholder, s.guard.Token(), 1)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(page))
}

func (s *Server) handleSites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Statuses())
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	// Set by the opener; from then on the response is an event stream and
	// every outcome has already been reported as an event.
	streaming := false

	err := s.coord.Run(r.Context(), slug, func(runID string) (audit.Sink, error) {
		w.Header().Set(RunHeader, runID)
		sw, err := stream.NewSSEWriter(w)
		if err != nil {
			return nil, err
		}
		streaming = true
		return sw, nil
	})

	switch {
	case streaming:
		return
	case errors.HasCode(err, errors.ErrCodeStreamOpen):
		// Headers are already out; nothing useful can be written.
		s.logger.WithError(err).Error("audit stream unavailable", "slug", slug)
		return
	case err != nil:
		s.writeRunError(w, err)
	}
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	msg, ok := runErrorMessages[code]
	if !ok {
		s.logger.WithError(err).Error("audit request failed")
		msg = "Interne fout"
	}
	writeJSON(w, errors.HTTPStatus(code), errorBody{Error: msg})
}

// staticHandler serves the static directory, refusing dotfiles such as .env
// and directory listings.
func (s *Server) staticHandler() http.Handler {
	files := http.FileServer(http.Dir(s.staticDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		for _, part := range strings.Split(clean, "/") {
			if strings.HasPrefix(part, ".") {
				http.NotFound(w, r)
				return
			}
		}
		if info, err := os.Stat(filepath.Join(s.staticDir, filepath.FromSlash(clean))); err == nil && info.IsDir() {
			if _, err := os.Stat(filepath.Join(s.staticDir, filepath.FromSlash(clean), "index.html")); err != nil {
				http.NotFound(w, r)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}
