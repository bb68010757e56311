package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/autocitation/autocite/internal/styles"
	"github.com/autocitation/autocite/pkg/core"
	"github.com/autocitation/autocite/pkg/csl"
	"github.com/autocitation/autocite/pkg/format"
	"github.com/autocitation/autocite/pkg/validate"
)

func (s *Server) routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/records", s.handleRecords)
		r.Get("/records/{id}", s.handleRecord)
		r.Get("/issues", s.handleIssues)
		r.Get("/references", s.handleReferences)
		r.Get("/styles", s.handleStyles)
		r.Get("/events", s.handleEvents)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// RecordSummary is one entry of GET /api/records.
type RecordSummary struct {
	ID          string           `json:"id"`
	Type        core.RecordType  `json:"type"`
	Title       string           `json:"title"`
	Year        string           `json:"year"`
	FirstAuthor string           `json:"first_author"`
	SourceFile  string           `json:"source_file,omitempty"`
	Dirty       bool             `json:"dirty"`
	Issues      core.IssueCounts `json:"issues"`
}

// RecordsResponse is the body of GET /api/records.
type RecordsResponse struct {
	Folder  string           `json:"folder"`
	Total   int              `json:"total"`
	Issues  core.IssueCounts `json:"issues"`
	Records []RecordSummary  `json:"records"`
}

// IssuesResponse is the body of GET /api/issues.
type IssuesResponse struct {
	Counts  core.IssueCounts `json:"counts"`
	Global  []core.Issue     `json:"global"`
	Records []core.Issue     `json:"records"`
}

// ReferencesResponse is the body of GET /api/references.
type ReferencesResponse struct {
	Style      string   `json:"style"`
	Sort       string   `json:"sort"`
	References []string `json:"references"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

var errNotLoaded = errors.New("project not loaded")

// project returns the loaded project or writes a 503.
func (s *Server) project(w http.ResponseWriter) *core.Project {
	proj := s.Project()
	if proj == nil {
		writeError(w, http.StatusServiceUnavailable, errNotLoaded)
	}
	return proj
}

func (s *Server) handleRecords(w http.ResponseWriter, _ *http.Request) {
	proj := s.project(w)
	if proj == nil {
		return
	}

	resp := RecordsResponse{
		Folder:  proj.Folder,
		Total:   len(proj.Records),
		Issues:  proj.IssueCounts(),
		Records: make([]RecordSummary, 0, len(proj.Records)),
	}
	for _, rec := range proj.Records {
		resp.Records = append(resp.Records, RecordSummary{
			ID:          rec.ID,
			Type:        rec.Type,
			Title:       rec.Title,
			Year:        rec.YearString(),
			FirstAuthor: rec.FirstAuthorDisplay(),
			SourceFile:  rec.SourceFile,
			Dirty:       rec.Dirty,
			Issues:      rec.IssueCounts(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	proj := s.project(w)
	if proj == nil {
		return
	}

	id := chi.URLParam(r, "id")
	rec, ok := proj.GetRecord(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("record %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	proj := s.project(w)
	if proj == nil {
		return
	}

	minSev := core.SeverityInfo
	if v := r.URL.Query().Get("severity"); v != "" {
		sev, ok := core.ParseSeverity(v)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid severity %q", v))
			return
		}
		minSev = sev
	}

	resp := IssuesResponse{
		Counts:  proj.IssueCounts(),
		Global:  validate.FilterBySeverity(proj.Issues, minSev),
		Records: validate.FilterBySeverity(proj.AllIssues(), minSev),
	}
	if resp.Global == nil {
		resp.Global = []core.Issue{}
	}
	if resp.Records == nil {
		resp.Records = []core.Issue{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReferences formats the reference list, optionally with a style and
// sort mode other than the configured ones.
func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	proj := s.project(w)
	if proj == nil {
		return
	}

	s.mu.RLock()
	pipeline := s.pipeline
	s.mu.RUnlock()

	view := *proj
	q := r.URL.Query()
	if v := q.Get("style"); v != "" {
		view.Settings.StyleID = styles.Resolve(v, s.cfg.StyleDirs...)
	}
	if v := q.Get("sort"); v != "" {
		view.Settings.SortMode = v
	}
	if v := q.Get("locale"); v != "" {
		view.Settings.CSLLocale = v
	}

	text, err := pipeline.FormatReferences(&view)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, format.ErrUnknownStyle) || errors.Is(err, format.ErrUnknownSortMode) ||
			errors.Is(err, csl.ErrStyleNotFound) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprint(w, text)
		return
	}

	refs := []string{}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			refs = append(refs, line)
		}
	}
	writeJSON(w, http.StatusOK, ReferencesResponse{
		Style:      view.Settings.StyleID,
		Sort:       view.Settings.SortMode,
		References: refs,
	})
}

func (s *Server) handleStyles(w http.ResponseWriter, _ *http.Request) {
	list := styles.ListStyles(styles.Options{
		IncludeBuiltin: true,
		IncludeCSL:     true,
		Dirs:           s.cfg.StyleDirs,
	})
	if list == nil {
		list = []styles.StyleRef{}
	}
	writeJSON(w, http.StatusOK, list)
}

// handleEvents streams reload events as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("failed to encode event", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: reload\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
