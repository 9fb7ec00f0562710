package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wesm/ologbrowse/internal/browse"
	"github.com/wesm/ologbrowse/internal/display"
	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/search"
)

// maxQueryBody bounds PUT /query and PUT /page request bodies.
const maxQueryBody = 64 << 10

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// PageInfo is the JSON form of search.PageParams.
type PageInfo struct {
	Sort string `json:"sort"`
	From int    `json:"from"`
	Size int    `json:"size"`
}

// EntrySummary represents a log entry in list responses.
type EntrySummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Owner       string   `json:"owner"`
	Level       string   `json:"level"`
	CreatedDate string   `json:"created_date"`
	Logbooks    []string `json:"logbooks"`
	Tags        []string `json:"tags"`
	GroupID     string   `json:"group_id,omitempty"`
}

// PropertyInfo represents a named group of attributes.
type PropertyInfo struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

// AttachmentInfo represents attachment metadata.
type AttachmentInfo struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
}

// EntryDetail represents a full log entry with its neighbors in the current
// display sequence.
type EntryDetail struct {
	EntrySummary
	Description string           `json:"description"`
	State       string           `json:"state,omitempty"`
	ModifyDate  string           `json:"modify_date,omitempty"`
	Properties  []PropertyInfo   `json:"properties"`
	Attachments []AttachmentInfo `json:"attachments"`
	PreviousID  string           `json:"previous_id,omitempty"`
	NextID      string           `json:"next_id,omitempty"`
}

// ResultsResponse is the current display sequence and search state.
type ResultsResponse struct {
	Query       string         `json:"query"`
	Page        PageInfo       `json:"page"`
	Total       int64          `json:"total"`
	Loading     bool           `json:"loading"`
	SearchError string         `json:"search_error,omitempty"`
	UpdatedAt   string         `json:"updated_at,omitempty"`
	Entries     []EntrySummary `json:"entries"`
}

// QueryResponse carries a canonical query string.
type QueryResponse struct {
	Query string `json:"query"`
}

// SchedulerStatusResponse represents scheduler status.
type SchedulerStatusResponse struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toPageInfo(p search.PageParams) PageInfo {
	return PageInfo{Sort: p.Sort.String(), From: p.From, Size: p.Size}
}

func toSummary(e logbook.LogEntry) EntrySummary {
	return EntrySummary{
		ID:          e.ID,
		Title:       e.Title,
		Owner:       e.Owner,
		Level:       e.Level,
		CreatedDate: formatTime(e.CreatedDate),
		Logbooks:    nonNil(e.Logbooks),
		Tags:        nonNil(e.Tags),
		GroupID:     e.GroupID(),
	}
}

func toDetail(e logbook.LogEntry, n display.Neighbors) EntryDetail {
	d := EntryDetail{
		EntrySummary: toSummary(e),
		Description:  e.Description,
		State:        e.State,
		Properties:   []PropertyInfo{},
		Attachments:  []AttachmentInfo{},
	}
	if e.ModifyDate != nil {
		d.ModifyDate = formatTime(*e.ModifyDate)
	}
	for _, p := range e.Properties {
		attrs := make(map[string]string, len(p.Attributes))
		for _, a := range p.Attributes {
			attrs[a.Name] = a.Value
		}
		d.Properties = append(d.Properties, PropertyInfo{Name: p.Name, Attributes: attrs})
	}
	for _, a := range e.Attachments {
		d.Attachments = append(d.Attachments, AttachmentInfo{ID: a.ID, Filename: a.Filename, ContentType: a.ContentType})
	}
	if n.Previous != nil {
		d.PreviousID = n.Previous.ID
	}
	if n.Next != nil {
		d.NextID = n.Next.ID
	}
	return d
}

func toResults(v browse.View) ResultsResponse {
	resp := ResultsResponse{
		Query:     v.Query,
		Page:      toPageInfo(v.Page),
		Total:     v.TotalCount,
		Loading:   v.Loading,
		UpdatedAt: formatTime(v.UpdatedAt),
		Entries:   make([]EntrySummary, 0, len(v.Entries)),
	}
	if v.SearchErr != nil {
		resp.SearchError = v.SearchErr.Error()
	}
	for _, e := range v.Entries {
		resp.Entries = append(resp.Entries, toSummary(e))
	}
	return resp
}

// requireSession writes a 503 and reports false when no session is attached.
func (s *Server) requireSession(w http.ResponseWriter) bool {
	if s.session == nil {
		writeError(w, http.StatusServiceUnavailable, "session_unavailable", "No browsing session")
		return false
	}
	return true
}

// handleResults returns the current display sequence.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	writeJSON(w, http.StatusOK, toResults(s.session.Snapshot()))
}

// handleRefresh polls immediately.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	s.session.Refresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleDismissError hides the current search error.
func (s *Server) handleDismissError(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	s.session.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

// handleGetQuery returns the canonical query string.
func (s *Server) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Query: s.session.Snapshot().Query})
}

// handlePutQuery applies a query string taken from the raw request body.
// Malformed tokens are skipped, so any body is accepted.
func (s *Server) handlePutQuery(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Could not read request body")
		return
	}
	c := s.session.ApplyQuery(strings.TrimSpace(string(body)))
	s.logger.Info("query applied via API", "query", search.Encode(c))
	writeJSON(w, http.StatusOK, QueryResponse{Query: search.Encode(c)})
}

// handlePutPage sets the page params. Omitted fields keep their values.
func (s *Server) handlePutPage(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	var req struct {
		Sort *string `json:"sort"`
		From *int    `json:"from"`
		Size *int    `json:"size"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxQueryBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Body must be JSON {sort, from, size}")
		return
	}

	p := s.session.Snapshot().Page
	if req.Sort != nil {
		dir, ok := search.ParseSortDirection(*req.Sort)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_sort", "sort must be \"up\" or \"down\"")
			return
		}
		p.Sort = dir
	}
	if req.From != nil {
		p.From = *req.From
	}
	if req.Size != nil {
		p.Size = *req.Size
	}
	s.session.SetPageParams(p)
	writeJSON(w, http.StatusOK, toPageInfo(s.session.Snapshot().Page))
}

// handleGetEntry fetches one entry and locates it in the display sequence.
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	id := chi.URLParam(r, "id")

	entry, err := s.session.Client().GetEntry(r.Context(), id)
	switch logbook.Classify(err) {
	case logbook.ErrorKindNotFound:
		writeError(w, http.StatusNotFound, "not_found", "Log entry "+id+" not found")
		return
	case logbook.ErrorKindFetch:
		s.logger.Error("failed to get log entry", "id", id, "error", err)
		var se *logbook.ServiceError
		msg := "Failed to retrieve log entry"
		if errors.As(err, &se) {
			msg = se.Error()
		}
		writeError(w, http.StatusBadGateway, "fetch_error", msg)
		return
	}

	n := display.Locate(s.session.Snapshot().Entries, id)
	writeJSON(w, http.StatusOK, toDetail(*entry, n))
}

// handleListLogbooks returns logbook names from the service.
func (s *Server) handleListLogbooks(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	names, err := s.session.Client().ListLogbooks(r.Context())
	if err != nil {
		s.logger.Error("failed to list logbooks", "error", err)
		writeError(w, http.StatusBadGateway, "fetch_error", "Failed to list logbooks")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"logbooks": nonNil(names)})
}

// handleListTags returns tag names from the service.
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	if !s.requireSession(w) {
		return
	}
	names, err := s.session.Client().ListTags(r.Context())
	if err != nil {
		s.logger.Error("failed to list tags", "error", err)
		writeError(w, http.StatusBadGateway, "fetch_error", "Failed to list tags")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tags": nonNil(names)})
}

// handleSchedulerStatus returns the scheduler status.
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler_unavailable", "Scheduler not running")
		return
	}
	jobs := s.scheduler.Status()
	if jobs == nil {
		jobs = []JobStatus{}
	}
	writeJSON(w, http.StatusOK, SchedulerStatusResponse{
		Running: s.scheduler.IsRunning(),
		Jobs:    jobs,
	})
}

// handleTriggerJob runs a scheduled job immediately.
func (s *Server) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler_unavailable", "Scheduler not running")
		return
	}
	name := chi.URLParam(r, "name")
	if !s.scheduler.IsScheduled(name) {
		writeError(w, http.StatusNotFound, "not_found", "Job "+name+" is not scheduled")
		return
	}
	if err := s.scheduler.Trigger(name); err != nil {
		writeError(w, http.StatusConflict, "job_error", err.Error())
		return
	}
	s.logger.Info("job triggered via API", "job", name)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": "Job " + name + " started",
	})
}
