package rest

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

type searchHandler struct {
	search driving.SearchService
}

// Search handles GET /search?q=...
func (h *searchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.search.Search(r.Context(), query, domain.SearchOptions{
		Limit: limit,
		Filters: domain.SearchFilters{
			Project:  q.Get("project"),
			Domain:   q.Get("domain"),
			DateFrom: q.Get("from"),
			DateTo:   q.Get("to"),
			Entity:   q.Get("entity"),
		},
		IncludeInsights: queryBool(r, "insights"),
		TextOnly:        queryBool(r, "text_only"),
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, domain.StatusSuccess, resp)
}

type chunkHandler struct {
	chunks driving.ChunkService
}

// createChunkRequest is the body of POST /chunks.
type createChunkRequest struct {
	Content string   `json:"content"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	Type    string   `json:"type"`
	Project string   `json:"project"`
	Ticket  string   `json:"ticket"`
	Domain  string   `json:"domain"`
}

// List handles GET /chunks
func (h *chunkHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	listing, err := h.chunks.List(r.Context(), driving.ListRequest{
		Limit:  limit,
		IDGlob: r.URL.Query().Get("glob"),
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, domain.StatusSuccess, listing)
}

// Create handles POST /chunks
func (h *chunkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createChunkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	out, err := h.chunks.Create(r.Context(), driving.ChunkRequest{
		Content: req.Content,
		Summary: req.Summary,
		Tags:    domain.NewTagSet(req.Tags...),
		Type:    domain.ChunkType(req.Type),
		Project: req.Project,
		Ticket:  req.Ticket,
		Domain:  req.Domain,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}

	code := http.StatusOK
	if out.Status == domain.StatusCreated {
		code = http.StatusCreated
	}
	writeJSON(w, code, envelope{Status: out.Status, Message: out.Message, Data: out})
}

// Get handles GET /chunks/{id}?start=&end=
func (h *chunkHandler) Get(w http.ResponseWriter, r *http.Request) {
	start, err := queryInt(r, "start", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := queryInt(r, "end", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.chunks.Peek(r.Context(), chi.URLParam(r, "id"), start, end)
	if err != nil {
		writeFailure(w, err)
		return
	}
	status := domain.StatusSuccess
	if res.Restored {
		status = domain.StatusRestored
	}
	writeData(w, http.StatusOK, status, res)
}

type insightHandler struct {
	insights driving.InsightService
}

// rememberRequest is the body of POST /insights.
type rememberRequest struct {
	Content    string   `json:"content"`
	Category   string   `json:"category"`
	Importance string   `json:"importance"`
	Tags       []string `json:"tags"`
}

// Recall handles GET /insights?q=&category=&importance=&limit=
func (h *insightHandler) Recall(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	hits, err := h.insights.Recall(r.Context(), driving.RecallQuery{
		Query:      q.Get("q"),
		Category:   q.Get("category"),
		Importance: q.Get("importance"),
		Limit:      limit,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	if hits == nil {
		hits = []driving.RecallHit{}
	}
	writeData(w, http.StatusOK, domain.StatusSuccess, hits)
}

// Remember handles POST /insights
func (h *insightHandler) Remember(w http.ResponseWriter, r *http.Request) {
	var req rememberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	in, err := h.insights.Remember(r.Context(), driving.InsightRequest{
		Content:    req.Content,
		Category:   req.Category,
		Importance: req.Importance,
		Tags:       domain.NewTagSet(req.Tags...),
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusCreated, domain.StatusSaved, in)
}

// Forget handles DELETE /insights/{id}
func (h *insightHandler) Forget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.insights.Forget(r.Context(), id); err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, domain.StatusDeleted, map[string]string{"insight_id": id})
}

type retentionHandler struct {
	retention driving.RetentionService
}

// runRequest is the optional body of POST /retention/run.
type runRequest struct {
	Archive *bool `json:"archive"`
	Purge   bool  `json:"purge"`
}

// Preview handles GET /retention/preview
func (h *retentionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.retention.Preview(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, domain.StatusPreview, preview)
}

// Run handles POST /retention/run
func (h *retentionHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	opts := driving.RetentionRunOptions{Archive: true, Purge: req.Purge}
	if req.Archive != nil {
		opts.Archive = *req.Archive
	}

	report, err := h.retention.Run(r.Context(), opts)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, domain.StatusCompleted, report)
}

// Restore handles POST /retention/restore/{id}
func (h *retentionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	c, err := h.retention.Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, domain.StatusRestored, c)
}

// healthHandler reports whether the store can be listed.
func healthHandler(chunks driving.ChunkService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listing, err := chunks.List(r.Context(), driving.ListRequest{Limit: 1})
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, envelope{Status: domain.StatusError, Message: err.Error()})
			return
		}
		writeData(w, http.StatusOK, domain.StatusSuccess, map[string]int{"chunks": listing.TotalChunks})
	}
}
