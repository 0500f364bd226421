// internal/api/handler/api/history.go
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/newthinker/signaledge/internal/api/response"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/newthinker/signaledge/internal/storage/history"
)

const maxHistoryLimit = 500

// HistoryLister reads stored run summaries.
type HistoryLister interface {
	History(ctx context.Context, symbol string, limit int) ([]history.Entry, error)
}

// HistoryHandler serves stored run summaries.
type HistoryHandler struct {
	lister HistoryLister
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(lister HistoryLister) *HistoryHandler {
	return &HistoryHandler{lister: lister}
}

// List handles GET /api/v1/history?symbol=&limit=.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxHistoryLimit {
			response.Fail(w, core.WrapError(core.ErrInvalidInput, nil))
			return
		}
		limit = n
	}

	entries, err := h.lister.History(r.Context(), q.Get("symbol"), limit)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	response.JSON(w, http.StatusOK, entries)
}
