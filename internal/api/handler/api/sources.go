// internal/api/handler/api/sources.go
package api

import (
	"net/http"

	"github.com/newthinker/signaledge/internal/api/response"
	"github.com/newthinker/signaledge/internal/backtest"
)

// Catalog describes what the service can run.
type Catalog interface {
	Sources() []string
	DefaultParams() backtest.Params
}

// SourcesHandler lists price sources and default engine parameters.
type SourcesHandler struct {
	catalog Catalog
}

// NewSourcesHandler creates a new sources handler.
func NewSourcesHandler(catalog Catalog) *SourcesHandler {
	return &SourcesHandler{catalog: catalog}
}

// List handles GET /api/v1/sources.
func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"sources":        h.catalog.Sources(),
		"default_params": h.catalog.DefaultParams(),
	})
}
