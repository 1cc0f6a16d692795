package api

import (
	"net/http"

	"github.com/okian/koishow/internal/domain/types"
)

// CatalogHandler serves the fixed stage catalog.
type CatalogHandler struct {
	entries []types.CatalogEntry
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{entries: types.Catalog()}
}

// HandleCatalog handles GET /catalog requests.
func (h *CatalogHandler) HandleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.entries)
}
