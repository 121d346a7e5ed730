// Package placeholder serves the static commerce endpoints the frontend
// probes for. The site is educational only, so none of them hold data.
package placeholder

import (
	"net/http"
	"time"

	"peptideprofessor/httputil"
)

type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	ResearchOnly bool    `json:"research_only"`
	InStock      bool    `json:"in_stock"`
	CreatedAt    string  `json:"created_at"`
}

type Handler struct {
	Now func() time.Time
}

func (h *Handler) HandleProducts(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	created := now.UTC().Format("2006-01-02T15:04:05.000000")
	products := []Product{
		{ID: "1", Name: "Peptide Research Guide", Description: "Comprehensive guide to peptide research", Category: "educational", ResearchOnly: true, InStock: true, CreatedAt: created},
		{ID: "2", Name: "Calculator Tools Access", Description: "Access to all peptide calculation tools", Category: "tools", ResearchOnly: true, InStock: true, CreatedAt: created},
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    len(products),
		"message":  "Educational content only - no products for sale",
	})
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"orders":  []any{},
		"total":   0,
		"message": "This is an educational site - no orders available",
	})
}

func (h *Handler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"users":   []any{},
		"total":   0,
		"message": "User management coming soon",
	})
}
