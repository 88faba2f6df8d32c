package handlers

import (
	"net/http"

	"github.com/lunarveil/backend/internal/services"
)

type MenuHandler struct {
	catalog *services.CatalogService
}

func NewMenuHandler(catalog *services.CatalogService) *MenuHandler {
	return &MenuHandler{catalog: catalog}
}

// GetMenu returns the active product catalog
// @Summary Menu
// @Description All active products in display order, grouped by category
// @Tags menu
// @Produce json
// @Success 200 {object} object{menu=[]models.Product}
// @Router /menu [get]
func (h *MenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Menu(r.Context())
	if err != nil {
		respondServiceError(w, "CATALOG", err)
		return
	}

	services.WriteJSON(w, http.StatusOK, map[string]any{"menu": products})
}
