package httpx

import (
	"net/http"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/inventory"
	"github.com/go-chi/chi/v5"
)

type ItemsHandler struct {
	Catalog *inventory.Store
}

func (h *ItemsHandler) Register(r chi.Router) {
	r.Get("/items", h.list)
	r.Get("/items/{id}", h.get)
}

func (h *ItemsHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.List())
}

func (h *ItemsHandler) get(w http.ResponseWriter, r *http.Request) {
	it, ok := h.Catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "item not found"})
		return
	}
	writeJSON(w, http.StatusOK, it)
}
