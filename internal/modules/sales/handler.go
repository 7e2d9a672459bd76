package sales

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dukasoft/duka-pos/internal/qr"
	"github.com/dukasoft/duka-pos/internal/realtime"
)

// Handler exposes sales ledger HTTP endpoints.
type Handler struct {
	service Service
	hub     *realtime.Hub
	encoder qr.Encoder
}

func NewHandler(service Service, hub *realtime.Hub, encoder qr.Encoder) *Handler {
	return &Handler{service: service, hub: hub, encoder: encoder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/sales", func(r chi.Router) {
		r.Get("/", h.listSales)
		r.Get("/stream", h.stream)
		r.Get("/{id}", h.getSale)
		r.Get("/{id}/receipt", h.receipt)
	})
	r.Get("/api/v1/stats", h.stats)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListSales(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, list)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, s)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := RenderReceipt(w, s, h.encoder.ImageURL(s.ID.String())); err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.service.Stats())
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	realtime.ServeSSE(w, r, h.hub, realtime.TopicSales, func() (interface{}, error) {
		return h.service.ListSales(r.Context())
	})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
