package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/orders"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/subscriptions"
	"github.com/go-chi/chi/v5"
)

type NotificationsHandler struct {
	Subs      *subscriptions.Store
	Orders    *orders.Service
	PublicKey string
	Now       func() time.Time
}

type RegisterReq struct {
	OrderID      string          `json:"orderId"`
	Username     string          `json:"username"`
	Subscription json.RawMessage `json:"subscription"`
}

func (h *NotificationsHandler) Register(r chi.Router) {
	r.Get("/notifications/vapid-public-key", h.publicKey)
	r.Post("/notifications/register", h.register)
}

func (h *NotificationsHandler) publicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.PublicKey})
}

func (h *NotificationsHandler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	sub := strings.TrimSpace(string(req.Subscription))
	if req.OrderID == "" || sub == "" || sub == "null" {
		badRequest(w, "orderId and subscription are required")
		return
	}
	if _, err := h.Orders.GetOrder(req.OrderID); err != nil {
		badRequest(w, "unknown order")
		return
	}

	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now()
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.Subs.Register(ctx, subscriptions.Subscription{
		OrderID:      req.OrderID,
		Username:     strings.TrimSpace(req.Username),
		Subscription: req.Subscription,
		Timestamp:    now,
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
