package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/orders"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
)

type OrdersHandler struct {
	Service *orders.Service
	// Redis backs Idempotency-Key replays; nil disables them.
	Redis *redis.Client
}

type CreateOrderReq struct {
	Username string            `json:"username"`
	Cart     []orders.CartLine `json:"cart"`
}

type CreateOrderResp struct {
	OrderID    string       `json:"orderId"`
	Order      orders.Order `json:"order"`
	Idempotent bool         `json:"idempotent,omitempty"`
}

type UpdateStatusReq struct {
	AdminCode string        `json:"adminCode"`
	Status    orders.Status `json:"status"`
	Note      string        `json:"note"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}", h.updateStatus)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis; the order store stays the source of truth.
	var idemKey string
	if k := r.Header.Get("Idempotency-Key"); k != "" && h.Redis != nil {
		idemKey = fmt.Sprintf(redisx.KeyIdemOrderCreate, k)
		if id, err := redisx.Lookup(ctx, h.Redis, idemKey); err != nil {
			zlog.Warn().Err(err).Msg("idempotency lookup")
		} else if id != "" {
			if o, err := h.Service.GetOrder(id); err == nil {
				writeJSON(w, http.StatusOK, CreateOrderResp{OrderID: o.ID, Order: o, Idempotent: true})
				return
			}
		}
	}

	o, err := h.Service.PlaceOrder(ctx, req.Username, req.Cart)
	if err != nil {
		writeError(w, err)
		return
	}
	if idemKey != "" {
		if err := redisx.Remember(ctx, h.Redis, idemKey, o.ID, redisx.TTLIdempotency); err != nil {
			zlog.Warn().Err(err).Str("order_id", o.ID).Msg("idempotency store")
		}
	}
	writeJSON(w, http.StatusCreated, CreateOrderResp{OrderID: o.ID, Order: o})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.GetOrder(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	all, err := h.Service.ListOrders(r.URL.Query().Get("adminCode"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Service.UpdateStatus(ctx, chi.URLParam(r, "id"), orders.StatusUpdate{
		AdminCode: req.AdminCode,
		Status:    req.Status,
		Note:      req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
