package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/food-storefront/internal/food/application"
	"github.com/dmehra2102/food-storefront/internal/food/domain"
	orderdomain "github.com/dmehra2102/food-storefront/internal/order/domain"
)

// OrdersLister reads the orders collection once.
type OrdersLister interface {
	ListOnce(ctx context.Context) ([]orderdomain.Order, error)
}

type Handler struct {
	log    *slog.Logger
	store  *application.Store
	ctrl   *application.OrdersController
	orders OrdersLister
	admin  func(http.Handler) http.Handler
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, store *application.Store, ctrl *application.OrdersController, orders OrdersLister, admin func(http.Handler) http.Handler) *Handler {
	return &Handler{
		log:    log,
		store:  store,
		ctrl:   ctrl,
		orders: orders,
		admin:  admin,
		tracer: otel.Tracer("storefront-http"),
	}
}

type selectionReq struct {
	ID *int64 `json:"id"`
}

type cartReq struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type placeOrderReq struct {
	ID       int64  `json:"id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

type checkoutReq struct {
	Notes string `json:"notes"`
}

type ordersResp struct {
	Status domain.SubscriptionStatus `json:"status"`
	Orders []orderdomain.Order       `json:"orders"`
}

func (h *Handler) Mount(r chi.Router) {
	r.Get("/menu", h.menu)
	r.Get("/state", h.state)
	r.Post("/page/toggle", h.togglePage)
	r.Post("/selection", h.selectFood)
	r.Post("/cart", h.addToCart)
	r.Delete("/cart/{id}", h.removeFromCart)
	r.Post("/orders", h.placeOrder)
	r.Post("/checkout", h.checkout)
	r.Get("/orders", h.listOrders)

	r.Group(func(r chi.Router) {
		r.Use(h.admin)
		r.Post("/orders/{id}/paid", h.markPaid)
		r.Delete("/orders/{id}", h.deleteOrder)
	})
}

func (h *Handler) menu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.State().Menu)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.State())
}

func (h *Handler) togglePage(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, domain.TogglePage{})
}

func (h *Handler) selectFood(w http.ResponseWriter, r *http.Request) {
	var req selectionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.ID == nil {
		h.dispatch(w, domain.SelectFood{})
		return
	}
	item, ok := h.store.State().MenuItem(*req.ID)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrUnknownMenuItem.Error())
		return
	}
	h.dispatch(w, domain.SelectFood{Food: &item})
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req cartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	h.dispatch(w, domain.OrderFood{Food: domain.MenuItem{ID: req.ID}, Quantity: req.Quantity})
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	h.dispatch(w, domain.RemoveFromCart{ID: id})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PlaceOrder")
	defer span.End()

	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	id, err := h.ctrl.PlaceOrder(ctx, domain.MenuItem{ID: req.ID}, req.Quantity, req.Notes)
	if err != nil {
		span.RecordError(err)
		h.fail(w, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", id))
	writeJSON(w, http.StatusCreated, map[string]any{"orderId": id, "state": h.store.State()})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	var req checkoutReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
	}
	id, err := h.ctrl.Checkout(ctx, req.Notes)
	if err != nil {
		span.RecordError(err)
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"orderId": id, "state": h.store.State()})
}

// listOrders serves the subscribed snapshot, or reads the store directly when
// no subscription is live.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	st := h.store.State()
	if st.OrdersStatus == domain.SubscriptionSucceeded {
		writeJSON(w, http.StatusOK, ordersResp{Status: st.OrdersStatus, Orders: st.Orders})
		return
	}
	orders, err := h.orders.ListOnce(r.Context())
	if err != nil {
		h.log.Error("list orders failed", "err", err)
		writeError(w, http.StatusBadGateway, "Error loading orders.")
		return
	}
	writeJSON(w, http.StatusOK, ordersResp{Status: st.OrdersStatus, Orders: orders})
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "MarkOrderPaid")
	defer span.End()

	if err := h.ctrl.MarkPaid(ctx, chi.URLParam(r, "id")); err != nil {
		span.RecordError(err)
		writeJSON(w, http.StatusBadGateway, h.store.State())
		return
	}
	writeJSON(w, http.StatusOK, h.store.State())
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteOrder")
	defer span.End()

	if err := h.ctrl.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		span.RecordError(err)
		writeJSON(w, http.StatusBadGateway, h.store.State())
		return
	}
	writeJSON(w, http.StatusOK, h.store.State())
}

func (h *Handler) dispatch(w http.ResponseWriter, a domain.Action) {
	st, err := h.store.Dispatch(a)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownMenuItem), errors.Is(err, domain.ErrNotInCart):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, application.ErrEmptyCart):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
