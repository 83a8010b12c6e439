package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/food-storefront/internal/food/application"
	"github.com/dmehra2102/food-storefront/internal/food/domain"
	orderapp "github.com/dmehra2102/food-storefront/internal/order/application"
	"github.com/dmehra2102/food-storefront/internal/realtime/memory"
	"github.com/dmehra2102/food-storefront/pkg/logging"
)

type fixture struct {
	router http.Handler
	store  *application.Store
	orders *orderapp.Service
	ctrl   *application.OrdersController
}

func allowAll(next http.Handler) http.Handler { return next }

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
}

func newFixture(t *testing.T, admin func(http.Handler) http.Handler) fixture {
	t.Helper()
	log := logging.Discard()
	rt := memory.New(log)
	t.Cleanup(rt.Close)

	orders := orderapp.NewService(log, rt)
	store := application.NewStore(log, domain.NewState(domain.DefaultMenu()))
	ctrl := application.NewOrdersController(log, store, orders)

	r := chi.NewRouter()
	NewHandler(log, store, ctrl, orders, admin).Mount(r)
	return fixture{router: r, store: store, orders: orders, ctrl: ctrl}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) domain.State {
	t.Helper()
	var st domain.State
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	return st
}

func TestMenu(t *testing.T) {
	f := newFixture(t, allowAll)
	rec := f.do(t, http.MethodGet, "/menu", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var menu []domain.MenuItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&menu))
	require.Len(t, menu, 4)
	assert.Equal(t, "Hamburguesa de Pollo", menu[0].Name)
	assert.Equal(t, "24", menu[0].Price.String())
}

func TestCartFlow(t *testing.T) {
	f := newFixture(t, allowAll)

	rec := f.do(t, http.MethodPost, "/cart", map[string]any{"id": 1, "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decodeState(t, rec)
	assert.Equal(t, "Added to cart: Hamburguesa de Pollo x3. Cart total=72$", st.StatusMessage)
	assert.Equal(t, 37, st.Menu[0].Quantity)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/cart", map[string]any{"id": 1, "quantity": 0}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/cart", map[string]any{"id": 42, "quantity": 1}).Code)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/cart", map[string]any{"id": 2, "quantity": 21}).Code)

	rec = f.do(t, http.MethodDelete, "/cart/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeState(t, rec)
	assert.Equal(t, 40, st.Menu[0].Quantity)
	assert.Empty(t, st.Cart)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/cart/1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodDelete, "/cart/abc", nil).Code)
}

func TestToggleAndSelect(t *testing.T) {
	f := newFixture(t, allowAll)

	rec := f.do(t, http.MethodPost, "/selection", map[string]any{"id": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeState(t, rec)
	require.NotNil(t, st.Selected)
	assert.Equal(t, "Helado", st.Selected.Name)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/selection", map[string]any{"id": 99}).Code)

	rec = f.do(t, http.MethodPost, "/page/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeState(t, rec)
	assert.True(t, st.IsChooseFoodPage)
	assert.Nil(t, st.Selected)
}

func TestCheckoutCreatesOrder(t *testing.T) {
	f := newFixture(t, allowAll)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/checkout", nil).Code)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/cart", map[string]any{"id": 3, "quantity": 2}).Code)
	rec := f.do(t, http.MethodPost, "/checkout", map[string]string{"notes": "para llevar"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ordersResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "para llevar", resp.Orders[0].Notes)
	assert.Equal(t, "56", resp.Orders[0].Total.String())
}

func TestAdminOrderRoutes(t *testing.T) {
	f := newFixture(t, allowAll)
	require.NoError(t, f.ctrl.Start(t.Context()))
	t.Cleanup(func() { _ = f.ctrl.Stop(t.Context()) })

	rec := f.do(t, http.MethodPost, "/orders", map[string]any{"id": 4, "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		OrderID string `json:"orderId"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = f.do(t, http.MethodPost, "/orders/"+created.OrderID+"/paid", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		st := f.store.State()
		return len(st.Orders) == 1 && st.Orders[0].Status == "PAID"
	}, 2*time.Second, 10*time.Millisecond)

	rec = f.do(t, http.MethodDelete, "/orders/"+created.OrderID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Eventually(t, func() bool { return len(f.store.State().Orders) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestAdminRoutesGated(t *testing.T) {
	f := newFixture(t, denyAll)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/orders/x/paid", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, "/orders/x", nil).Code)
}
