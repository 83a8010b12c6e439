package domain

import (
	"slices"

	orderdomain "github.com/dmehra2102/food-storefront/internal/order/domain"
)

type SubscriptionStatus string

const (
	SubscriptionIdle      SubscriptionStatus = "idle"
	SubscriptionLoading   SubscriptionStatus = "loading"
	SubscriptionSucceeded SubscriptionStatus = "succeeded"
	SubscriptionFailed    SubscriptionStatus = "failed"
)

type State struct {
	IsChooseFoodPage bool       `json:"isChooseFoodPage"`
	Selected         *MenuItem  `json:"selectedFood,omitempty"`
	Menu             []MenuItem `json:"menuItems"`
	Cart             []CartItem `json:"cartItems"`

	Orders        []orderdomain.Order `json:"orders"`
	OrdersStatus  SubscriptionStatus  `json:"ordersStatus"`
	OrdersLoading bool                `json:"ordersLoading"`
	OrdersError   string              `json:"ordersError,omitempty"`

	StatusMessage string `json:"statusMessage,omitempty"`

	Subscription *Handle `json:"-"`
}

func NewState(menu []MenuItem) State {
	return State{
		Menu:          slices.Clone(menu),
		Cart:          []CartItem{},
		Orders:        []orderdomain.Order{},
		OrdersStatus:  SubscriptionIdle,
		OrdersLoading: true,
	}
}

// Clone copies the slices, including each order's items, so a returned
// State never aliases the input.
func (s State) Clone() State {
	out := s
	out.Menu = slices.Clone(s.Menu)
	out.Cart = slices.Clone(s.Cart)
	out.Orders = cloneOrders(s.Orders)
	if s.Selected != nil {
		sel := *s.Selected
		out.Selected = &sel
	}
	return out
}

func cloneOrders(orders []orderdomain.Order) []orderdomain.Order {
	out := make([]orderdomain.Order, len(orders))
	for i, o := range orders {
		o.Items = slices.Clone(o.Items)
		out[i] = o
	}
	return out
}

func (s State) MenuItem(id int64) (MenuItem, bool) {
	for _, m := range s.Menu {
		if m.ID == id {
			return m, true
		}
	}
	return MenuItem{}, false
}

func (s State) CartTotal() string {
	return CartTotal(s.Cart).String()
}
