package domain

import (
	orderdomain "github.com/dmehra2102/food-storefront/internal/order/domain"
)

// Action is a state transition request handled by Reduce.
type Action interface {
	Type() string
}

type MutationOp string

const (
	OpMarkPaid MutationOp = "markPaid"
	OpDelete   MutationOp = "delete"
)

type (
	TogglePage struct{}

	SelectFood struct {
		Food *MenuItem
	}

	OrderFood struct {
		Food     MenuItem
		Quantity int
	}

	RemoveFromCart struct {
		ID int64
	}

	CartSubmitted struct {
		OrderID string
	}

	// CartLineSubmitted takes Quantity units of one cart line out of the
	// cart without restocking them; they now belong to OrderID.
	CartLineSubmitted struct {
		ID       int64
		Quantity int
		OrderID  string
	}

	// CartLineReverted undoes an OrderFood of Quantity units.
	CartLineReverted struct {
		ID       int64
		Quantity int
	}

	OrdersSubscriptionPending struct{}

	OrdersSubscriptionRejected struct {
		Message string
	}

	OrdersSubscriptionStarted struct {
		Handle *Handle
	}

	OrdersSubscriptionStopped struct{}

	OrdersReceived struct {
		Orders []orderdomain.Order
	}

	OrdersFailed struct {
		Message string
	}

	OrderMutationPending struct {
		Op MutationOp
	}

	OrderMutationFailed struct {
		Op      MutationOp
		Message string
	}
)

func (TogglePage) Type() string                 { return "food/togglePage" }
func (SelectFood) Type() string                 { return "food/selectFood" }
func (OrderFood) Type() string                  { return "food/orderFood" }
func (RemoveFromCart) Type() string             { return "food/removeFromCart" }
func (CartSubmitted) Type() string              { return "food/cartSubmitted" }
func (CartLineSubmitted) Type() string          { return "food/cartLineSubmitted" }
func (CartLineReverted) Type() string           { return "food/cartLineReverted" }
func (OrdersSubscriptionPending) Type() string  { return "food/startOrdersSubscription/pending" }
func (OrdersSubscriptionRejected) Type() string { return "food/startOrdersSubscription/rejected" }
func (OrdersSubscriptionStarted) Type() string  { return "food/ordersSubscriptionStarted" }
func (OrdersSubscriptionStopped) Type() string  { return "food/ordersSubscriptionStopped" }
func (OrdersReceived) Type() string             { return "food/ordersReceived" }
func (OrdersFailed) Type() string               { return "food/ordersFailed" }
func (a OrderMutationPending) Type() string     { return "food/" + string(a.Op) + "/pending" }
func (a OrderMutationFailed) Type() string      { return "food/" + string(a.Op) + "/rejected" }
