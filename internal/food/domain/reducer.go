package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be a positive number")
	ErrUnknownMenuItem   = errors.New("menu item not found")
	ErrInsufficientStock = errors.New("not enough stock")
	ErrNotInCart         = errors.New("item is not in the cart")
	ErrUnknownAction     = errors.New("unknown action")
)

// Reduce applies a to s. It never mutates s; on error the returned state is s.
// Closing a replaced subscription handle is left to the caller.
func Reduce(s State, a Action) (State, error) {
	next := s.Clone()
	switch a := a.(type) {
	case TogglePage:
		next.IsChooseFoodPage = !next.IsChooseFoodPage
		next.Selected = nil
		next.StatusMessage = ""

	case SelectFood:
		next.Selected = nil
		if a.Food != nil {
			f := *a.Food
			next.Selected = &f
		}

	case OrderFood:
		if a.Quantity <= 0 {
			return s, fmt.Errorf("%w: %d", ErrInvalidQuantity, a.Quantity)
		}
		idx := menuIndex(next.Menu, a.Food.ID)
		if idx < 0 {
			return s, fmt.Errorf("%w: id=%d", ErrUnknownMenuItem, a.Food.ID)
		}
		item := &next.Menu[idx]
		if a.Quantity > item.Quantity {
			return s, fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, item.Name, item.Quantity, a.Quantity)
		}
		item.Quantity -= a.Quantity

		if ci := cartIndex(next.Cart, item.ID); ci >= 0 {
			next.Cart[ci].Quantity += a.Quantity
		} else {
			next.Cart = append(next.Cart, CartItem{ID: item.ID, Name: item.Name, Price: item.Price, Quantity: a.Quantity})
		}
		next.StatusMessage = fmt.Sprintf("Added to cart: %s x%d. Cart total=%s$", item.Name, a.Quantity, next.CartTotal())

	case RemoveFromCart:
		ci := cartIndex(next.Cart, a.ID)
		if ci < 0 {
			return s, fmt.Errorf("%w: id=%d", ErrNotInCart, a.ID)
		}
		removed := next.Cart[ci]
		if mi := menuIndex(next.Menu, a.ID); mi >= 0 {
			next.Menu[mi].Quantity += removed.Quantity
		}
		next.Cart = append(next.Cart[:ci], next.Cart[ci+1:]...)
		next.StatusMessage = fmt.Sprintf("Removed from cart: id=%d", a.ID)

	case CartSubmitted:
		next.Cart = []CartItem{}
		next.StatusMessage = "Order submitted: " + a.OrderID

	case CartLineSubmitted:
		if err := takeFromCart(&next, a.ID, a.Quantity); err != nil {
			return s, err
		}
		next.StatusMessage = "Order submitted: " + a.OrderID

	case CartLineReverted:
		if err := takeFromCart(&next, a.ID, a.Quantity); err != nil {
			return s, err
		}
		if mi := menuIndex(next.Menu, a.ID); mi >= 0 {
			next.Menu[mi].Quantity += a.Quantity
		}
		next.StatusMessage = fmt.Sprintf("Order not placed: id=%d x%d", a.ID, a.Quantity)

	case OrdersSubscriptionPending:
		next.OrdersStatus = SubscriptionLoading
		next.OrdersLoading = true
		next.OrdersError = ""
		next.StatusMessage = "Subscribing to orders..."

	case OrdersSubscriptionRejected:
		next.OrdersStatus = SubscriptionFailed
		next.OrdersLoading = false
		next.OrdersError = a.Message
		if next.OrdersError == "" {
			next.OrdersError = "Unknown error"
		}
		next.StatusMessage = "Failed to subscribe to orders."

	case OrdersSubscriptionStarted:
		next.Subscription = a.Handle
		next.OrdersStatus = SubscriptionSucceeded
		next.OrdersLoading = false
		next.OrdersError = ""
		next.StatusMessage = "Orders subscription started."

	case OrdersSubscriptionStopped:
		next.Subscription = nil
		next.OrdersStatus = SubscriptionIdle
		next.OrdersLoading = false
		next.StatusMessage = "Orders subscription stopped."

	case OrdersReceived:
		next.Orders = cloneOrders(a.Orders)
		next.OrdersStatus = SubscriptionSucceeded
		next.OrdersLoading = false
		next.OrdersError = ""
		next.StatusMessage = fmt.Sprintf("Orders updated: %d", len(a.Orders))

	case OrdersFailed:
		next.OrdersStatus = SubscriptionFailed
		next.OrdersLoading = false
		next.OrdersError = a.Message
		next.StatusMessage = "Error loading orders."

	case OrderMutationPending:
		switch a.Op {
		case OpMarkPaid:
			next.StatusMessage = "Marking order as PAID..."
		case OpDelete:
			next.StatusMessage = "Deleting order..."
		}

	case OrderMutationFailed:
		switch a.Op {
		case OpMarkPaid:
			next.StatusMessage = "Failed to mark paid: " + a.Message
		case OpDelete:
			next.StatusMessage = "Failed to delete: " + a.Message
		}

	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
	return next, nil
}

func menuIndex(menu []MenuItem, id int64) int {
	for i := range menu {
		if menu[i].ID == id {
			return i
		}
	}
	return -1
}

// takeFromCart lowers one cart line by quantity, dropping it at zero.
func takeFromCart(s *State, id int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	ci := cartIndex(s.Cart, id)
	if ci < 0 || s.Cart[ci].Quantity < quantity {
		return fmt.Errorf("%w: id=%d x%d", ErrNotInCart, id, quantity)
	}
	s.Cart[ci].Quantity -= quantity
	if s.Cart[ci].Quantity == 0 {
		s.Cart = append(s.Cart[:ci], s.Cart[ci+1:]...)
	}
	return nil
}

func cartIndex(cart []CartItem, id int64) int {
	for i := range cart {
		if cart[i].ID == id {
			return i
		}
	}
	return -1
}
