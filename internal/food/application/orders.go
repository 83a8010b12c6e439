package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dmehra2102/food-storefront/internal/food/domain"
	orderapp "github.com/dmehra2102/food-storefront/internal/order/application"
	orderdomain "github.com/dmehra2102/food-storefront/internal/order/domain"
)

var ErrEmptyCart = errors.New("cart is empty")

// OrdersClient is the subset of the order store client the controller drives.
type OrdersClient interface {
	Subscribe(ctx context.Context) (*orderapp.Feed, error)
	CreateFromCart(ctx context.Context, items []orderdomain.OrderItem, notes string) (string, error)
	MarkPaid(ctx context.Context, id string) error
	DeleteByID(ctx context.Context, id string) error
}

// OrdersController bridges the orders feed into the Store and runs the
// order side effects.
type OrdersController struct {
	log    *slog.Logger
	store  *Store
	orders OrdersClient
}

func NewOrdersController(log *slog.Logger, store *Store, orders OrdersClient) *OrdersController {
	return &OrdersController{log: log, store: store, orders: orders}
}

func (c *OrdersController) Start(ctx context.Context) error {
	c.store.Dispatch(domain.OrdersSubscriptionPending{})

	feed, err := c.orders.Subscribe(ctx)
	if err != nil {
		c.log.Error("orders subscription failed", "err", err)
		c.store.Dispatch(domain.OrdersSubscriptionRejected{Message: err.Error()})
		return err
	}

	p := &pump{feed: feed, store: c.store}
	c.store.Dispatch(domain.OrdersSubscriptionStarted{Handle: domain.NewHandle(p.close)})
	go p.run()

	c.log.Info("orders subscription started")
	return nil
}

func (c *OrdersController) Stop(ctx context.Context) error {
	c.store.State().Subscription.Close()
	c.store.Dispatch(domain.OrdersSubscriptionStopped{})
	c.log.Info("orders subscription stopped")
	return nil
}

func (c *OrdersController) MarkPaid(ctx context.Context, id string) error {
	return c.mutate(ctx, domain.OpMarkPaid, id, c.orders.MarkPaid)
}

func (c *OrdersController) Delete(ctx context.Context, id string) error {
	return c.mutate(ctx, domain.OpDelete, id, c.orders.DeleteByID)
}

func (c *OrdersController) mutate(ctx context.Context, op domain.MutationOp, id string, call func(context.Context, string) error) error {
	c.store.Dispatch(domain.OrderMutationPending{Op: op})
	if err := call(ctx, id); err != nil {
		c.log.Error("order mutation failed", "op", op, "order_id", id, "err", err)
		c.store.Dispatch(domain.OrderMutationFailed{Op: op, Message: err.Error()})
		return err
	}
	return nil
}

// PlaceOrder records a single-item order. The units are reserved through
// the cart while the order is written, then leave the cart with the order;
// a failed write puts them back on the menu.
func (c *OrdersController) PlaceOrder(ctx context.Context, food domain.MenuItem, quantity int, notes string) (string, error) {
	next, err := c.store.Dispatch(domain.OrderFood{Food: food, Quantity: quantity})
	if err != nil {
		return "", err
	}
	live, _ := next.MenuItem(food.ID)
	item := orderdomain.OrderItem{ID: live.ID, Name: live.Name, Price: live.Price, Quantity: quantity}

	id, err := c.orders.CreateFromCart(ctx, []orderdomain.OrderItem{item}, notes)
	if err != nil {
		c.log.Error("place order failed", "food_id", food.ID, "err", err)
		if _, rerr := c.store.Dispatch(domain.CartLineReverted{ID: live.ID, Quantity: quantity}); rerr != nil {
			c.log.Error("reservation revert failed", "food_id", food.ID, "err", rerr)
		}
		return "", fmt.Errorf("place order: %w", err)
	}
	if _, err := c.store.Dispatch(domain.CartLineSubmitted{ID: live.ID, Quantity: quantity, OrderID: id}); err != nil {
		c.log.Error("cart line release failed", "order_id", id, "err", err)
	}
	c.log.Info("order placed", "order_id", id, "food_id", food.ID, "quantity", quantity)
	return id, nil
}

// Checkout turns the whole cart into one order and empties the cart.
func (c *OrdersController) Checkout(ctx context.Context, notes string) (string, error) {
	cart := c.store.State().Cart
	if len(cart) == 0 {
		return "", ErrEmptyCart
	}
	id, err := c.orders.CreateFromCart(ctx, OrderItems(cart), notes)
	if err != nil {
		c.log.Error("checkout failed", "err", err)
		return "", fmt.Errorf("checkout: %w", err)
	}
	c.store.Dispatch(domain.CartSubmitted{OrderID: id})
	c.log.Info("cart submitted", "order_id", id, "items", len(cart))
	return id, nil
}

func OrderItems(cart []domain.CartItem) []orderdomain.OrderItem {
	items := make([]orderdomain.OrderItem, 0, len(cart))
	for _, ci := range cart {
		items = append(items, orderdomain.OrderItem{ID: ci.ID, Name: ci.Name, Price: ci.Price, Quantity: ci.Quantity})
	}
	return items
}

// pump forwards feed deliveries to the store until its handle is closed.
type pump struct {
	feed  *orderapp.Feed
	store *Store

	mu     sync.Mutex
	closed bool
}

func (p *pump) run() {
	for {
		select {
		case <-p.feed.Done():
			return
		case u := <-p.feed.Updates():
			p.deliver(u)
		}
	}
}

func (p *pump) deliver(u orderapp.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if u.Err != nil {
		p.store.Dispatch(domain.OrdersFailed{Message: u.Err.Error()})
		return
	}
	p.store.Dispatch(domain.OrdersReceived{Orders: u.Orders})
}

func (p *pump) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.feed.Close()
}
