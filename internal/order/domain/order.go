package domain

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusCreated   OrderStatus = "CREATED"
	StatusPaid      OrderStatus = "PAID"
	StatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// OrderItem is the snapshot of a cart line stored with an order.
type OrderItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID        string          `json:"id"`
	CreatedAt int64           `json:"createdAt"`
	Status    OrderStatus     `json:"status"`
	Items     []OrderItem     `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Notes     string          `json:"notes"`
}

func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// NewRecord builds the raw record written to the store for a new order.
// Numbers are stored as JSON numbers so any reader sees a numeric total.
func NewRecord(items []OrderItem, notes string, status OrderStatus, now time.Time) map[string]any {
	if status == "" {
		status = StatusCreated
	}
	raw := make([]any, 0, len(items))
	for _, it := range items {
		raw = append(raw, map[string]any{
			"id":       it.ID,
			"name":     it.Name,
			"price":    it.Price.InexactFloat64(),
			"quantity": it.Quantity,
		})
	}
	return map[string]any{
		"createdAt": now.UnixMilli(),
		"status":    string(status),
		"items":     raw,
		"total":     ComputeTotal(items).InexactFloat64(),
		"notes":     notes,
	}
}

// Normalize turns a raw stored record into an Order. Missing or malformed
// fields fall back to defaults; a total that is not a finite number is
// recomputed from the items.
func Normalize(id string, raw any, now time.Time) Order {
	rec, _ := raw.(map[string]any)
	o := Order{
		ID:        id,
		CreatedAt: now.UnixMilli(),
		Status:    StatusCreated,
		Items:     []OrderItem{},
	}
	if v, ok := finite(rec["createdAt"]); ok {
		o.CreatedAt = int64(v)
	}
	if v, ok := rec["status"].(string); ok && OrderStatus(v).Valid() {
		o.Status = OrderStatus(v)
	}
	if list, ok := rec["items"].([]any); ok {
		for _, el := range list {
			if m, ok := el.(map[string]any); ok {
				o.Items = append(o.Items, normalizeItem(m))
			}
		}
	}
	if v, ok := finite(rec["total"]); ok {
		o.Total = decimal.NewFromFloat(v)
	} else {
		o.Total = ComputeTotal(o.Items)
	}
	if v, ok := rec["notes"].(string); ok {
		o.Notes = v
	}
	return o
}

// NormalizeCollection normalizes every child of an orders snapshot, ordered
// by key.
func NormalizeCollection(raw any, now time.Time) []Order {
	children, _ := raw.(map[string]any)
	orders := make([]Order, 0, len(children))
	for id, rec := range children {
		orders = append(orders, Normalize(id, rec, now))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders
}

func normalizeItem(m map[string]any) OrderItem {
	it := OrderItem{}
	if v, ok := finite(m["id"]); ok {
		it.ID = int64(v)
	}
	it.Name, _ = m["name"].(string)
	switch p := m["price"].(type) {
	case float64:
		if !math.IsNaN(p) && !math.IsInf(p, 0) {
			it.Price = decimal.NewFromFloat(p)
		}
	case string:
		if d, err := decimal.NewFromString(p); err == nil {
			it.Price = d
		}
	}
	if v, ok := finite(m["quantity"]); ok {
		it.Quantity = int(v)
	}
	return it
}

func finite(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
