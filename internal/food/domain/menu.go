package domain

import "github.com/shopspring/decimal"

type MenuItem struct {
	ID          int64           `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Quantity    int             `json:"quantity" yaml:"quantity"`
	Description string          `json:"desc" yaml:"desc"`
	Price       decimal.Decimal `json:"price" yaml:"-"`
	Image       string          `json:"image" yaml:"image"`
}

type CartItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func (c CartItem) Subtotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// DefaultMenu is the catalogue used when no menu file is configured.
func DefaultMenu() []MenuItem {
	return []MenuItem{
		{ID: 1, Name: "Hamburguesa de Pollo", Quantity: 40, Description: "Hamburguesa de pollo frito - ... y mayones", Price: decimal.NewFromInt(24), Image: "cb.jpg"},
		{ID: 2, Name: "Hamburguesa de Carne", Quantity: 20, Description: "Hamburguesa de carne con queso y tomate", Price: decimal.NewFromInt(30), Image: "vb.jpg"},
		{ID: 3, Name: "Helado", Quantity: 30, Description: "Cono de helado", Price: decimal.NewFromInt(28), Image: "ic.jpg"},
		{ID: 4, Name: "Patatas fritas", Quantity: 100, Description: "Patatas fritas con salsa verde", Price: decimal.NewFromInt(123), Image: "chips.jpg"},
	}
}
