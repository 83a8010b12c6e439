package domain

// OrderChanged is what the kitchen feed emits for every order write seen on
// the change stream.
type OrderChanged struct {
	OrderID string
	Op      string
	Order   *Order
}
