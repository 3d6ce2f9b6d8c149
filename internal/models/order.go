package models

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus is the server-side order lifecycle state
type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderProcessing
	OrderShipped
	OrderDelivered
	OrderCancelled

	// OrderStatusCount is the number of defined statuses. Keep it last.
	OrderStatusCount
)

var orderStatusNames = [OrderStatusCount]string{
	OrderPending:    "pending",
	OrderProcessing: "processing",
	OrderShipped:    "shipped",
	OrderDelivered:  "delivered",
	OrderCancelled:  "cancelled",
}

func (s OrderStatus) String() string {
	if s < 0 || s >= OrderStatusCount {
		return fmt.Sprintf("OrderStatus(%d)", int(s))
	}
	return orderStatusNames[s]
}

// ParseOrderStatus parses the wire name of a status
func ParseOrderStatus(name string) (OrderStatus, error) {
	for i, n := range orderStatusNames {
		if n == name {
			return OrderStatus(i), nil
		}
	}
	return 0, fmt.Errorf("invalid order status %q, expected one of %s", name, strings.Join(orderStatusNames[:], ", "))
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	if s < 0 || s >= OrderStatusCount {
		return nil, fmt.Errorf("invalid order status %d", int(s))
	}
	return []byte(orderStatusNames[s]), nil
}

func (s *OrderStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// OrderItem is one line of an order with price and name snapshotted at checkout
type OrderItem struct {
	ProductID string  `json:"productId" validate:"required"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity" validate:"gt=0"`
	Price     float64 `json:"price" validate:"gte=0"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
}

// Shipping is the delivery contact snapshot of an order
type Shipping struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
}

// Order is the authoritative server-side order record
type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	Items         []OrderItem `json:"items"`
	TotalAmount   float64     `json:"totalAmount"`
	Status        OrderStatus `json:"status"`
	PromotionCode string      `json:"promotionCode,omitempty"`
	Shipping      *Shipping   `json:"shipping,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Clone returns a deep copy safe to hand out of a store
func (o Order) Clone() Order {
	c := o
	c.Items = append([]OrderItem{}, o.Items...)
	if o.Shipping != nil {
		s := *o.Shipping
		c.Shipping = &s
	}
	return c
}

// Subtotal is the sum of price times quantity over all items
func (o Order) Subtotal() float64 {
	return ItemsSubtotal(o.Items)
}

// ItemsSubtotal is the sum of price times quantity over items
func ItemsSubtotal(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// OrderDraft is the body of POST /api/orders
type OrderDraft struct {
	UserID        string      `json:"userId" validate:"required"`
	Items         []OrderItem `json:"items" validate:"required,min=1,dive"`
	TotalAmount   FlexFloat   `json:"totalAmount" validate:"gt=0"`
	PromotionCode string      `json:"promotionCode,omitempty"`
	Shipping      *Shipping   `json:"shipping,omitempty"`
}

// OrderStatusUpdate is the body of PUT /api/orders/{id}
type OrderStatusUpdate struct {
	Status *string `json:"status,omitempty"`
}
