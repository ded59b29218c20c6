package order

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFulfilled Status = "fulfilled"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

// Item is a snapshot of a cart line frozen at submission time. Later catalog
// changes never retroactively alter a placed order.
type Item struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
}

type Order struct {
	ID      string `json:"id,omitempty"`
	OwnerID string `json:"ownerId"`
	Items   []Item `json:"items"`
	// Monetary fields hold two-decimal rounded values; Total is the exact
	// sum of the rounded components.
	Subtotal          float64   `json:"subtotal"`
	Shipping          float64   `json:"shipping"`
	Tax               float64   `json:"tax"`
	Total             float64   `json:"total"`
	Status            Status    `json:"status"`
	OrderDate         time.Time `json:"orderDate"`
	ShippingAddress   string    `json:"shippingAddress"`
	PaymentMethodKind string    `json:"paymentMethod"`
	TrackingNumber    string    `json:"trackingNumber"`
}
