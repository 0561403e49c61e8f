// internal/domain/order.go
package domain

import (
	"encoding/json"
	"time"
)

// OrderBreakdown is the settled pricing snapshot fetched once a payment
// succeeds, or on initial load when the order already exists. Once fetched it
// is only ever replaced by a newer successful fetch, never cleared.
type OrderBreakdown struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Fees     float64 `json:"fees"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type Order struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoice_id,omitempty"`
	Status    string          `json:"status"`
	Pricing   OrderBreakdown  `json:"pricing"`
	Items     []OrderItem     `json:"items"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CheckoutRequest is what the dashboard submits to start a purchase: the
// order payload for the backend plus the payment method and contact channel.
type CheckoutRequest struct {
	Order      json.RawMessage `json:"order"`
	Provider   PaymentProvider `json:"provider"`
	PayerPhone string          `json:"payer_phone,omitempty"`
	PayerEmail string          `json:"payer_email,omitempty"`
}
