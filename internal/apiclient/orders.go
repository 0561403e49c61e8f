// internal/apiclient/orders.go
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/clivon254/TEO-KICKS-sub002/internal/domain"
)

type createOrderData struct {
	OrderID   string `json:"order_id"`
	InvoiceID string `json:"invoice_id"`
}

// CreateOrder submits a new order and returns the order and invoice ids the
// checkout flow needs to initiate payment.
func (c *Client) CreateOrder(ctx context.Context, payload json.RawMessage) (orderID, invoiceID string, err error) {
	var data createOrderData
	if err := c.do(ctx, http.MethodPost, "/orders", nil, payload, &data); err != nil {
		return "", "", err
	}
	if data.OrderID == "" {
		return "", "", fmt.Errorf("create order: backend returned no order id")
	}
	return data.OrderID, data.InvoiceID, nil
}

type orderData struct {
	Order domain.Order `json:"order"`
}

// GetOrderByID fetches one order with its settled pricing and line items.
func (c *Client) GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var data orderData
	path := fmt.Sprintf("/orders/%s", orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &data); err != nil {
		return nil, err
	}
	return &data.Order, nil
}
