// internal/apiclient/payments.go
package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/clivon254/TEO-KICKS-sub002/internal/domain"
)

type payInvoiceRequest struct {
	InvoiceID  string `json:"invoice_id"`
	Method     string `json:"method"`
	PayerPhone string `json:"payer_phone,omitempty"`
	PayerEmail string `json:"payer_email,omitempty"`
}

type payInvoiceData struct {
	PaymentID string `json:"payment_id"`
	Daraja    *struct {
		CheckoutRequestID string `json:"checkout_request_id"`
	} `json:"daraja,omitempty"`
	Reference        string `json:"reference,omitempty"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
}

// PayInvoice initiates a payment for an invoice. The contact field depends on
// the provider: phone for mpesa STK push, email for paystack card.
func (c *Client) PayInvoice(ctx context.Context, invoiceID string, provider domain.PaymentProvider, payerPhone, payerEmail string) (*domain.PaymentInitiation, error) {
	req := payInvoiceRequest{
		InvoiceID: invoiceID,
		Method:    string(provider),
	}
	switch provider {
	case domain.ProviderMpesa:
		req.PayerPhone = payerPhone
	case domain.ProviderPaystackCard:
		req.PayerEmail = payerEmail
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrProviderNotFound, provider)
	}

	var data payInvoiceData
	if err := c.do(ctx, http.MethodPost, "/payments/pay", nil, req, &data); err != nil {
		return nil, err
	}
	if data.PaymentID == "" {
		return nil, fmt.Errorf("pay invoice: %w", domain.ErrMissingPaymentID)
	}

	init := &domain.PaymentInitiation{
		PaymentID:        data.PaymentID,
		Reference:        data.Reference,
		AuthorizationURL: data.AuthorizationURL,
	}
	if data.Daraja != nil {
		init.CheckoutRequestID = data.Daraja.CheckoutRequestID
	}
	return init, nil
}

type statusQueryData struct {
	ResultCode int    `json:"result_code"`
	ResultDesc string `json:"result_desc"`
}

// QueryPaymentStatus asks the backend for the outcome of an mpesa checkout
// request. Used only by the tracker's fallback poll.
func (c *Client) QueryPaymentStatus(ctx context.Context, checkoutRequestID string) (*domain.PaymentStatusResult, error) {
	var data statusQueryData
	path := fmt.Sprintf("/payments/status/%s", checkoutRequestID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &data); err != nil {
		return nil, err
	}
	return &domain.PaymentStatusResult{
		ResultCode: data.ResultCode,
		ResultDesc: data.ResultDesc,
	}, nil
}
