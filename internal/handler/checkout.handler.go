// internal/handler/checkout.handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/internal/apiclient"
	"github.com/clivon254/TEO-KICKS-sub002/internal/domain"
	"github.com/clivon254/TEO-KICKS-sub002/pkg/response"
)

// CheckoutHandler creates the order and initiates payment, handing the
// status page everything it needs to carry in its URL.
type CheckoutHandler struct {
	api    *apiclient.Client
	logger *zap.Logger
}

func NewCheckoutHandler(api *apiclient.Client, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{api: api, logger: logger}
}

// checkoutResult is echoed into the status page URL as query parameters.
type checkoutResult struct {
	OrderID           string                 `json:"order_id"`
	InvoiceID         string                 `json:"invoice_id"`
	PaymentID         string                 `json:"payment_id"`
	CheckoutRequestID string                 `json:"checkout_request_id,omitempty"`
	Provider          domain.PaymentProvider `json:"provider"`
	PayerPhone        string                 `json:"payer_phone,omitempty"`
	PayerEmail        string                 `json:"payer_email,omitempty"`
	Reference         string                 `json:"reference,omitempty"`
	AuthorizationURL  string                 `json:"authorization_url,omitempty"`
}

func (h *CheckoutHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid checkout payload")
		return
	}
	if len(req.Order) == 0 {
		response.Error(w, http.StatusBadRequest, "order payload required")
		return
	}

	orderID, invoiceID, err := h.api.CreateOrder(r.Context(), req.Order)
	if err != nil {
		h.logger.Error("order creation failed", zap.Error(err))
		response.Error(w, statusFor(err), "could not create order")
		return
	}

	init, err := h.api.PayInvoice(r.Context(), invoiceID, req.Provider, req.PayerPhone, req.PayerEmail)
	if err != nil {
		h.logger.Error("payment initiation failed",
			zap.String("order_id", orderID),
			zap.String("invoice_id", invoiceID),
			zap.Error(err))
		// The order exists; the page can retry payment from the invoice.
		response.Error(w, statusFor(err), "order created but payment initiation failed")
		return
	}

	h.logger.Info("checkout initiated",
		zap.String("order_id", orderID),
		zap.String("invoice_id", invoiceID),
		zap.String("payment_id", init.PaymentID),
		zap.String("provider", string(req.Provider)))

	response.JSON(w, http.StatusCreated, checkoutResult{
		OrderID:           orderID,
		InvoiceID:         invoiceID,
		PaymentID:         init.PaymentID,
		CheckoutRequestID: init.CheckoutRequestID,
		Provider:          req.Provider,
		PayerPhone:        req.PayerPhone,
		PayerEmail:        req.PayerEmail,
		Reference:         init.Reference,
		AuthorizationURL:  init.AuthorizationURL,
	})
}

// statusFor maps client errors onto gateway responses.
func statusFor(err error) int {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return http.StatusUnauthorized
		case apiErr.Status >= 400 && apiErr.Status < 500:
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnknownResource) {
		return http.StatusNotFound
	}
	if errors.Is(err, domain.ErrSessionNotFound) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, domain.ErrProviderNotFound) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
