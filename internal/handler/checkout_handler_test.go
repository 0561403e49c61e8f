// internal/handler/checkout_handler_test.go
package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/internal/apiclient"
)

// backendStub serves the two platform endpoints checkout touches.
func backendStub(t *testing.T, payStatus int, payBody string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/orders":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"data":{"order_id":"ord-1","invoice_id":"inv-1"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/payments/pay":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(payStatus)
			w.Write([]byte(payBody))
		default:
			t.Errorf("unexpected backend call: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func postCheckout(h *CheckoutHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/api/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleCheckout(rec, req)
	return rec
}

func TestCheckoutReturnsTrackingIdentifiers(t *testing.T) {
	backend := backendStub(t, http.StatusOK,
		`{"success":true,"data":{"payment_id":"pay-1","daraja":{"checkout_request_id":"ws_CO_1"}}}`)
	defer backend.Close()

	api := apiclient.New(backend.URL, 5*time.Second, nil, zap.NewNop())
	h := NewCheckoutHandler(api, zap.NewNop())

	rec := postCheckout(h, `{"order":{"items":[{"product_id":"p1","quantity":1}]},"provider":"mpesa","payer_phone":"254700000001"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)

	var result checkoutResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "ord-1", result.OrderID)
	assert.Equal(t, "inv-1", result.InvoiceID)
	assert.Equal(t, "pay-1", result.PaymentID)
	assert.Equal(t, "ws_CO_1", result.CheckoutRequestID)
	assert.Equal(t, "254700000001", result.PayerPhone)
}

func TestCheckoutRejectsEmptyOrder(t *testing.T) {
	api := apiclient.New("http://unused", time.Second, nil, zap.NewNop())
	h := NewCheckoutHandler(api, zap.NewNop())

	rec := postCheckout(h, `{"provider":"mpesa"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutSurfacesPaymentInitiationFailure(t *testing.T) {
	backend := backendStub(t, http.StatusUnprocessableEntity,
		`{"success":false,"message":"invoice already settled"}`)
	defer backend.Close()

	api := apiclient.New(backend.URL, 5*time.Second, nil, zap.NewNop())
	h := NewCheckoutHandler(api, zap.NewNop())

	rec := postCheckout(h, `{"order":{"items":[]},"provider":"mpesa","payer_phone":"254700000001"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "payment initiation failed")
}

func TestStatusForMapping(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, statusFor(&apiclient.APIError{Status: 401}))
	assert.Equal(t, http.StatusBadRequest, statusFor(&apiclient.APIError{Status: 422}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&apiclient.APIError{Status: 503}))
}
