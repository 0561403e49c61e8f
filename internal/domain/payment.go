// internal/domain/payment.go
package domain

import (
	"time"
)

type PaymentProvider string
type TrackingStatus string

const (
	ProviderMpesa        PaymentProvider = "mpesa"
	ProviderPaystackCard PaymentProvider = "paystack_card"
)

const (
	TrackingPending TrackingStatus = "pending"
	TrackingSuccess TrackingStatus = "success"
	TrackingFailed  TrackingStatus = "failed"
)

// Terminal reports whether no further automatic transition may occur.
func (s TrackingStatus) Terminal() bool {
	return s == TrackingSuccess || s == TrackingFailed
}

// TrackingView is the single user-facing state of a payment attempt. Exactly
// one view is presented at any time; handlers render it verbatim.
type TrackingView struct {
	Status   TrackingStatus  `json:"status"`
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Provider PaymentProvider `json:"provider,omitempty"`
}

// Attempt carries the identifiers of one payment initiation. A retry mints a
// new Attempt; attempts are never mutated in place.
type Attempt struct {
	PaymentID         string          `json:"payment_id"`
	OrderID           string          `json:"order_id,omitempty"`
	InvoiceID         string          `json:"invoice_id,omitempty"`
	Provider          PaymentProvider `json:"provider,omitempty"`
	CheckoutRequestID string          `json:"checkout_request_id,omitempty"`
	PayerPhone        string          `json:"payer_phone,omitempty"`
	PayerEmail        string          `json:"payer_email,omitempty"`
}

// PaymentInitiation is the backend's response to an invoice payment request.
type PaymentInitiation struct {
	PaymentID         string `json:"payment_id"`
	CheckoutRequestID string `json:"checkout_request_id,omitempty"`
	Reference         string `json:"reference,omitempty"`
	AuthorizationURL  string `json:"authorization_url,omitempty"`
}

// PaymentStatusResult is the backend's answer to a checkout-request status query.
type PaymentStatusResult struct {
	ResultCode int    `json:"result_code"`
	ResultDesc string `json:"result_desc"`
}

// AttemptRecord is the audit row written for each armed attempt and its
// terminal outcome, consumed by the analytics pages.
type AttemptRecord struct {
	ID          int64           `json:"id"`
	PaymentID   string          `json:"payment_id"`
	OrderID     string          `json:"order_id,omitempty"`
	InvoiceID   string          `json:"invoice_id,omitempty"`
	Provider    PaymentProvider `json:"provider,omitempty"`
	FinalStatus TrackingStatus  `json:"final_status"`
	ResultCode  *int            `json:"result_code,omitempty"`
	Source      string          `json:"source,omitempty"` // push | fallback
	ArmedAt     time.Time       `json:"armed_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
}
