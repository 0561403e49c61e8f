// internal/handler/payment_handler_test.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/internal/domain"
	"github.com/clivon254/TEO-KICKS-sub002/internal/pushchan"
)

type stubBackend struct {
	mu      sync.Mutex
	payInit *domain.PaymentInitiation
	payErr  error
	status  *domain.PaymentStatusResult
	order   *domain.Order

	// orderGate, when set, blocks GetOrderByID until closed.
	orderGate chan struct{}
}

func (s *stubBackend) PayInvoice(ctx context.Context, invoiceID string, provider domain.PaymentProvider, phone, email string) (*domain.PaymentInitiation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payInit, s.payErr
}

func (s *stubBackend) QueryPaymentStatus(ctx context.Context, checkoutRequestID string) (*domain.PaymentStatusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == nil {
		return &domain.PaymentStatusResult{ResultCode: 1036}, nil
	}
	return s.status, nil
}

func (s *stubBackend) GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	if s.orderGate != nil {
		<-s.orderGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		return &domain.Order{ID: orderID}, nil
	}
	return s.order, nil
}

type stubPush struct {
	mu    sync.Mutex
	chans map[string]chan pushchan.Event
}

func newStubPush() *stubPush {
	return &stubPush{chans: make(map[string]chan pushchan.Event)}
}

func (s *stubPush) Subscribe(ctx context.Context, paymentID string) (<-chan pushchan.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan pushchan.Event, 16)
	s.chans[paymentID] = ch
	return ch, nil
}

func (s *stubPush) callback(paymentID string, code int) {
	s.mu.Lock()
	ch, ok := s.chans[paymentID]
	s.mu.Unlock()
	if !ok {
		return
	}
	c := code
	ch <- pushchan.Event{Type: pushchan.EventCallbackReceived, PaymentID: paymentID, Code: &c}
}

func dialTrack(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	return conn
}

// readFrameOfType reads frames until one of the wanted type arrives.
func readFrameOfType(t *testing.T, conn *websocket.Conn, frameType string) Frame {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var f Frame
		require.NoError(t, json.Unmarshal(raw, &f))
		if f.Type == frameType {
			return f
		}
	}
	t.Fatalf("no %q frame before deadline", frameType)
	return Frame{}
}

func viewStatus(t *testing.T, f Frame) string {
	data, err := json.Marshal(f.Data)
	require.NoError(t, err)
	var snap struct {
		View struct {
			Status string `json:"status"`
		} `json:"view"`
	}
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap.View.Status
}

func TestTrackPaymentStreamsViewUpdates(t *testing.T) {
	backend := &stubBackend{}
	push := newStubPush()
	h := NewPaymentHandler(backend, push, nil, time.Minute, zap.NewNop())

	ts := httptest.NewServer(http.HandlerFunc(h.HandleTrackPayment))
	defer ts.Close()

	conn := dialTrack(t, ts, "payment_id=p1&order_id=ord-1&invoice_id=inv-1&provider=mpesa&checkout_request_id=ws_CO_1")
	defer conn.Close()

	first := readFrameOfType(t, conn, "payment.view")
	assert.Equal(t, "pending", viewStatus(t, first))

	// Wait for the subscription, then deliver the authoritative callback.
	require.Eventually(t, func() bool {
		push.mu.Lock()
		defer push.mu.Unlock()
		_, ok := push.chans["p1"]
		return ok
	}, time.Second, 5*time.Millisecond)
	push.callback("p1", 0)

	for {
		f := readFrameOfType(t, conn, "payment.view")
		if status := viewStatus(t, f); status != "pending" {
			assert.Equal(t, "success", status)
			break
		}
	}
}

func TestTrackPaymentRetryReturnsNewAttempt(t *testing.T) {
	backend := &stubBackend{
		payInit: &domain.PaymentInitiation{PaymentID: "p2", CheckoutRequestID: "ws_CO_2"},
	}
	push := newStubPush()
	h := NewPaymentHandler(backend, push, nil, time.Minute, zap.NewNop())

	ts := httptest.NewServer(http.HandlerFunc(h.HandleTrackPayment))
	defer ts.Close()

	conn := dialTrack(t, ts, "payment_id=p1&invoice_id=inv-1&provider=mpesa&checkout_request_id=ws_CO_1&payer_phone=254700000001")
	defer conn.Close()

	require.Eventually(t, func() bool {
		push.mu.Lock()
		defer push.mu.Unlock()
		_, ok := push.chans["p1"]
		return ok
	}, time.Second, 5*time.Millisecond)
	push.callback("p1", 1032)

	for {
		f := readFrameOfType(t, conn, "payment.view")
		if viewStatus(t, f) == "failed" {
			break
		}
	}

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "retry"}))

	f := readFrameOfType(t, conn, "attempt.updated")
	data, err := json.Marshal(f.Data)
	require.NoError(t, err)
	var attempt domain.Attempt
	require.NoError(t, json.Unmarshal(data, &attempt))
	assert.Equal(t, "p2", attempt.PaymentID)
	assert.Equal(t, "ws_CO_2", attempt.CheckoutRequestID)
}

func TestDisconnectDuringBreakdownRefetch(t *testing.T) {
	gate := make(chan struct{})
	backend := &stubBackend{
		orderGate: gate,
		order:     &domain.Order{ID: "ord-1", Pricing: domain.OrderBreakdown{Total: 100}},
	}
	push := newStubPush()
	h := NewPaymentHandler(backend, push, nil, time.Minute, zap.NewNop())

	ts := httptest.NewServer(http.HandlerFunc(h.HandleTrackPayment))
	defer ts.Close()

	conn := dialTrack(t, ts, "payment_id=p1&order_id=ord-1&invoice_id=inv-1&provider=mpesa&checkout_request_id=ws_CO_1")

	require.Eventually(t, func() bool {
		push.mu.Lock()
		defer push.mu.Unlock()
		_, ok := push.chans["p1"]
		return ok
	}, time.Second, 5*time.Millisecond)
	push.callback("p1", 0)

	for {
		f := readFrameOfType(t, conn, "payment.view")
		if viewStatus(t, f) == "success" {
			break
		}
	}

	// Disconnect with the breakdown refetch still parked in the backend,
	// then release it. The late completion must die quietly, not crash the
	// process writing to a retired connection.
	conn.Close()
	time.Sleep(50 * time.Millisecond)
	close(gate)
	time.Sleep(100 * time.Millisecond)
}

func TestTrackingSocketOutlivesReadDeadline(t *testing.T) {
	oldPong, oldPing := pongWait, pingPeriod
	pongWait, pingPeriod = 200*time.Millisecond, 60*time.Millisecond
	defer func() { pongWait, pingPeriod = oldPong, oldPing }()

	backend := &stubBackend{}
	push := newStubPush()
	h := NewPaymentHandler(backend, push, nil, time.Minute, zap.NewNop())

	ts := httptest.NewServer(http.HandlerFunc(h.HandleTrackPayment))
	defer ts.Close()

	conn := dialTrack(t, ts, "payment_id=p1&invoice_id=inv-1&provider=mpesa&checkout_request_id=ws_CO_1")
	defer conn.Close()

	// Blocking reader so protocol pings are answered while the page idles.
	frames := make(chan Frame, 8)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var f Frame
			if json.Unmarshal(raw, &f) == nil {
				frames <- f
			}
		}
	}()

	require.Eventually(t, func() bool {
		push.mu.Lock()
		defer push.mu.Unlock()
		_, ok := push.chans["p1"]
		return ok
	}, time.Second, 5*time.Millisecond)

	// Idle well past the read deadline; server pings must keep it alive.
	time.Sleep(600 * time.Millisecond)
	push.callback("p1", 0)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case f := <-frames:
			if f.Type == "payment.view" && viewStatus(t, f) == "success" {
				return
			}
		case err := <-readErr:
			t.Fatalf("connection dropped while idle: %v", err)
		case <-deadline:
			t.Fatal("no terminal view frame after idle period")
		}
	}
}

func TestTrackPaymentRetryRefusedWhilePending(t *testing.T) {
	backend := &stubBackend{}
	push := newStubPush()
	h := NewPaymentHandler(backend, push, nil, time.Minute, zap.NewNop())

	ts := httptest.NewServer(http.HandlerFunc(h.HandleTrackPayment))
	defer ts.Close()

	conn := dialTrack(t, ts, "payment_id=p1&invoice_id=inv-1&provider=mpesa")
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "retry"}))

	f := readFrameOfType(t, conn, "notification")
	data, _ := json.Marshal(f.Data)
	assert.Contains(t, string(data), "failed payment")
}
