// internal/handler/payment.handler.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/internal/domain"
	"github.com/clivon254/TEO-KICKS-sub002/internal/tracker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Configure properly for production
	},
}

// PaymentHandler serves the payment status page: one websocket per tracked
// attempt, streaming view-state snapshots and accepting retry commands.
type PaymentHandler struct {
	backend  tracker.Backend
	push     tracker.Subscriber
	attempts tracker.Recorder
	window   time.Duration
	logger   *zap.Logger
}

func NewPaymentHandler(
	backend tracker.Backend,
	push tracker.Subscriber,
	attempts tracker.Recorder,
	window time.Duration,
	logger *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		backend:  backend,
		push:     push,
		attempts: attempts,
		window:   window,
		logger:   logger,
	}
}

// trackCommand is what the status page sends back over the socket.
type trackCommand struct {
	Type string `json:"type"` // retry
}

// HandleTrackPayment upgrades the connection and runs one tracking session
// built from the page's URL query parameters. Closing the page tears the
// session down; a refresh with the same parameters resumes tracking.
func (h *PaymentHandler) HandleTrackPayment(w http.ResponseWriter, r *http.Request) {
	attempt := attemptFromQuery(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan []byte, 32)
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer func() {
			ticker.Stop()
			close(done)
			conn.Close()
		}()
		for {
			select {
			case message, ok := <-send:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if !ok {
					conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// The session's callbacks outlive the read loop (breakdown refetches,
	// the fallback timer); past teardown they must find a dead letter, not
	// a closed channel.
	var sendMu sync.Mutex
	sendClosed := false

	enqueue := func(frameType string, data interface{}) {
		frame := Frame{Type: frameType, Data: data, Timestamp: time.Now().Unix()}
		raw, err := json.Marshal(frame)
		if err != nil {
			h.logger.Error("failed to marshal tracking frame", zap.Error(err))
			return
		}
		sendMu.Lock()
		defer sendMu.Unlock()
		if sendClosed {
			return
		}
		select {
		case send <- raw:
		default:
			h.logger.Warn("tracking send queue full, dropping frame",
				zap.String("payment_id", attempt.PaymentID),
				zap.String("frame", frameType))
		}
	}

	session := tracker.NewSession(tracker.Config{
		Attempt:        attempt,
		Backend:        h.backend,
		Subscriber:     h.push,
		Recorder:       h.attempts,
		FallbackWindow: h.window,
		OnUpdate: func(snap tracker.Snapshot) {
			enqueue("payment.view", snap)
		},
		OnNotice: func(kind, message string) {
			enqueue("notification", map[string]string{"kind": kind, "message": message})
		},
		Logger: h.logger,
	})

	session.Start(ctx)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var cmd trackCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			enqueue("notification", map[string]string{"kind": "error", "message": "invalid message"})
			continue
		}

		switch cmd.Type {
		case "retry":
			newAttempt, err := session.Retry(ctx)
			if err != nil {
				if errors.Is(err, domain.ErrRetryNotAllowed) {
					enqueue("notification", map[string]string{
						"kind":    "error",
						"message": "Retry is only available for a failed payment.",
					})
				}
				continue
			}
			// The page rewrites its URL with these so a refresh
			// resumes the new attempt, not the old one.
			enqueue("attempt.updated", newAttempt)

		case "ping":
			enqueue("pong", nil)

		default:
			enqueue("notification", map[string]string{"kind": "error", "message": "unknown command"})
		}
	}

	// Stop the session before retiring the channel so nothing new is
	// emitted, then cut enqueue off and let the writer drain out.
	session.Close()
	sendMu.Lock()
	sendClosed = true
	close(send)
	sendMu.Unlock()
	<-done
}

func attemptFromQuery(r *http.Request) domain.Attempt {
	q := r.URL.Query()
	return domain.Attempt{
		PaymentID:         q.Get("payment_id"),
		OrderID:           q.Get("order_id"),
		InvoiceID:         q.Get("invoice_id"),
		Provider:          domain.PaymentProvider(q.Get("provider")),
		CheckoutRequestID: q.Get("checkout_request_id"),
		PayerPhone:        q.Get("payer_phone"),
		PayerEmail:        q.Get("payer_email"),
	}
}
