// internal/pushchan/client.go
package pushchan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type EventType string

const (
	EventPaymentUpdated   EventType = "payment.updated"
	EventReceiptCreated   EventType = "receipt.created"
	EventCallbackReceived EventType = "callback.received"
)

// Event is one notification from the platform push channel. Code is set only
// on callback.received frames.
type Event struct {
	Type      EventType
	PaymentID string
	Code      *int
	Message   string
}

type frame struct {
	Event string `json:"event"`
	Data  struct {
		PaymentID string `json:"payment_id"`
		Code      *int   `json:"code,omitempty"`
		Message   string `json:"message,omitempty"`
	} `json:"data"`
}

type subscribeCmd struct {
	Action    string `json:"action"`
	Room      string `json:"room"`
	PaymentID string `json:"payment_id"`
}

// Client dials the platform notification endpoint. One connection is opened
// per tracked payment attempt and torn down with it.
type Client struct {
	wsURL  string
	dialer *websocket.Dialer
	logger *zap.Logger
}

func New(wsURL string, logger *zap.Logger) *Client {
	return &Client{
		wsURL: wsURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Subscribe connects, joins the payment room for paymentID, and streams
// events until the context is cancelled or the connection drops. The channel
// is closed on exit; a dropped connection simply ends the stream and leaves
// the fallback poll to resolve the attempt.
func (c *Client) Subscribe(ctx context.Context, paymentID string) (<-chan Event, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}

	cmd := subscribeCmd{Action: "subscribe", Room: "payment", PaymentID: paymentID}
	if err := conn.WriteJSON(cmd); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe to payment room: %w", err)
	}

	c.logger.Debug("subscribed to payment room",
		zap.String("payment_id", paymentID))

	events := make(chan Event, 8)

	// Close the socket when the attempt is cancelled so the read loop exits.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(events)
		defer conn.Close()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					c.logger.Warn("push channel closed unexpectedly",
						zap.String("payment_id", paymentID),
						zap.Error(err))
				}
				return
			}

			var f frame
			if err := json.Unmarshal(raw, &f); err != nil {
				c.logger.Warn("unparseable push frame",
					zap.String("payment_id", paymentID),
					zap.Error(err))
				continue
			}

			ev := Event{
				Type:      EventType(f.Event),
				PaymentID: f.Data.PaymentID,
				Code:      f.Data.Code,
				Message:   f.Data.Message,
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
