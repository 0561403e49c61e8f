// internal/tracker/tracker.go
package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/internal/domain"
	"github.com/clivon254/TEO-KICKS-sub002/internal/pushchan"
)

// Evidence sources. Whichever produces a terminal resolution first wins;
// everything after is discarded.
const (
	SourcePush     = "push"
	SourceFallback = "fallback"
)

// Backend is the slice of the platform API the tracker calls.
type Backend interface {
	PayInvoice(ctx context.Context, invoiceID string, provider domain.PaymentProvider, payerPhone, payerEmail string) (*domain.PaymentInitiation, error)
	QueryPaymentStatus(ctx context.Context, checkoutRequestID string) (*domain.PaymentStatusResult, error)
	GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error)
}

// Subscriber opens the push channel for one payment attempt.
type Subscriber interface {
	Subscribe(ctx context.Context, paymentID string) (<-chan pushchan.Event, error)
}

// Recorder persists attempt outcomes for the analytics pages. Recording
// failures never affect tracking.
type Recorder interface {
	RecordArmed(ctx context.Context, attempt domain.Attempt) error
	RecordResolved(ctx context.Context, paymentID string, status domain.TrackingStatus, code *int, source string) error
}

// Snapshot is the view-state pushed to the browser on every change.
type Snapshot struct {
	Attempt        domain.Attempt         `json:"attempt"`
	View           domain.TrackingView    `json:"view"`
	Breakdown      *domain.OrderBreakdown `json:"breakdown,omitempty"`
	FallbackActive bool                   `json:"fallback_active"`
}

// Config wires one tracking session. OnUpdate and OnNotice must not block;
// they are invoked while the session holds its lock so updates arrive in
// transition order.
type Config struct {
	Attempt        domain.Attempt
	Backend        Backend
	Subscriber     Subscriber
	Recorder       Recorder
	FallbackWindow time.Duration
	OnUpdate       func(Snapshot)
	OnNotice       func(kind, message string)
	Logger         *zap.Logger
}

// Session tracks one payment attempt through PENDING to a terminal state.
// Both evidence channels funnel through the same guarded transition path, so
// stale-attempt discard and terminal freeze are enforced in one place.
type Session struct {
	mu sync.Mutex

	attempt        domain.Attempt
	view           domain.TrackingView
	breakdown      *domain.OrderBreakdown
	fallbackActive bool

	// armed is true while evidence may still transition this attempt.
	// Cleared on terminal transition and on Close.
	armed    bool
	retrying bool

	// closed is set once on Close. No callback fires after it; late
	// breakdown refetches and timer wakeups find it and stop.
	closed bool

	timer     *time.Timer
	cancelSub context.CancelFunc

	backend  Backend
	sub      Subscriber
	recorder Recorder
	window   time.Duration
	onUpdate func(Snapshot)
	onNotice func(kind, message string)
	logger   *zap.Logger
}

func NewSession(cfg Config) *Session {
	window := cfg.FallbackWindow
	if window <= 0 {
		window = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		attempt:  cfg.Attempt,
		backend:  cfg.Backend,
		sub:      cfg.Subscriber,
		recorder: cfg.Recorder,
		window:   window,
		onUpdate: cfg.OnUpdate,
		onNotice: cfg.OnNotice,
		logger:   logger,
	}
}

// Start enters PENDING and arms both evidence channels. Without a payment id
// there is nothing to track: the session stays passively pending, only
// loading the order summary if the order already exists.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	s.view = pendingView(s.attempt.Provider)
	orderID := s.attempt.OrderID
	paymentID := s.attempt.PaymentID
	s.emitLocked()
	s.mu.Unlock()

	if orderID != "" {
		go s.refreshBreakdown(ctx, orderID)
	}
	if paymentID == "" {
		s.logger.Debug("no payment id supplied, tracking not armed")
		return
	}

	s.arm(ctx)
}

// arm opens the push subscription and schedules the single-shot fallback for
// the current attempt. Caller must ensure no prior attempt is still armed.
func (s *Session) arm(ctx context.Context) {
	s.mu.Lock()
	s.armed = true
	s.fallbackActive = false
	paymentID := s.attempt.PaymentID

	subCtx, cancel := context.WithCancel(ctx)
	s.cancelSub = cancel
	s.timer = time.AfterFunc(s.window, func() {
		s.fireFallback(ctx, paymentID)
	})
	s.mu.Unlock()

	s.logger.Info("payment tracking armed",
		zap.String("payment_id", paymentID),
		zap.Duration("fallback_window", s.window))

	if s.recorder != nil {
		if err := s.recorder.RecordArmed(ctx, s.attempt); err != nil {
			s.logger.Warn("failed to record armed attempt", zap.Error(err))
		}
	}

	events, err := s.sub.Subscribe(subCtx, paymentID)
	if err != nil {
		// The fallback poll is the last word when the push channel is
		// unavailable; tracking continues degraded.
		s.logger.Warn("push subscription failed, relying on fallback",
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return
	}

	go s.consume(ctx, events)
}

// consume routes push events. Informational events are observed only; the
// callback event is the authoritative signal.
func (s *Session) consume(ctx context.Context, events <-chan pushchan.Event) {
	for ev := range events {
		switch ev.Type {
		case pushchan.EventPaymentUpdated, pushchan.EventReceiptCreated:
			s.logger.Debug("push event observed",
				zap.String("event", string(ev.Type)),
				zap.String("payment_id", ev.PaymentID))

		case pushchan.EventCallbackReceived:
			if ev.Code == nil {
				s.logger.Warn("callback event without result code",
					zap.String("payment_id", ev.PaymentID))
				continue
			}
			s.applyEvidence(ctx, ev.PaymentID, *ev.Code, ev.Message, SourcePush)

		default:
			s.logger.Debug("unhandled push event",
				zap.String("event", string(ev.Type)))
		}
	}
}

// applyEvidence is the single transition entry point for both channels.
// Evidence for a stale payment id, or arriving after a terminal transition,
// is discarded here.
func (s *Session) applyEvidence(ctx context.Context, paymentID string, code int, message, source string) {
	s.mu.Lock()

	if !s.armed || paymentID != s.attempt.PaymentID {
		armedID := s.attempt.PaymentID
		s.mu.Unlock()
		s.logger.Debug("discarding stale payment evidence",
			zap.String("payment_id", paymentID),
			zap.String("armed_payment_id", armedID),
			zap.String("source", source),
			zap.Int("code", code))
		return
	}

	res := Resolve(code)
	if source == SourceFallback {
		res = ResolveFallback(code)
	}

	if res.Status == domain.TrackingPending {
		// Still processing: refresh the message, keep the fallback
		// timer and flag untouched.
		s.view.Title = res.Title
		s.view.Message = displayMessage(res, message)
		s.emitLocked()
		s.mu.Unlock()
		return
	}

	s.finishLocked(res, message)
	status := s.view.Status
	orderID := s.attempt.OrderID
	s.mu.Unlock()

	s.logger.Info("payment attempt resolved",
		zap.String("payment_id", paymentID),
		zap.String("status", string(status)),
		zap.Int("code", code),
		zap.String("source", source))

	if s.recorder != nil {
		c := code
		if err := s.recorder.RecordResolved(ctx, paymentID, status, &c, source); err != nil {
			s.logger.Warn("failed to record attempt outcome", zap.Error(err))
		}
	}

	if status == domain.TrackingSuccess && orderID != "" {
		go s.refreshBreakdown(ctx, orderID)
	}
}

// finishLocked sets the terminal view and releases every resource tied to
// the attempt. Called with the lock held.
func (s *Session) finishLocked(res Resolution, message string) {
	s.armed = false
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancelSub != nil {
		s.cancelSub()
	}
	s.view = domain.TrackingView{
		Status:   res.Status,
		Title:    res.Title,
		Message:  displayMessage(res, message),
		Provider: s.attempt.Provider,
	}
	s.emitLocked()
}

// fireFallback runs when the 60-second budget elapses with the attempt still
// pending. It is single-shot and always ends in a terminal state.
func (s *Session) fireFallback(ctx context.Context, paymentID string) {
	s.mu.Lock()
	if !s.armed || paymentID != s.attempt.PaymentID {
		s.mu.Unlock()
		return
	}
	s.fallbackActive = true
	s.view.Message = "Checking payment status..."
	s.emitLocked()
	provider := s.attempt.Provider
	checkoutID := s.attempt.CheckoutRequestID
	s.mu.Unlock()

	s.logger.Info("fallback poll fired",
		zap.String("payment_id", paymentID),
		zap.String("provider", string(provider)))

	// Only mpesa attempts carry a correlation id the backend can be asked
	// about; anything else times out terminally.
	if provider != domain.ProviderMpesa || checkoutID == "" {
		s.failNow(ctx, paymentID, Resolution{
			Status:  domain.TrackingFailed,
			Title:   "Payment Not Confirmed",
			Message: "We did not receive payment confirmation in time. Please retry.",
		})
		return
	}

	result, err := s.backend.QueryPaymentStatus(ctx, checkoutID)
	if err != nil {
		s.logger.Warn("fallback status query failed",
			zap.String("payment_id", paymentID),
			zap.Error(err))
		s.failNow(ctx, paymentID, Resolution{
			Status:  domain.TrackingFailed,
			Title:   "Payment Not Confirmed",
			Message: "We could not verify the payment status. Please retry.",
		})
		return
	}

	s.applyEvidence(ctx, paymentID, result.ResultCode, result.ResultDesc, SourceFallback)
}

// failNow applies a synthetic failure from the fallback path, guarded the
// same way as provider evidence.
func (s *Session) failNow(ctx context.Context, paymentID string, res Resolution) {
	s.mu.Lock()
	if !s.armed || paymentID != s.attempt.PaymentID {
		s.mu.Unlock()
		return
	}
	s.finishLocked(res, "")
	s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.RecordResolved(ctx, paymentID, domain.TrackingFailed, nil, SourceFallback); err != nil {
			s.logger.Warn("failed to record attempt outcome", zap.Error(err))
		}
	}
}

// Retry re-initiates payment for the invoice after a failure. The old
// attempt's resources are discarded before the new attempt is armed; the
// returned attempt carries the new identifiers for the status page URL.
func (s *Session) Retry(ctx context.Context) (*domain.Attempt, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.ErrTrackingClosed
	}
	if s.view.Status != domain.TrackingFailed || s.attempt.InvoiceID == "" {
		s.mu.Unlock()
		return nil, domain.ErrRetryNotAllowed
	}
	if s.retrying {
		s.mu.Unlock()
		return nil, domain.ErrRetryNotAllowed
	}
	s.retrying = true
	invoiceID := s.attempt.InvoiceID
	provider := s.attempt.Provider
	phone := s.attempt.PayerPhone
	email := s.attempt.PayerEmail
	s.mu.Unlock()

	init, err := s.backend.PayInvoice(ctx, invoiceID, provider, phone, email)

	s.mu.Lock()
	s.retrying = false
	if err != nil {
		// The view stays FAILED; the user may retry the retry.
		s.mu.Unlock()
		s.logger.Error("payment retry initiation failed",
			zap.String("invoice_id", invoiceID),
			zap.Error(err))
		if s.onNotice != nil {
			s.onNotice("error", "Could not restart the payment. Please try again.")
		}
		return nil, err
	}

	// Discard whatever the old attempt left behind, then swap identifiers.
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancelSub != nil {
		s.cancelSub()
	}
	s.attempt.PaymentID = init.PaymentID
	s.attempt.CheckoutRequestID = init.CheckoutRequestID
	s.view = pendingView(s.attempt.Provider)
	s.fallbackActive = false
	s.emitLocked()
	attempt := s.attempt
	s.mu.Unlock()

	s.logger.Info("payment retry initiated",
		zap.String("invoice_id", invoiceID),
		zap.String("payment_id", attempt.PaymentID))

	s.arm(ctx)
	return &attempt, nil
}

// Close releases the attempt's timer and subscription. Used on unmount;
// further evidence is ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.armed = false
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancelSub != nil {
		s.cancelSub()
	}
}

// Snapshot returns the current view state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Attempt:        s.attempt,
		View:           s.view,
		FallbackActive: s.fallbackActive,
	}
	if s.breakdown != nil {
		b := *s.breakdown
		snap.Breakdown = &b
	}
	return snap
}

func (s *Session) emitLocked() {
	if s.closed || s.onUpdate == nil {
		return
	}
	s.onUpdate(s.snapshotLocked())
}

// refreshBreakdown refetches settled pricing. Failure never downgrades the
// view; the breakdown is only ever replaced by a successful fetch.
func (s *Session) refreshBreakdown(ctx context.Context, orderID string) {
	order, err := s.backend.GetOrderByID(ctx, orderID)
	if err != nil {
		s.logger.Warn("order breakdown refetch failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.breakdown = &order.Pricing
	s.emitLocked()
	s.mu.Unlock()
}

func pendingView(provider domain.PaymentProvider) domain.TrackingView {
	return domain.TrackingView{
		Status:   domain.TrackingPending,
		Title:    "Processing Payment",
		Message:  "Waiting for payment confirmation...",
		Provider: provider,
	}
}

func displayMessage(res Resolution, message string) string {
	if message != "" {
		return message
	}
	return res.Message
}
