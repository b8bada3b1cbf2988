package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/optimove/optimove-go/pkg/optimove/config"
	"github.com/optimove/optimove-go/pkg/optimove/event"
	"github.com/optimove/optimove-go/pkg/optimove/observability"
	"github.com/optimove/optimove-go/pkg/optimove/storage"
)

// DefaultSendDelay is the pause before each transport send.
// TODO: replace the fixed pause with gateway-side rate limit feedback once
// the gateway exposes it.
const DefaultSendDelay = time.Second

// DefaultQueueBuffer bounds the send queue's channel buffer.
const DefaultQueueBuffer = 64

// Options tunes the engine.
type Options struct {
	// SendDelay is the pause before each send. Zero selects
	// DefaultSendDelay; a negative value disables the delay.
	SendDelay time.Duration

	// QueueBuffer is the send queue buffer size. Zero selects
	// DefaultQueueBuffer.
	QueueBuffer int
}

// Identity parameter names used by the reserved identity events.
const (
	ParamUserID = "user_id"
	ParamEmail  = "email"
)

// Engine is the realtime delivery engine. It validates events against the
// current configuration, restores identity ordering by retrying previously
// failed identity sends ahead of the current event, and feeds the serial
// send queue.
type Engine struct {
	cfgStore *config.Store
	settings storage.Store
	ledger   *FailureLedger
	queue    *sendQueue
	logger   *slog.Logger
	metrics  observability.MetricsRecorder

	visitorID  string
	firstVisit int64

	// mu serializes Report calls so a retry burst and its triggering event
	// reach the queue as one contiguous block.
	mu sync.Mutex
}

// NewEngine creates the engine and starts its send queue.
//
// On first run the engine mints a visitor ID and stamps the first-visit
// timestamp; both persist across restarts and are never overwritten.
func NewEngine(cfgStore *config.Store, settings storage.Store, transport Transport, logger *slog.Logger, metrics observability.MetricsRecorder, opts Options) (*Engine, error) {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}

	visitorID, err := settings.GetString(storage.KeyVisitorID)
	if errors.Is(err, storage.ErrNotFound) {
		visitorID = uuid.NewString()
		err = settings.SetString(storage.KeyVisitorID, visitorID)
	}
	if err != nil {
		return nil, fmt.Errorf("visitor id: %w", err)
	}

	firstVisit, err := settings.GetInt64(storage.KeyFirstVisitTimestamp)
	if errors.Is(err, storage.ErrNotFound) {
		firstVisit = time.Now().Unix()
		err = settings.SetInt64(storage.KeyFirstVisitTimestamp, firstVisit)
	}
	if err != nil {
		return nil, fmt.Errorf("first visit timestamp: %w", err)
	}

	delay := opts.SendDelay
	switch {
	case delay == 0:
		delay = DefaultSendDelay
	case delay < 0:
		delay = 0
	}
	buffer := opts.QueueBuffer
	if buffer <= 0 {
		buffer = DefaultQueueBuffer
	}

	ledger := NewFailureLedger(settings)
	queue, err := newSendQueue(transport, ledger, logger, metrics, delay, buffer)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfgStore:   cfgStore,
		settings:   settings,
		ledger:     ledger,
		queue:      queue,
		logger:     logger,
		metrics:    metrics,
		visitorID:  visitorID,
		firstVisit: firstVisit,
	}, nil
}

// VisitorID returns the persistent device-scoped visitor identifier.
func (e *Engine) VisitorID() string {
	return e.visitorID
}

// Report validates the event and enqueues it for delivery. When retryFailed
// is set, armed identity retries are enqueued first so the gateway observes
// set-user-id, then set-email, then the current event.
//
// Unsupported or unconfigured events are dropped silently; only validation
// failures surface as errors.
func (e *Engine) Report(ctx context.Context, evt event.Event, retryFailed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report(ctx, evt, retryFailed)
}

func (e *Engine) report(ctx context.Context, evt event.Event, retryFailed bool) error {
	cfg := e.cfgStore.Current()
	if cfg == nil {
		observability.LogEventDropped(e.logger, evt.Name, "no configuration")
		return nil
	}
	if !cfg.RealtimeEnabled() {
		observability.LogEventDropped(e.logger, evt.Name, "realtime disabled")
		return nil
	}

	name := event.Normalize(evt.Name)
	settings, ok := cfg.EventSettings(name)
	if !ok {
		observability.LogEventDropped(e.logger, name, "event not configured")
		return nil
	}
	if !settings.SupportedOnRealtime {
		observability.LogEventDropped(e.logger, name, "not supported on realtime")
		return nil
	}

	decorated, err := event.Decorate(evt, settings)
	if err != nil {
		return err
	}

	category := CategoryFor(decorated.Name)
	if retryFailed {
		e.retryIdentity(ctx, category)
	}

	return e.enqueue(cfg, category, decorated)
}

// retryIdentity re-reports armed identity categories, in fixed order,
// skipping the category the current event already carries. Retries never
// trigger further retries.
func (e *Engine) retryIdentity(ctx context.Context, current Category) {
	for _, c := range retryOrder {
		if c == current {
			continue
		}
		failed, err := e.ledger.IsFailed(c)
		if err != nil {
			if e.logger != nil {
				e.logger.Error("failure ledger read failed",
					slog.String("category", string(c)),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		if !failed {
			continue
		}

		idEvt, ok := e.identityEvent(c)
		if !ok {
			observability.LogEventDropped(e.logger, string(c), "identity value not persisted")
			continue
		}

		e.metrics.RecordRetry(ctx, string(c))
		if err := e.report(ctx, idEvt, false); err != nil {
			observability.LogEventDropped(e.logger, string(c), err.Error())
		}
	}
}

// identityEvent rebuilds an identity event from the persisted value.
func (e *Engine) identityEvent(c Category) (event.Event, bool) {
	switch c {
	case CategoryUserID:
		userID, err := e.settings.GetString(storage.KeyUserID)
		if err != nil || userID == "" {
			return event.Event{}, false
		}
		return event.New(event.SetUserIDName, map[string]any{ParamUserID: userID}), true
	case CategoryUserEmail:
		email, err := e.settings.GetString(storage.KeyUserEmail)
		if err != nil || email == "" {
			return event.Event{}, false
		}
		return event.New(event.SetEmailName, map[string]any{ParamEmail: email}), true
	}
	return event.Event{}, false
}

// enqueue builds the wire payload and appends it to the send queue.
func (e *Engine) enqueue(cfg *config.Configuration, category Category, decorated event.Decorated) error {
	wire := WireEvent{
		TenantID:   cfg.TenantID(),
		Token:      cfg.RealtimeToken(),
		EventID:    decorated.ID,
		Name:       decorated.Name,
		VisitorID:  e.visitorID,
		FirstVisit: e.firstVisit,
		Params:     decorated.Params,
	}
	if userID, err := e.settings.GetString(storage.KeyUserID); err == nil {
		wire.UserID = userID
	}
	return e.queue.enqueue(sendJob{Category: category, Event: wire})
}

// SetUserID persists the user identifier and reports the identity event.
func (e *Engine) SetUserID(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id cannot be empty")
	}
	if err := e.settings.SetString(storage.KeyUserID, userID); err != nil {
		return fmt.Errorf("persist user id: %w", err)
	}
	return e.Report(ctx, event.New(event.SetUserIDName, map[string]any{ParamUserID: userID}), true)
}

// SetUserEmail persists the email and reports the identity event.
func (e *Engine) SetUserEmail(ctx context.Context, email string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}
	if err := e.settings.SetString(storage.KeyUserEmail, email); err != nil {
		return fmt.Errorf("persist user email: %w", err)
	}
	return e.Report(ctx, event.New(event.SetEmailName, map[string]any{ParamEmail: email}), true)
}

// Close stops the send queue. Armed failure flags survive in the ledger.
func (e *Engine) Close() error {
	return e.queue.close()
}
