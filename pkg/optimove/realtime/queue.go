package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/optimove/optimove-go/pkg/optimove/observability"
)

// sendTopic is the single queue topic; one subscriber keeps delivery serial.
const sendTopic = "realtime.send"

// sendJob is the queued unit of work.
type sendJob struct {
	Category Category  `json:"category"`
	Event    WireEvent `json:"event"`
}

// sendQueue serializes transport sends. Events are published in call order
// and consumed one at a time, so wire order matches enqueue order. Each send
// updates the failure ledger for its category.
type sendQueue struct {
	pubsub    *gochannel.GoChannel
	transport Transport
	ledger    *FailureLedger
	logger    *slog.Logger
	metrics   observability.MetricsRecorder

	// delay is the pause applied before each send.
	delay time.Duration

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// newSendQueue creates the queue and starts its consumer. The subscription
// is opened before any publish so no job is ever dropped.
func newSendQueue(transport Transport, ledger *FailureLedger, logger *slog.Logger, metrics observability.MetricsRecorder, delay time.Duration, buffer int) (*sendQueue, error) {
	var wmLogger watermill.LoggerAdapter = watermill.NopLogger{}
	if logger != nil {
		wmLogger = watermill.NewSlogLogger(logger)
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(buffer),
	}, wmLogger)

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := pubsub.Subscribe(ctx, sendTopic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe send queue: %w", err)
	}

	q := &sendQueue{
		pubsub:    pubsub,
		transport: transport,
		ledger:    ledger,
		logger:    logger,
		metrics:   metrics,
		delay:     delay,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go q.consume(ctx, messages)
	return q, nil
}

// enqueue appends one job to the queue.
func (q *sendQueue) enqueue(job sendJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode send job: %w", err)
	}
	if err := q.pubsub.Publish(sendTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		return fmt.Errorf("enqueue send job: %w", err)
	}
	return nil
}

// consume processes jobs one at a time in publish order.
func (q *sendQueue) consume(ctx context.Context, messages <-chan *message.Message) {
	defer close(q.done)

	for msg := range messages {
		var job sendJob
		if err := json.Unmarshal(msg.Payload, &job); err != nil {
			if q.logger != nil {
				q.logger.Error("malformed send job dropped",
					slog.String("message_id", msg.UUID),
					slog.String("error", err.Error()),
				)
			}
			msg.Ack()
			continue
		}

		if q.delay > 0 {
			select {
			case <-time.After(q.delay):
			case <-ctx.Done():
				msg.Ack()
				return
			}
		}

		start := time.Now()
		sendErr := q.transport.Send(ctx, job.Event)
		q.metrics.RecordSend(ctx, string(job.Category), time.Since(start), sendErr)

		if err := q.ledger.Record(job.Category, sendErr); err != nil && q.logger != nil {
			q.logger.Error("failure ledger update failed",
				slog.String("category", string(job.Category)),
				slog.String("error", err.Error()),
			)
		}
		if sendErr != nil {
			observability.LogSendError(q.logger, job.Event.Name, string(job.Category), sendErr)
		}

		msg.Ack()
	}
}

// close stops the consumer and releases the queue. Pending jobs are dropped;
// their failure flags, if armed, survive in the ledger.
func (q *sendQueue) close() error {
	var err error
	q.closeOnce.Do(func() {
		q.cancel()
		err = q.pubsub.Close()
		<-q.done
	})
	return err
}
