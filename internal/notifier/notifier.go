package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/queue"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/worker"
)

const deliveryTimeout = 5 * time.Second

// Sender delivers one notification to its channel. Senders must be
// safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, event *model.Event) error
	Name() string
}

// Dispatcher consumes the settlement event stream and fans deliveries
// out over a worker pool. Each event is delivered at most once per
// the idempotency markers.
type Dispatcher struct {
	queue       *queue.Queue
	idempotency *Idempotency
	senders     []Sender
	pool        *worker.Pool
	wg          sync.WaitGroup
}

func NewDispatcher(q *queue.Queue, idempotency *Idempotency, workers int, senders ...Sender) *Dispatcher {
	if workers <= 0 {
		workers = 32
	}
	return &Dispatcher{
		queue:       q,
		idempotency: idempotency,
		senders:     senders,
		pool:        worker.NewPool(10_000, workers, nil),
	}
}

func (d *Dispatcher) Start() error {
	if len(d.senders) == 0 {
		return errors.New("no senders registered")
	}

	d.pool.SetWorker(d.deliver)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.pool.Start(); err != nil {
			logger.Info("dispatcher workers stopped", "reason", err)
		}
	}()

	return d.queue.Consume(func(msg *queue.Message) error {
		d.pool.Enqueue(msg)
		return nil
	})
}

func (d *Dispatcher) Stop() {
	d.queue.Close()
	d.pool.Exit()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(_ int, job interface{}) {
	msg, ok := job.(*queue.Message)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	var event model.Event
	if err := msg.Unmarshal(&event); err != nil {
		logger.Error("undecodable event dropped", "message_id", msg.ID, "error", err)
		return
	}

	dv, err := d.idempotency.Acquire(ctx, msg.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyDelivered):
		case errors.Is(err, ErrLockHeld):
		case errors.Is(err, ErrDeliveryExhausted):
			logger.Error("notification dropped after retries",
				"message_id", msg.ID, "type", event.Type)
		default:
			logger.Error("delivery lock error", "message_id", msg.ID, "error", err)
		}
		return
	}

	for _, sender := range d.senders {
		if err := sender.Send(ctx, &event); err != nil {
			dv.Failed(err)
			return
		}
	}
	dv.Done()
}

// LogSender writes notifications to the structured log. Stands in
// where no external channel is configured.
type LogSender struct{}

func (LogSender) Name() string { return "log" }

func (LogSender) Send(_ context.Context, event *model.Event) error {
	logger.Info("notification",
		"type", event.Type,
		"user_id", event.UserID,
		"transaction_id", event.TransactionID,
		"payout_id", event.PayoutID,
		"amount", event.Amount)
	return nil
}
