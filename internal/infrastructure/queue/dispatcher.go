package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/api/metrics"
	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher decouples notification delivery from the mutating request.
// Events are routed to a fixed set of workers by consistent hashing on the
// task id, which keeps per-task ordering. Notify never blocks: when a
// worker's buffer is full the event is dropped.
type Dispatcher struct {
	workers     []chan domain.NotificationEvent
	broadcaster ports.Broadcaster
	log         zerolog.Logger
	wg          sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used; buffer <= 0 uses channelBuffer.
func NewDispatcher(numWorkers, buffer int, broadcaster ports.Broadcaster, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if buffer <= 0 {
		buffer = channelBuffer
	}
	d := &Dispatcher{
		workers:     make([]chan domain.NotificationEvent, numWorkers),
		broadcaster: broadcaster,
		log:         log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.NotificationEvent, buffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Notify enqueues event for the worker responsible for its task id.
func (d *Dispatcher) Notify(event domain.NotificationEvent) {
	idx := d.shardIndex(event.TaskID)
	select {
	case d.workers[idx] <- event:
		metrics.NotificationsPublishedTotal.WithLabelValues(string(event.Kind)).Inc()
		metrics.NotificationsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.NotificationsDroppedTotal.WithLabelValues("queue").Inc()
		d.log.Warn().
			Str("task_id", event.TaskID).
			Str("event", string(event.Kind)).
			Int("worker_id", idx).
			Msg("notification queue full, event dropped")
	}
}

// shardIndex maps a task id deterministically to a worker index.
func (d *Dispatcher) shardIndex(taskID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(taskID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.NotificationEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			metrics.NotificationsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.broadcaster.Broadcast(ctx, event); err != nil {
				metrics.NotificationsDroppedTotal.WithLabelValues("broadcast").Inc()
				d.log.Error().Err(err).
					Str("task_id", event.TaskID).
					Int("worker_id", id).
					Msg("notification broadcast failed")
			}
		}
	}
}
