package events

import (
	"context"
	"encoding/json"

	"github.com/campusdesk/cd-backend/internal/logging"
	"github.com/campusdesk/cd-backend/internal/queue"
)

// QueuePublisher ships events through the asynq task queue so the worker
// process fans them out to notifications. Enqueue failures are logged and
// dropped; a missed notification never fails the mutation that caused it.
type QueuePublisher struct {
	queue *queue.TaskQueue
}

func NewQueuePublisher(q *queue.TaskQueue) *QueuePublisher {
	return &QueuePublisher{queue: q}
}

func (p *QueuePublisher) Publish(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.Error("failed to marshal event", "type", event.EventType(), "error", err)
		return
	}

	_, err = p.queue.Enqueue(queue.TypeDomainEvent, queue.EventEnvelope{
		Type: event.EventType(),
		Data: data,
	})
	if err != nil {
		logging.Error("failed to enqueue event", "type", event.EventType(), "error", err)
	}
}
