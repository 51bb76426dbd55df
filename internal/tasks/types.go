package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/singnet/snet-marketplace-service-sub000/internal/notify"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/queue"
)

// Task type names
const (
	TypeReconcile  = "publisher:reconcile"
	TypeChainEvent = "chain:event"
	TypeNotify     = "notify:send"
)

// NewReconcileTask runs one reconciliation pass. The scheduler enqueues it on the
// reconciler cron.
func NewReconcileTask() *asynq.Task {
	return asynq.NewTask(TypeReconcile, nil)
}

// NewChainEventTask carries one registry event exactly as the chain listener
// delivered it; it is decoded by the handler.
func NewChainEventTask(raw []byte) *asynq.Task {
	return asynq.NewTask(TypeChainEvent, raw)
}

func NewNotifyTask(m notify.Message) (*asynq.Task, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotify, data), nil
}

// Enqueuer is a notify.Sender that hands messages to the worker instead of
// delivering them inline.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) Send(ctx context.Context, m notify.Message) error {
	task, err := NewNotifyTask(m)
	if err != nil {
		return fmt.Errorf("creating notify task: %w", err)
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(queue.QueueLow), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueueing notification: %w", err)
	}
	return nil
}
