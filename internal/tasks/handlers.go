package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/singnet/snet-marketplace-service-sub000/internal/chain"
	"github.com/singnet/snet-marketplace-service-sub000/internal/notify"
	"github.com/singnet/snet-marketplace-service-sub000/internal/publisher"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
)

type Handler struct {
	publisher *publisher.Service
	sender    notify.Sender
	logger    *slog.Logger
}

// NewHandler wires the task handlers. sender delivers notifications; it must not
// be an Enqueuer or messages would loop back onto the queue.
func NewHandler(p *publisher.Service, sender notify.Sender, logger *slog.Logger) *Handler {
	return &Handler{
		publisher: p,
		sender:    sender,
		logger:    logger,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeReconcile, h.HandleReconcile)
	mux.HandleFunc(TypeChainEvent, h.HandleChainEvent)
	mux.HandleFunc(TypeNotify, h.HandleNotify)
}

// HandleReconcile runs one pass. Failures on individual entities are logged and
// picked up again by the next scheduled pass, so they do not fail the task.
func (h *Handler) HandleReconcile(ctx context.Context, t *asynq.Task) error {
	report, err := h.publisher.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	h.logger.Info("reconciliation pass completed",
		"checked", report.Checked,
		"failed", report.Failed,
		"pending", report.Pending,
		"succeeded", report.Succeeded,
		"errors", len(report.Errors),
	)
	return nil
}

func (h *Handler) HandleChainEvent(ctx context.Context, t *asynq.Task) error {
	ev, err := chain.DecodeEvent(t.Payload())
	if err != nil {
		return fmt.Errorf("decode event: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With("event", ev.Name, "org_id", ev.OrgID, "tx_hash", ev.TransactionHash)
	if ev.IsServiceEvent() {
		log = log.With("service_id", ev.ServiceID)
		_, err = h.publisher.ApplyServiceEvent(ctx, ev)
	} else {
		_, err = h.publisher.ApplyOrganizationEvent(ctx, ev)
	}
	if err == nil {
		return nil
	}

	// A malformed metadata document will not get better on retry. Everything
	// else, including a service whose organization has not been seen yet, does.
	if apperr.Is(err, apperr.KindValidation) {
		log.Error("dropping chain event", "error", err)
		return fmt.Errorf("apply event: %v: %w", err, asynq.SkipRetry)
	}
	log.Warn("chain event will be retried", "error", err)
	return fmt.Errorf("apply event: %w", err)
}

func (h *Handler) HandleNotify(ctx context.Context, t *asynq.Task) error {
	var m notify.Message
	if err := json.Unmarshal(t.Payload(), &m); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if m.Text == "" {
		return fmt.Errorf("empty notification: %w", asynq.SkipRetry)
	}

	if err := h.sender.Send(ctx, m); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	h.logger.Debug("notification delivered", "event", m.Event, "recipient", m.Recipient)
	return nil
}

// IsSkipRetry reports whether err tells asynq not to retry the task.
func IsSkipRetry(err error) bool {
	return errors.Is(err, asynq.SkipRetry)
}
