// Package reconciler resolves publish transactions that failed on chain.
//
// A pass looks at every organization, service and member in PUBLISH_IN_PROGRESS
// and asks the chain for the receipt of its transaction. Only failed receipts are
// acted on: success is left to the event consumer, which confirms the published
// metadata before flipping the row, and a missing receipt is retried next pass.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/chain"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"github.com/singnet/snet-marketplace-service-sub000/internal/repository"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
)

type Reconciler struct {
	db       *repository.Database
	receipts chain.ReceiptClient
	logger   *slog.Logger
}

func New(db *repository.Database, receipts chain.ReceiptClient, logger *slog.Logger) *Reconciler {
	return &Reconciler{db: db, receipts: receipts, logger: logger}
}

// Report summarizes one pass. Errors holds per-entity failures; they never abort
// the pass.
type Report struct {
	Checked   int
	Failed    int
	Pending   int
	Succeeded int
	Errors    []error
}

// inFlight is one entity waiting on its publish transaction.
type inFlight struct {
	kind   lifecycle.Kind
	key    any
	txHash string
}

func (f inFlight) String() string {
	return fmt.Sprintf("%s %v", f.kind, f.key)
}

// Run performs one reconciliation pass.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	entities, err := r.inFlight(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		receipt, err := r.receipts.TransactionReceipt(ctx, e.txHash)
		switch {
		case errors.Is(err, chain.ErrReceiptNotFound):
			report.Pending++
			continue
		case err != nil:
			r.logger.Warn("receipt lookup failed", "entity", e.String(), "tx_hash", e.txHash, "error", err)
			report.Errors = append(report.Errors, fmt.Errorf("%s: %w", e, err))
			continue
		case !receipt.Failed():
			report.Succeeded++
			continue
		}

		failed, err := r.markFailed(ctx, e)
		if err != nil {
			r.logger.Error("failed to mark transaction failed", "entity", e.String(), "tx_hash", e.txHash, "error", err)
			report.Errors = append(report.Errors, fmt.Errorf("%s: %w", e, err))
			continue
		}
		if failed {
			report.Failed++
			r.logger.Info("publish transaction failed on chain",
				"entity", e.String(),
				"tx_hash", e.txHash,
				"block", receipt.BlockNumber,
			)
		}
	}

	r.logger.Info("reconciliation pass complete",
		"checked", report.Checked,
		"failed", report.Failed,
		"pending", report.Pending,
		"succeeded", report.Succeeded,
		"errors", len(report.Errors),
	)
	return report, nil
}

func (r *Reconciler) inFlight(ctx context.Context) ([]inFlight, error) {
	var out []inFlight
	err := r.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		orgs, err := uow.Organizations.ListByStatus(ctx, lifecycle.StatusPublishInProgress)
		if err != nil {
			return err
		}
		for i := range orgs {
			out = appendInFlight(out, lifecycle.KindOrganization, orgs[i].UUID, orgs[i].TransactionHash)
		}

		services, err := uow.Services.ListByStatus(ctx, lifecycle.StatusPublishInProgress)
		if err != nil {
			return err
		}
		for i := range services {
			out = appendInFlight(out, lifecycle.KindService, services[i].UUID, services[i].TransactionHash)
		}

		members, err := uow.Members.ListByStatus(ctx, lifecycle.StatusPublishInProgress)
		if err != nil {
			return err
		}
		for i := range members {
			out = appendInFlight(out, lifecycle.KindMember, members[i].InviteCode, members[i].TransactionHash)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing in-flight transactions: %w", err)
	}
	return out, nil
}

func appendInFlight(out []inFlight, kind lifecycle.Kind, key any, txHash *string) []inFlight {
	if txHash == nil {
		return out
	}
	return append(out, inFlight{kind: kind, key: key, txHash: *txHash})
}

// markFailed moves the entity out of PUBLISH_IN_PROGRESS unless it has moved on
// since it was listed.
func (r *Reconciler) markFailed(ctx context.Context, e inFlight) (bool, error) {
	var failed bool
	err := r.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		switch e.kind {
		case lifecycle.KindOrganization:
			failed, err = failTransaction(ctx, uow.Organizations.Store, e.key, &e.txHash)
		case lifecycle.KindService:
			failed, err = failTransaction(ctx, uow.Services.Store, e.key, &e.txHash)
		case lifecycle.KindMember:
			failed, err = failTransaction(ctx, uow.Members.Store, e.key, &e.txHash)
		default:
			err = fmt.Errorf("unknown entity kind %q", e.kind)
		}
		return err
	})
	return failed, err
}

// FailTransaction lets an operator give up on a transaction that never produced a
// receipt. key is the uuid of an organization or service, or a member invite code.
func (r *Reconciler) FailTransaction(ctx context.Context, kind lifecycle.Kind, key string) error {
	return r.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		switch kind {
		case lifecycle.KindOrganization, lifecycle.KindService:
			id, perr := uuid.Parse(key)
			if perr != nil {
				return apperr.Validation("fail transaction", "invalid uuid %q", key)
			}
			if kind == lifecycle.KindOrganization {
				_, err = failTransaction(ctx, uow.Organizations.Store, id, nil)
			} else {
				_, err = failTransaction(ctx, uow.Services.Store, id, nil)
			}
		case lifecycle.KindMember:
			_, err = failTransaction(ctx, uow.Members.Store, key, nil)
		default:
			return apperr.Validation("fail transaction", "unknown entity kind %q", kind)
		}
		return err
	})
}

// failTransaction applies TRANSACTION_FAILED to the row at key. With a non-nil
// txHash the row is only touched while it still waits on that transaction.
func failTransaction[T any, PT interface {
	*T
	repository.Record
}](ctx context.Context, s *repository.Store[T, PT], key any, txHash *string) (bool, error) {
	row, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if txHash != nil {
		current := row.CurrentTransactionHash()
		if row.CurrentStatus() != lifecycle.StatusPublishInProgress || current == nil || *current != *txHash {
			return false, nil
		}
	}
	if err := s.Apply(ctx, row, repository.Change[PT]{Action: lifecycle.ActionTransactionFailed}); err != nil {
		return false, err
	}
	return true, nil
}
