// Package repository persists organizations, services and members with the
// archive-then-mutate discipline: every status change copies the live row into its
// history table before the live row is rewritten, inside the caller's unit of work.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
	"gorm.io/gorm"
)

// ErrNotFound is wrapped by every lookup that matches no live row.
var ErrNotFound = errors.New("record not found")

// Record is a live row governed by a lifecycle policy.
type Record interface {
	KeyColumn() string
	KeyValue() any
	CurrentStatus() lifecycle.Status
	CurrentTransactionHash() *string
	SetState(status lifecycle.Status, txHash *string)
	// Archive returns the history row that preserves the current values.
	Archive(at time.Time) any
}

// Change describes one status-changing write.
type Change[PT any] struct {
	Action lifecycle.Action
	// TxHash is required when the action enters PUBLISH_IN_PROGRESS and ignored
	// otherwise.
	TxHash *string
	// Onboarding is consulted for organizations only; nil means no fast path.
	Onboarding *lifecycle.OnboardingContext
	// Mutate applies field edits to the reloaded row before the new status is set.
	Mutate func(PT)
}

// Store is the generic persistence for one entity kind. It is bound to a
// transaction and never outlives the unit of work that created it.
type Store[T any, PT interface {
	*T
	Record
}] struct {
	tx     *gorm.DB
	policy *lifecycle.Policy
	now    func() time.Time
}

func newStore[T any, PT interface {
	*T
	Record
}](tx *gorm.DB, policy *lifecycle.Policy, now func() time.Time) *Store[T, PT] {
	return &Store[T, PT]{tx: tx, policy: policy, now: now}
}

// Policy returns the lifecycle policy the store enforces.
func (s *Store[T, PT]) Policy() *lifecycle.Policy {
	return s.policy
}

func (s *Store[T, PT]) keyColumn() string {
	var zero T
	return PT(&zero).KeyColumn()
}

func (s *Store[T, PT]) notFound(key any) error {
	return &apperr.Error{
		Kind:    apperr.KindNotFound,
		Op:      fmt.Sprintf("get %s", s.policy.Kind()),
		Message: fmt.Sprintf("%v", key),
		Err:     ErrNotFound,
	}
}

// Get loads the live row by its key.
func (s *Store[T, PT]) Get(ctx context.Context, key any) (PT, error) {
	return s.first(ctx, key, s.keyColumn()+" = ?", key)
}

func (s *Store[T, PT]) first(ctx context.Context, key any, query string, args ...any) (PT, error) {
	var row T
	err := s.tx.WithContext(ctx).Where(query, args...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, s.notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.policy.Kind(), err)
	}
	return PT(&row), nil
}

func (s *Store[T, PT]) find(ctx context.Context, query string, args ...any) ([]T, error) {
	var rows []T
	err := s.tx.WithContext(ctx).Where(query, args...).Order("created_at").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.policy.Kind(), err)
	}
	return rows, nil
}

// ListByStatus returns every live row currently in status.
func (s *Store[T, PT]) ListByStatus(ctx context.Context, status lifecycle.Status) ([]T, error) {
	return s.find(ctx, "status = ?", status)
}

// Create persists a new row in the successor of action from the empty status.
func (s *Store[T, PT]) Create(ctx context.Context, row PT, action lifecycle.Action, txHash *string) error {
	next, err := s.policy.NextState(lifecycle.StatusNone, action)
	if err != nil {
		return err
	}
	hash, err := s.transactionHash(next, txHash)
	if err != nil {
		return err
	}
	row.SetState(next, hash)

	if err := s.tx.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("creating %s: %w", s.policy.Kind(), err)
	}
	return nil
}

// Transition reloads the row, asks the policy for the successor of the change's
// action, archives the current values, applies the mutation and writes the row.
func (s *Store[T, PT]) Transition(ctx context.Context, key any, ch Change[PT]) (PT, error) {
	row, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, row, ch); err != nil {
		return nil, err
	}
	return row, nil
}

// Apply is Transition for a row the caller already loaded in this unit of work.
func (s *Store[T, PT]) Apply(ctx context.Context, row PT, ch Change[PT]) error {
	return s.apply(ctx, row, ch)
}

func (s *Store[T, PT]) apply(ctx context.Context, row PT, ch Change[PT]) error {
	var (
		next lifecycle.Status
		err  error
	)
	if ch.Onboarding != nil {
		next, err = s.policy.Decide(row.CurrentStatus(), ch.Action, *ch.Onboarding)
	} else {
		next, err = s.policy.NextState(row.CurrentStatus(), ch.Action)
	}
	if err != nil {
		return err
	}

	hash, err := s.transactionHash(next, ch.TxHash)
	if err != nil {
		return err
	}

	db := s.tx.WithContext(ctx)
	if err := db.Create(row.Archive(s.now())).Error; err != nil {
		return fmt.Errorf("archiving %s: %w", s.policy.Kind(), err)
	}

	if ch.Mutate != nil {
		ch.Mutate(row)
	}
	row.SetState(next, hash)

	if err := db.Save(row).Error; err != nil {
		return fmt.Errorf("saving %s: %w", s.policy.Kind(), err)
	}
	return nil
}

// Amend writes field edits that leave the status untouched, such as the metadata
// URI produced by publishing to storage. No history row is written.
func (s *Store[T, PT]) Amend(ctx context.Context, key any, mutate func(PT)) (PT, error) {
	row, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	status, hash := row.CurrentStatus(), row.CurrentTransactionHash()
	mutate(row)
	row.SetState(status, hash)

	if err := s.tx.WithContext(ctx).Save(row).Error; err != nil {
		return nil, fmt.Errorf("saving %s: %w", s.policy.Kind(), err)
	}
	return row, nil
}

func (s *Store[T, PT]) transactionHash(next lifecycle.Status, txHash *string) (*string, error) {
	if !next.InProgress() {
		return nil, nil
	}
	if txHash == nil || *txHash == "" {
		return nil, apperr.Validation(fmt.Sprintf("%s %s", s.policy.Kind(), next), "transaction hash is required")
	}
	h := *txHash
	return &h, nil
}
