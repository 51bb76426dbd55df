package lifecycle

import (
	"errors"
	"fmt"
	"sort"

	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
)

// ErrOperationNotAllowed is returned for an action the current status does not permit.
var ErrOperationNotAllowed = errors.New("operation not allowed")

// Transition is one row of a declared table.
type Transition struct {
	From   Status
	Action Action
	To     Status
}

// Policy is the transition table of one entity kind.
type Policy struct {
	kind        Kind
	statuses    map[Status]struct{}
	table       map[Status]map[Action]Status
	transitions []Transition
}

func newPolicy(kind Kind, statuses []Status, transitions []Transition) *Policy {
	p := &Policy{
		kind:        kind,
		statuses:    make(map[Status]struct{}, len(statuses)),
		table:       make(map[Status]map[Action]Status),
		transitions: transitions,
	}
	for _, s := range statuses {
		p.statuses[s] = struct{}{}
	}
	for _, t := range transitions {
		if t.From != StatusNone && !p.Valid(t.From) {
			panic(fmt.Sprintf("lifecycle: %s table uses unknown status %q", kind, t.From))
		}
		if !p.Valid(t.To) {
			panic(fmt.Sprintf("lifecycle: %s table uses unknown status %q", kind, t.To))
		}
		row, ok := p.table[t.From]
		if !ok {
			row = make(map[Action]Status)
			p.table[t.From] = row
		}
		if _, dup := row[t.Action]; dup {
			panic(fmt.Sprintf("lifecycle: %s table declares %s/%s twice", kind, t.From, t.Action))
		}
		row[t.Action] = t.To
	}
	return p
}

// Kind returns the entity kind this policy governs.
func (p *Policy) Kind() Kind {
	return p.kind
}

// Valid reports whether s is one of the kind's enumerated statuses.
func (p *Policy) Valid(s Status) bool {
	_, ok := p.statuses[s]
	return ok
}

// Statuses returns the enumerated statuses in a stable order.
func (p *Policy) Statuses() []Status {
	out := make([]Status, 0, len(p.statuses))
	for s := range p.statuses {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Transitions returns a copy of the declared table.
func (p *Policy) Transitions() []Transition {
	return append([]Transition(nil), p.transitions...)
}

// Permits reports whether action is declared for current.
func (p *Policy) Permits(current Status, action Action) bool {
	_, ok := p.table[current][action]
	return ok
}

// NextState returns the declared successor of (current, action). Pairs that are not
// declared fail with ErrOperationNotAllowed, classified as a state conflict.
func (p *Policy) NextState(current Status, action Action) (Status, error) {
	next, ok := p.table[current][action]
	if !ok {
		return StatusNone, apperr.Conflict(
			fmt.Sprintf("%s %s", p.kind, action),
			fmt.Errorf("%w: %s cannot %s from %q", ErrOperationNotAllowed, p.kind, action, current),
		)
	}
	return next, nil
}

// OnboardingContext carries the publisher facts the onboarding fast path depends on.
type OnboardingContext struct {
	HasPublishedOrganization bool
	LatestSubmission         Status
}

// Decide is NextState plus the onboarding fast path: a publisher that has never
// published an organization and whose latest submission was approved lands on
// APPROVED for SAVE_DRAFT and SUBMIT, skipping APPROVAL_PENDING.
func (p *Policy) Decide(current Status, action Action, oc OnboardingContext) (Status, error) {
	if p.kind == KindOrganization && oc.fastPath(current, action) {
		return StatusApproved, nil
	}
	return p.NextState(current, action)
}

func (oc OnboardingContext) fastPath(current Status, action Action) bool {
	if action != ActionSaveDraft && action != ActionSubmit {
		return false
	}
	if oc.HasPublishedOrganization {
		return false
	}
	if oc.LatestSubmission != StatusApproved && oc.LatestSubmission != StatusOnboardingApproved {
		return false
	}
	switch current {
	case StatusDraft, StatusApproved, StatusOnboardingApproved:
		return true
	default:
		return false
	}
}

// IsReviewOutcome reports whether s is a status produced by submitting for review.
// The latest such status is the publisher's "latest submission".
func IsReviewOutcome(s Status) bool {
	switch s {
	case StatusApprovalPending, StatusApproved, StatusRejected, StatusChangeRequested,
		StatusOnboarding, StatusOnboardingApproved:
		return true
	default:
		return false
	}
}
