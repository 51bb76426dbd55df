package lifecycle

import (
	"testing"

	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allActions = []Action{
	ActionCreate, ActionSaveDraft, ActionSubmit, ActionOnboard, ActionApprove, ActionReject,
	ActionRequestChanges, ActionPublish, ActionTransactionFailed, ActionConfirmPublish,
	ActionSyncFromChain, ActionInvite, ActionAccept,
}

var policies = []*Policy{Organization, Service, Member}

func TestNextState_DeclaredTransitions(t *testing.T) {
	for _, p := range policies {
		for _, tr := range p.Transitions() {
			got, err := p.NextState(tr.From, tr.Action)
			require.NoError(t, err, "%s %s/%s", p.Kind(), tr.From, tr.Action)
			assert.Equal(t, tr.To, got, "%s %s/%s", p.Kind(), tr.From, tr.Action)
		}
	}
}

func TestNextState_UndeclaredPairsAreRejected(t *testing.T) {
	for _, p := range policies {
		declared := make(map[Transition]bool)
		for _, tr := range p.Transitions() {
			declared[Transition{From: tr.From, Action: tr.Action}] = true
		}

		froms := append([]Status{StatusNone}, p.Statuses()...)
		for _, from := range froms {
			for _, action := range allActions {
				if declared[Transition{From: from, Action: action}] {
					continue
				}
				got, err := p.NextState(from, action)
				require.Error(t, err, "%s %s/%s should be rejected", p.Kind(), from, action)
				assert.ErrorIs(t, err, ErrOperationNotAllowed)
				assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))
				assert.Equal(t, StatusNone, got)
			}
		}
	}
}

func TestNextState_SuccessorsAreEnumerated(t *testing.T) {
	for _, p := range policies {
		for _, tr := range p.Transitions() {
			assert.True(t, p.Valid(tr.To), "%s successor %q", p.Kind(), tr.To)
		}
	}
}

func TestOrganization_PublishCycle(t *testing.T) {
	steps := []struct {
		action Action
		want   Status
	}{
		{ActionCreate, StatusDraft},
		{ActionSubmit, StatusApprovalPending},
		{ActionApprove, StatusApproved},
		{ActionPublish, StatusPublishInProgress},
		{ActionConfirmPublish, StatusPublished},
		{ActionSaveDraft, StatusDraft},
	}

	current := StatusNone
	for _, step := range steps {
		next, err := Organization.NextState(current, step.action)
		require.NoError(t, err, "%s/%s", current, step.action)
		assert.Equal(t, step.want, next)
		current = next
	}
}

func TestOrganization_ResubmitPublishedIsNotAllowed(t *testing.T) {
	_, err := Organization.NextState(StatusPublished, ActionSubmit)
	assert.ErrorIs(t, err, ErrOperationNotAllowed)
}

func TestOrganization_FailedResubmitsThroughDraft(t *testing.T) {
	_, err := Organization.NextState(StatusFailed, ActionSubmit)
	require.ErrorIs(t, err, ErrOperationNotAllowed)

	draft, err := Organization.NextState(StatusFailed, ActionSaveDraft)
	require.NoError(t, err)
	pending, err := Organization.NextState(draft, ActionSubmit)
	require.NoError(t, err)
	assert.Equal(t, StatusApprovalPending, pending)
}

func TestChainSync_LandsOnPublishedUnapproved(t *testing.T) {
	for _, p := range []*Policy{Organization, Service} {
		got, err := p.NextState(StatusNone, ActionSyncFromChain)
		require.NoError(t, err)
		assert.Equal(t, StatusPublishedUnapproved, got)

		got, err = p.NextState(StatusDraft, ActionSyncFromChain)
		require.NoError(t, err)
		assert.Equal(t, StatusPublishedUnapproved, got)
	}
}

func TestService_HasNoOnboarding(t *testing.T) {
	assert.False(t, Service.Valid(StatusOnboarding))
	_, err := Service.NextState(StatusDraft, ActionOnboard)
	assert.ErrorIs(t, err, ErrOperationNotAllowed)
}

func TestMember_Lifecycle(t *testing.T) {
	s, err := Member.NextState(StatusNone, ActionInvite)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s)

	s, err = Member.NextState(s, ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, s)

	s, err = Member.NextState(s, ActionPublish)
	require.NoError(t, err)
	assert.Equal(t, StatusPublishInProgress, s)

	reverted, err := Member.NextState(s, ActionTransactionFailed)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, reverted)

	s, err = Member.NextState(s, ActionConfirmPublish)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, s)

	_, err = Member.NextState(StatusPending, ActionPublish)
	assert.ErrorIs(t, err, ErrOperationNotAllowed)
}

func TestDecide_OnboardingFastPath(t *testing.T) {
	firstTimer := OnboardingContext{HasPublishedOrganization: false, LatestSubmission: StatusApproved}

	for _, current := range []Status{StatusDraft, StatusApproved, StatusOnboardingApproved} {
		for _, action := range []Action{ActionSaveDraft, ActionSubmit} {
			got, err := Organization.Decide(current, action, firstTimer)
			require.NoError(t, err, "%s/%s", current, action)
			assert.Equal(t, StatusApproved, got, "%s/%s", current, action)
			assert.NotEqual(t, StatusApprovalPending, got)
		}
	}
}

func TestDecide_OnboardingApprovedCountsAsApproved(t *testing.T) {
	oc := OnboardingContext{LatestSubmission: StatusOnboardingApproved}

	got, err := Organization.Decide(StatusOnboardingApproved, ActionSubmit, oc)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got)
}

func TestDecide_FallsBackToTable(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		action  Action
		oc      OnboardingContext
		want    Status
	}{
		{"already_published_publisher", StatusDraft, ActionSubmit,
			OnboardingContext{HasPublishedOrganization: true, LatestSubmission: StatusApproved}, StatusApprovalPending},
		{"latest_not_approved", StatusDraft, ActionSubmit,
			OnboardingContext{LatestSubmission: StatusRejected}, StatusApprovalPending},
		{"no_submission_yet", StatusDraft, ActionSubmit,
			OnboardingContext{}, StatusApprovalPending},
		{"other_action", StatusApproved, ActionPublish,
			OnboardingContext{LatestSubmission: StatusApproved}, StatusPublishInProgress},
		{"in_progress_not_eligible", StatusChangeRequested, ActionSubmit,
			OnboardingContext{LatestSubmission: StatusApproved}, StatusApprovalPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Organization.Decide(tt.current, tt.action, tt.oc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecide_ServiceIgnoresFastPath(t *testing.T) {
	got, err := Service.Decide(StatusDraft, ActionSubmit, OnboardingContext{LatestSubmission: StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, StatusApprovalPending, got)
}

func TestDecide_StillRejectsUndeclared(t *testing.T) {
	_, err := Organization.Decide(StatusPublishInProgress, ActionSubmit, OnboardingContext{LatestSubmission: StatusApproved})
	assert.ErrorIs(t, err, ErrOperationNotAllowed)
}

func TestStatus_InProgress(t *testing.T) {
	assert.True(t, StatusPublishInProgress.InProgress())
	assert.False(t, StatusPublished.InProgress())
	assert.False(t, StatusNone.InProgress())
}
