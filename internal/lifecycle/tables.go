package lifecycle

// chainSync lists the transitions that adopt on-chain state for entities changed
// outside the portal (CLI, direct contract calls).
func chainSync(to Status, from ...Status) []Transition {
	out := make([]Transition, 0, len(from))
	for _, s := range from {
		out = append(out, Transition{s, ActionSyncFromChain, to})
	}
	return out
}

var serviceStatuses = []Status{
	StatusDraft,
	StatusApprovalPending,
	StatusApproved,
	StatusPublishInProgress,
	StatusPublished,
	StatusPublishedUnapproved,
	StatusChangeRequested,
	StatusRejected,
	StatusFailed,
}

var organizationStatuses = append([]Status{StatusOnboarding, StatusOnboardingApproved}, serviceStatuses...)

var reviewTransitions = []Transition{
	{StatusNone, ActionCreate, StatusDraft},

	{StatusDraft, ActionSaveDraft, StatusDraft},
	{StatusDraft, ActionSubmit, StatusApprovalPending},

	{StatusApprovalPending, ActionSaveDraft, StatusDraft},
	{StatusApprovalPending, ActionApprove, StatusApproved},
	{StatusApprovalPending, ActionReject, StatusRejected},
	{StatusApprovalPending, ActionRequestChanges, StatusChangeRequested},

	{StatusChangeRequested, ActionSaveDraft, StatusDraft},
	{StatusChangeRequested, ActionSubmit, StatusApprovalPending},

	{StatusRejected, ActionSaveDraft, StatusDraft},

	{StatusApproved, ActionSaveDraft, StatusDraft},
	{StatusApproved, ActionPublish, StatusPublishInProgress},

	{StatusPublishInProgress, ActionTransactionFailed, StatusFailed},
	{StatusPublishInProgress, ActionConfirmPublish, StatusPublished},

	{StatusPublished, ActionSaveDraft, StatusDraft},
	{StatusPublishedUnapproved, ActionSaveDraft, StatusDraft},

	{StatusFailed, ActionSaveDraft, StatusDraft},
}

var onboardingTransitions = []Transition{
	{StatusDraft, ActionOnboard, StatusOnboarding},
	{StatusChangeRequested, ActionOnboard, StatusOnboarding},

	{StatusOnboarding, ActionSaveDraft, StatusOnboarding},
	{StatusOnboarding, ActionApprove, StatusOnboardingApproved},
	{StatusOnboarding, ActionReject, StatusRejected},
	{StatusOnboarding, ActionRequestChanges, StatusChangeRequested},

	{StatusOnboardingApproved, ActionSaveDraft, StatusDraft},
	{StatusOnboardingApproved, ActionSubmit, StatusApprovalPending},
}

func concat(parts ...[]Transition) []Transition {
	var out []Transition
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Organization governs organizations, including the onboarding pair.
var Organization = newPolicy(KindOrganization, organizationStatuses, concat(
	reviewTransitions,
	onboardingTransitions,
	chainSync(StatusPublishedUnapproved,
		StatusNone, StatusDraft, StatusApprovalPending, StatusApproved, StatusPublishInProgress,
		StatusPublished, StatusPublishedUnapproved, StatusChangeRequested, StatusRejected, StatusFailed,
		StatusOnboarding, StatusOnboardingApproved,
	),
))

// Service governs services.
var Service = newPolicy(KindService, serviceStatuses, concat(
	reviewTransitions,
	chainSync(StatusPublishedUnapproved,
		StatusNone, StatusDraft, StatusApprovalPending, StatusApproved, StatusPublishInProgress,
		StatusPublished, StatusPublishedUnapproved, StatusChangeRequested, StatusRejected, StatusFailed,
	),
))

// Member governs organization membership. The owner is created ACCEPTED, or
// PUBLISHED when the organization is first seen on chain, and never passes PENDING.
var Member = newPolicy(KindMember,
	[]Status{StatusPending, StatusAccepted, StatusPublishInProgress, StatusPublished},
	[]Transition{
		{StatusNone, ActionInvite, StatusPending},
		{StatusNone, ActionCreate, StatusAccepted},
		{StatusNone, ActionSyncFromChain, StatusPublished},

		{StatusPending, ActionAccept, StatusAccepted},

		{StatusAccepted, ActionPublish, StatusPublishInProgress},
		{StatusAccepted, ActionConfirmPublish, StatusPublished},

		{StatusPublishInProgress, ActionConfirmPublish, StatusPublished},
		{StatusPublishInProgress, ActionTransactionFailed, StatusAccepted},
	},
)
