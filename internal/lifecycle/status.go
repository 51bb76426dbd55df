// Package lifecycle is the single place where publication statuses change.
//
// Each entity kind has a closed set of statuses and a declared transition table.
// Callers never assign a status directly: they name an Action and ask the kind's
// Policy for the successor.
package lifecycle

// Status is the publication status of an organization, service or member.
type Status string

const (
	// StatusNone is the pseudo status of an entity that has not been persisted yet.
	StatusNone Status = ""

	StatusDraft               Status = "DRAFT"
	StatusApprovalPending     Status = "APPROVAL_PENDING"
	StatusApproved            Status = "APPROVED"
	StatusPublishInProgress   Status = "PUBLISH_IN_PROGRESS"
	StatusPublished           Status = "PUBLISHED"
	StatusPublishedUnapproved Status = "PUBLISHED_UNAPPROVED"
	StatusRejected            Status = "REJECTED"
	StatusChangeRequested     Status = "CHANGE_REQUESTED"
	StatusFailed              Status = "FAILED"
	StatusOnboarding          Status = "ONBOARDING"
	StatusOnboardingApproved  Status = "ONBOARDING_APPROVED"

	// Member statuses.
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
)

// InProgress reports whether s is a state that must carry a transaction hash.
func (s Status) InProgress() bool {
	return s == StatusPublishInProgress
}

// Action is a request to move an entity to its next status.
type Action string

const (
	ActionCreate            Action = "CREATE"
	ActionSaveDraft         Action = "SAVE_DRAFT"
	ActionSubmit            Action = "SUBMIT"
	ActionOnboard           Action = "ONBOARD"
	ActionApprove           Action = "APPROVE"
	ActionReject            Action = "REJECT"
	ActionRequestChanges    Action = "REQUEST_CHANGES"
	ActionPublish           Action = "PUBLISH"
	ActionTransactionFailed Action = "TRANSACTION_FAILED"
	ActionConfirmPublish    Action = "CONFIRM_PUBLISH"
	ActionSyncFromChain     Action = "SYNC_FROM_CHAIN"

	// Member actions.
	ActionInvite Action = "INVITE"
	ActionAccept Action = "ACCEPT"
)

// Kind names the entity a policy governs.
type Kind string

const (
	KindOrganization Kind = "organization"
	KindService      Kind = "service"
	KindMember       Kind = "member"
)
