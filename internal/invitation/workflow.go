// Package invitation runs organization membership: invite codes are issued to
// usernames, redeemed with a wallet address, and then published on chain together
// with the organization's member list.
package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/chain"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"github.com/singnet/snet-marketplace-service-sub000/internal/notify"
	"github.com/singnet/snet-marketplace-service-sub000/internal/repository"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/crypto"
)

// VerifyInvite results.
const (
	VerifyOK       = "OK"
	VerifyNotFound = "NOT_FOUND"
)

type Workflow struct {
	db       *repository.Database
	notifier notify.Sender
	logger   *slog.Logger
}

func New(db *repository.Database, notifier notify.Sender, logger *slog.Logger) *Workflow {
	return &Workflow{db: db, notifier: notifier, logger: logger}
}

// Invite issues a PENDING invitation to every username that is not yet a member
// of the organization. Existing members are skipped.
func (w *Workflow) Invite(ctx context.Context, orgUUID uuid.UUID, usernames []string) ([]models.OrganizationMember, error) {
	var (
		invited []models.OrganizationMember
		orgID   string
	)

	err := w.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		org, err := uow.Organizations.Get(ctx, orgUUID)
		if err != nil {
			return err
		}
		orgID = org.OrgID

		seen := make(map[string]bool)
		for _, username := range usernames {
			username = strings.TrimSpace(username)
			if username == "" || seen[username] {
				continue
			}
			seen[username] = true

			_, err := uow.Members.GetByUsername(ctx, orgUUID, username)
			if err == nil {
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}

			member, err := newMember(orgUUID, username, models.RoleMember, nil)
			if err != nil {
				return err
			}
			if err := uow.Members.Create(ctx, member, lifecycle.ActionInvite, nil); err != nil {
				return err
			}
			invited = append(invited, *member)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range invited {
		msg := notify.Message{
			Event:     notify.EventMemberInvited,
			Recipient: m.Username,
			Text:      fmt.Sprintf("You have been invited to join organization %s. Invite code: %s", orgID, m.InviteCode),
		}
		if err := w.notifier.Send(ctx, msg); err != nil {
			w.logger.Warn("failed to send invitation", "org_uuid", orgUUID, "username", m.Username, "error", err)
		}
	}

	w.logger.Info("members invited", "org_uuid", orgUUID, "count", len(invited))
	return invited, nil
}

// VerifyInvite reports whether code is a pending invitation for username. It never
// changes state.
func (w *Workflow) VerifyInvite(ctx context.Context, code, username string) (string, error) {
	result := VerifyNotFound
	err := w.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		_, err := uow.Members.FindPendingInvite(ctx, code, username)
		switch {
		case err == nil:
			result = VerifyOK
		case errors.Is(err, repository.ErrNotFound):
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// RegisterMember redeems a pending invitation: the wallet address is recorded and
// the member moves to ACCEPTED. An unknown code is a not found error.
func (w *Workflow) RegisterMember(ctx context.Context, code, username, wallet string) (*models.OrganizationMember, error) {
	if !common.IsHexAddress(wallet) {
		return nil, apperr.Validation("register member", "invalid wallet address %q", wallet)
	}
	address := common.HexToAddress(wallet).Hex()

	var member *models.OrganizationMember
	err := w.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		pending, err := uow.Members.FindPendingInvite(ctx, code, username)
		if err != nil {
			return err
		}

		others, err := uow.Members.ListByOrg(ctx, pending.OrgUUID, lifecycle.StatusNone)
		if err != nil {
			return err
		}
		for _, o := range others {
			if o.Address != nil && strings.EqualFold(*o.Address, address) {
				return apperr.Validation("register member", "address %s is already a member", address)
			}
		}

		now := time.Now().UTC()
		err = uow.Members.Apply(ctx, pending, repository.Change[*models.OrganizationMember]{
			Action: lifecycle.ActionAccept,
			Mutate: func(m *models.OrganizationMember) {
				m.Address = &address
				m.AcceptedAt = &now
			},
		})
		member = pending
		return err
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("member registered", "org_uuid", member.OrgUUID, "username", username)
	return member, nil
}

// PublishMembers records the transaction that adds the accepted members to the
// organization on chain.
func (w *Workflow) PublishMembers(ctx context.Context, orgUUID uuid.UUID, txHash string) ([]models.OrganizationMember, error) {
	if !chain.ValidTxHash(txHash) {
		return nil, apperr.Validation("publish members", "malformed transaction hash %q", txHash)
	}

	var published []models.OrganizationMember
	err := w.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		if _, err := uow.Organizations.Get(ctx, orgUUID); err != nil {
			return err
		}
		accepted, err := uow.Members.ListByOrg(ctx, orgUUID, lifecycle.StatusAccepted)
		if err != nil {
			return err
		}

		for i := range accepted {
			m := &accepted[i]
			if m.Role == models.RoleOwner {
				continue
			}
			err := uow.Members.Apply(ctx, m, repository.Change[*models.OrganizationMember]{
				Action: lifecycle.ActionPublish,
				TxHash: &txHash,
			})
			if err != nil {
				return err
			}
			published = append(published, *m)
		}
		if len(published) == 0 {
			return apperr.Validation("publish members", "no accepted members to publish")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("members publish in progress", "org_uuid", orgUUID, "count", len(published), "tx_hash", txHash)
	return published, nil
}

// ConfirmOnChain publishes, inside the caller's unit of work, the members an
// organization event shows on chain: those whose address is in the registry's
// member list and those whose membership transaction emitted the event.
func ConfirmOnChain(ctx context.Context, uow *repository.UnitOfWork, orgUUID uuid.UUID, addresses []string, txHash string) (int, error) {
	onChain := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		if common.IsHexAddress(a) {
			onChain[strings.ToLower(common.HexToAddress(a).Hex())] = true
		}
	}
	if len(onChain) == 0 && txHash == "" {
		return 0, nil
	}

	members, err := uow.Members.ListByOrg(ctx, orgUUID, lifecycle.StatusNone)
	if err != nil {
		return 0, err
	}

	var n int
	for i := range members {
		m := &members[i]
		listed := m.Address != nil && onChain[strings.ToLower(*m.Address)]
		sameTx := txHash != "" && m.TransactionHash != nil && strings.EqualFold(*m.TransactionHash, txHash)
		if !listed && !sameTx {
			continue
		}
		if !uow.Members.Policy().Permits(m.Status, lifecycle.ActionConfirmPublish) {
			continue
		}
		if err := uow.Members.Apply(ctx, m, repository.Change[*models.OrganizationMember]{
			Action: lifecycle.ActionConfirmPublish,
		}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ConfirmOwner publishes the organization's owner once the organization itself is
// confirmed on chain.
func ConfirmOwner(ctx context.Context, uow *repository.UnitOfWork, orgUUID uuid.UUID) error {
	members, err := uow.Members.ListByOrg(ctx, orgUUID, lifecycle.StatusAccepted)
	if err != nil {
		return err
	}
	for i := range members {
		if members[i].Role != models.RoleOwner {
			continue
		}
		if err := uow.Members.Apply(ctx, &members[i], repository.Change[*models.OrganizationMember]{
			Action: lifecycle.ActionConfirmPublish,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ListMembers returns the organization's members, all of them when status is
// StatusNone.
func (w *Workflow) ListMembers(ctx context.Context, orgUUID uuid.UUID, status lifecycle.Status) ([]models.OrganizationMember, error) {
	if status != lifecycle.StatusNone && !lifecycle.Member.Valid(status) {
		return nil, apperr.Validation("list members", "unknown member status %q", status)
	}

	var members []models.OrganizationMember
	err := w.db.Do(ctx, func(uow *repository.UnitOfWork) error {
		if _, err := uow.Organizations.Get(ctx, orgUUID); err != nil {
			return err
		}
		var err error
		members, err = uow.Members.ListByOrg(ctx, orgUUID, status)
		return err
	})
	return members, err
}

// AddOwner creates the owner membership inside the caller's unit of work. The
// owner is ACCEPTED, or PUBLISHED when the organization was first seen on chain,
// and never PENDING.
func AddOwner(ctx context.Context, uow *repository.UnitOfWork, orgUUID uuid.UUID, username, wallet string, fromChain bool) (*models.OrganizationMember, error) {
	var address *string
	if wallet != "" {
		if !common.IsHexAddress(wallet) {
			return nil, apperr.Validation("add owner", "invalid wallet address %q", wallet)
		}
		a := common.HexToAddress(wallet).Hex()
		address = &a
	}

	owner, err := newMember(orgUUID, username, models.RoleOwner, address)
	if err != nil {
		return nil, err
	}
	now := owner.InvitedAt
	owner.AcceptedAt = &now

	action := lifecycle.ActionCreate
	if fromChain {
		action = lifecycle.ActionSyncFromChain
	}
	if err := uow.Members.Create(ctx, owner, action, nil); err != nil {
		return nil, err
	}
	return owner, nil
}

func newMember(orgUUID uuid.UUID, username string, role models.MemberRole, address *string) (*models.OrganizationMember, error) {
	code, err := crypto.NewToken()
	if err != nil {
		return nil, fmt.Errorf("generating invite code: %w", err)
	}
	return &models.OrganizationMember{
		InviteCode: code,
		OrganizationMemberFields: models.OrganizationMemberFields{
			OrgUUID:   orgUUID,
			Username:  username,
			Role:      role,
			Address:   address,
			InvitedAt: time.Now().UTC(),
		},
	}, nil
}
