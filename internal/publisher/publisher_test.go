package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/singnet/snet-marketplace-service-sub000/internal/chain"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/invitation"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"github.com/singnet/snet-marketplace-service-sub000/internal/notify"
	"github.com/singnet/snet-marketplace-service-sub000/internal/reconciler"
	"github.com/singnet/snet-marketplace-service-sub000/internal/repository"
	"github.com/singnet/snet-marketplace-service-sub000/internal/storage"
	"github.com/singnet/snet-marketplace-service-sub000/internal/testutil"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	wallet         = "0x4bbeeb066ed09b7aed07bf39eee0460dfa261520"
	paymentAddress = "0x1111111111111111111111111111111111111111"
	heroURL        = "s3://assets/acme/hero.png"
	protoURL       = "s3://assets/acme/proto.zip"
	demoURL        = "s3://assets/acme/demo.zip"
)

type fakeAssets struct {
	mu        sync.Mutex
	dir       string
	files     map[string][]byte
	downloads int
	cleaned   int
}

func (f *fakeAssets) Download(_ context.Context, rawURL string) (string, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.files[rawURL]
	if !ok {
		return "", nil, apperr.External("download asset", errors.New("NoSuchKey"))
	}
	f.downloads++
	p := filepath.Join(f.dir, fmt.Sprintf("asset-%d%s", f.downloads, path.Ext(rawURL)))
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", nil, err
	}
	return p, func() {
		f.mu.Lock()
		f.cleaned++
		f.mu.Unlock()
		os.Remove(p)
	}, nil
}

type fakeRatings struct {
	calls []string
	err   error
}

func (f *fakeRatings) UpdateServiceRating(_ context.Context, orgID, serviceID string, rating float64, totalRated int) error {
	f.calls = append(f.calls, fmt.Sprintf("%s/%s %.1f %d", orgID, serviceID, rating, totalRated))
	return f.err
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (r *recordingSender) Send(_ context.Context, m notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return nil
}

func (r *recordingSender) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.sent {
		out = append(out, m.Event)
	}
	return out
}

type harness struct {
	svc     *Service
	db      *gorm.DB
	cs      *testutil.ContentStore
	assets  *fakeAssets
	ratings *fakeRatings
	sender  *recordingSender
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cs := testutil.NewContentStore(t)
	rdb := repository.NewDatabase(db)
	logger := util.DiscardLogger()
	sender := &recordingSender{}
	assets := &fakeAssets{dir: t.TempDir(), files: map[string][]byte{
		heroURL:  []byte("\x89PNG hero"),
		protoURL: zipBytes(t, map[string]string{"service.proto": "syntax = \"proto3\";"}),
		demoURL:  zipBytes(t, map[string]string{"demo/index.js": "render()"}),
	}}
	ratings := &fakeRatings{}

	store := storage.New(map[string]storage.Backend{
		storage.ProviderIPFS: storage.NewIPFS(cs.URL, cs.Client()),
	}, t.TempDir())

	svc := New(Deps{
		DB:         rdb,
		Store:      store,
		Assets:     assets,
		Ratings:    ratings,
		Members:    invitation.New(rdb, sender, logger),
		Reconciler: reconciler.New(rdb, noReceipts{}, logger),
		Notifier:   sender,
		Logger:     logger,
	})
	return &harness{svc: svc, db: db, cs: cs, assets: assets, ratings: ratings, sender: sender}
}

type noReceipts struct{}

func (noReceipts) TransactionReceipt(context.Context, string) (*chain.Receipt, error) {
	return nil, chain.ErrReceiptNotFound
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	p := filepath.Join(t.TempDir(), "bundle.zip")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return data
}

func orgInput(orgID string) OrganizationInput {
	return OrganizationInput{
		OrgID:            orgID,
		Name:             "Acme AI",
		Type:             models.OrgTypeOrganization,
		ShortDescription: "short",
		LongDescription:  "long",
		URL:              "https://acme.example.com",
		Contacts:         []models.Contact{{ContactType: "support", Email: "support@acme.example.com"}},
		Assets:           map[string]models.AssetRef{"hero_image": {URL: heroURL}},
		Groups: []models.OrgGroup{{
			ID:             "group-1",
			Name:           "default_group",
			PaymentAddress: paymentAddress,
			PaymentConfig:  map[string]any{"payment_expiration_threshold": float64(40320)},
		}},
		WalletAddress: wallet,
	}
}

func serviceInput(serviceID string) ServiceInput {
	return ServiceInput{
		ServiceID:   serviceID,
		DisplayName: "Face Detect",
		Description: "finds faces",
		ProjectURL:  "https://acme.example.com/face",
		Proto:       models.ProtoDescriptor{Encoding: "proto", ServiceType: "grpc"},
		Assets: models.ServiceAssets{
			ProtoFiles: models.AssetRef{URL: protoURL},
			DemoFiles:  models.AssetRef{URL: demoURL},
			HeroImage:  models.AssetRef{URL: heroURL},
		},
		Groups: []models.ServiceGroup{{
			GroupID:   "group-1",
			GroupName: "default_group",
			Pricing:   []models.PriceModel{{Default: true, PriceInCogs: 1, PriceModel: "fixed_price"}},
			Endpoints: []string{"https://daemon.acme.example.com:8088"},
		}},
		Tags: []string{"vision"},
	}
}

// event builds the registry event the chain emits for a published metadata URI.
func event(name chain.EventName, orgID, serviceID, uri string) *chain.Event {
	return &chain.Event{
		Name:            name,
		OrgID:           orgID,
		ServiceID:       serviceID,
		MetadataURI:     uri,
		TransactionHash: testutil.TxHash(),
		BlockNumber:     1,
	}
}

func historyCount(t *testing.T, db *gorm.DB, model any, id any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where("uuid = ?", id).Count(&n).Error)
	return n
}

func TestCreateOrganization(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	org, err := h.svc.CreateOrganization(ctx, "alice", orgInput("acme"))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDraft, org.Status)
	assert.Equal(t, "acme", org.OrgID)
	assert.Equal(t, "alice", org.Owner)
	assert.Zero(t, historyCount(t, h.db, &models.OrganizationHistory{}, org.UUID))

	members, err := h.svc.Members().ListMembers(ctx, org.UUID, lifecycle.StatusNone)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, models.RoleOwner, members[0].Role)
	assert.Equal(t, lifecycle.StatusAccepted, members[0].Status)
	assert.Equal(t, "alice", members[0].Username)

	_, err = h.svc.CreateOrganization(ctx, "bob", orgInput("acme"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateOrganization_Individual(t *testing.T) {
	h := newHarness(t)
	in := orgInput("ignored")
	in.Type = models.OrgTypeIndividual

	org, err := h.svc.CreateOrganization(testutil.TestContext(t), "alice", in)
	require.NoError(t, err)
	assert.Equal(t, org.UUID.String(), org.OrgID)
}

func TestCreateOrganization_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	tests := map[string]func(*OrganizationInput){
		"missing name":  func(in *OrganizationInput) { in.Name = " " },
		"bad org_id":    func(in *OrganizationInput) { in.OrgID = "has space" },
		"unknown type":  func(in *OrganizationInput) { in.Type = "company" },
		"bad wallet":    func(in *OrganizationInput) { in.WalletAddress = "0x123" },
		"bad payment":   func(in *OrganizationInput) { in.Groups[0].PaymentAddress = "nope" },
		"unnamed group": func(in *OrganizationInput) { in.Groups[0].Name = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := orgInput("acme")
			mutate(&in)
			_, err := h.svc.CreateOrganization(ctx, "alice", in)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

// publishOrganization drives an organization from its current reviewable state to
// PUBLISHED through the portal and returns it.
func publishOrganization(t *testing.T, h *harness, owner string, org *models.Organization) *models.Organization {
	t.Helper()
	ctx := testutil.TestContext(t)

	org, err := h.svc.SubmitOrganization(ctx, owner, org.UUID)
	require.NoError(t, err)
	if org.Status == lifecycle.StatusApprovalPending {
		org, err = h.svc.ApproveOrganization(ctx, "approver", org.UUID, "")
		require.NoError(t, err)
	}
	require.Equal(t, lifecycle.StatusApproved, org.Status)

	org, err = h.svc.PublishOrganizationToStorage(ctx, owner, org.UUID)
	require.NoError(t, err)
	require.NotNil(t, org.MetadataURI)

	org, err = h.svc.SaveOrganizationTransaction(ctx, owner, org.UUID, testutil.TxHash())
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusPublishInProgress, org.Status)

	org, err = h.svc.ApplyOrganizationEvent(ctx, event(chain.EventOrganizationModified, org.OrgID, "", *org.MetadataURI))
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusPublished, org.Status)
	return org
}

func TestOrganization_TwoPublishCycles(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	org, err := h.svc.CreateOrganization(ctx, "alice", orgInput("acme"))
	require.NoError(t, err)

	// submit, approve, save transaction, confirm
	org = publishOrganization(t, h, "alice", org)
	assert.Equal(t, int64(4), historyCount(t, h.db, &models.OrganizationHistory{}, org.UUID))

	in := orgInput("acme")
	in.LongDescription = "updated"
	org, err = h.svc.SaveOrganizationDraft(ctx, "alice", org.UUID, in)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDraft, org.Status)

	// save draft plus the same four transitions
	org = publishOrganization(t, h, "alice", org)
	assert.Equal(t, int64(9), historyCount(t, h.db, &models.OrganizationHistory{}, org.UUID))

	var live []models.Organization
	require.NoError(t, h.db.Where("uuid = ?", org.UUID).Find(&live).Error)
	require.Len(t, live, 1)
	assert.Equal(t, lifecycle.StatusPublished, live[0].Status)
	assert.Equal(t, "updated", live[0].LongDescription)
	assert.Nil(t, live[0].TransactionHash)

	history, err := h.svc.OrganizationHistory(ctx, org.UUID)
	require.NoError(t, err)
	var statuses []lifecycle.Status
	for _, row := range history {
		statuses = append(statuses, row.Status)
	}
	assert.Equal(t, []lifecycle.Status{
		lifecycle.StatusDraft,
		lifecycle.StatusApprovalPending,
		lifecycle.StatusApproved,
		lifecycle.StatusPublishInProgress,
		lifecycle.StatusPublished,
		lifecycle.StatusDraft,
		lifecycle.StatusApprovalPending,
		lifecycle.StatusApproved,
		lifecycle.StatusPublishInProgress,
	}, statuses)

	owner, err := h.svc.Members().ListMembers(ctx, org.UUID, lifecycle.StatusPublished)
	require.NoError(t, err)
	require.Len(t, owner, 1)
	assert.Equal(t, models.RoleOwner, owner[0].Role)
}

func TestOrganization_OnboardingFastPath(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	first, err := h.svc.CreateOrganization(ctx, "bob", orgInput("bob-first"))
	require.NoError(t, err)
	first, err = h.svc.SubmitOrganization(ctx, "bob", first.UUID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusApprovalPending, first.Status)
	_, err = h.svc.ApproveOrganization(ctx, "approver", first.UUID, "welcome")
	require.NoError(t, err)

	second, err := h.svc.CreateOrganization(ctx, "bob", orgInput("bob-second"))
	require.NoError(t, err)
	second, err = h.svc.SubmitOrganization(ctx, "bob", second.UUID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusApproved, second.Status)

	history, err := h.svc.OrganizationHistory(ctx, second.UUID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, lifecycle.StatusDraft, history[0].Status)

	// Only the first submission went to the approvers.
	assert.Equal(t, 1, strings.Count(strings.Join(h.sender.events(), ","), notify.EventSubmittedForApproval))
}

func TestOrganization_NoFastPathAfterPublishing(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	first, err := h.svc.CreateOrganization(ctx, "carol", orgInput("carol-first"))
	require.NoError(t, err)
	publishOrganization(t, h, "carol", first)

	second, err := h.svc.CreateOrganization(ctx, "carol", orgInput("carol-second"))
	require.NoError(t, err)
	second, err = h.svc.SubmitOrganization(ctx, "carol", second.UUID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusApprovalPending, second.Status)
}

func TestOrganization_OnboardingReview(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	org, err := h.svc.CreateOrganization(ctx, "dana", orgInput("dana"))
	require.NoError(t, err)
	org, err = h.svc.OnboardOrganization(ctx, "dana", org.UUID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusOnboarding, org.Status)

	org, err = h.svc.ApproveOrganization(ctx, "approver", org.UUID, "")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusOnboardingApproved, org.Status)

	org, err = h.svc.SubmitOrganization(ctx, "dana", org.UUID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusApproved, org.Status)
}

func TestOrganization_ReviewRecordsComment(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	org, err := h.svc.CreateOrganization(ctx, "erin", orgInput("erin"))
	require.NoError(t, err)
	_, err = h.svc.SubmitOrganization(ctx, "erin", org.UUID)
	require.NoError(t, err)

	org, err = h.svc.RequestOrganizationChanges(ctx, "approver", org.UUID, "add a support contact")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusChangeRequested, org.Status)

	comments, err := h.svc.ListComments(ctx, org.UUID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, models.CommentRoleApprover, comments[0].Role)
	assert.Equal(t, "add a support contact", comments[0].Text)

	last := h.sender.sent[len(h.sender.sent)-1]
	assert.Equal(t, notify.EventReviewed, last.Event)
	assert.Equal(t, "erin", last.Recipient)
	assert.Contains(t, last.Text, "add a support contact")

	_, err = h.svc.RejectOrganization(ctx, "approver", org.UUID, "")
	assert.ErrorIs(t, err, lifecycle.ErrOperationNotAllowed)

	_, err = h.svc.ReviewOrganization(ctx, org.UUID, Review{Approver: "approver", Action: lifecycle.ActionPublish})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = h.svc.ReviewOrganization(ctx, org.UUID, Review{Action: lifecycle.ActionApprove})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestOrganization_ResubmitPublishedIsNotAllowed(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	org, err := h.svc.CreateOrganization(ctx, "frank", orgInput("frank"))
	require.NoError(t, err)
	org = publishOrganization(t, h, "frank", org)

	_, err = h.svc.SubmitOrganization(ctx, "frank", org.UUID)
	assert.ErrorIs(t, err, lifecycle.ErrOperationNotAllowed)
	assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))
}

func TestOrganization_OwnershipIsEnforced(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	org, err := h.svc.CreateOrganization(ctx, "gina", orgInput("gina"))
	require.NoError(t, err)

	_, err = h.svc.SubmitOrganization(ctx, "mallory", org.UUID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = h.svc.SaveOrganizationDraft(ctx, "gina", org.UUID, orgInput("renamed"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// The failed edit rolled back, history included.
	assert.Zero(t, historyCount(t, h.db, &models.OrganizationHistory{}, org.UUID))
}

func TestPublishOrganizationToStorage(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	org, err := h.svc.CreateOrganization(ctx, "hank", orgInput("hank"))
	require.NoError(t, err)

	_, err = h.svc.PublishOrganizationToStorage(ctx, "hank", org.UUID)
	assert.ErrorIs(t, err, lifecycle.ErrOperationNotAllowed)

	_, err = h.svc.SaveOrganizationTransaction(ctx, "hank", org.UUID, testutil.TxHash())
	assert.ErrorIs(t, err, lifecycle.ErrOperationNotAllowed)

	_, err = h.svc.SubmitOrganization(ctx, "hank", org.UUID)
	require.NoError(t, err)
	_, err = h.svc.ApproveOrganization(ctx, "approver", org.UUID, "")
	require.NoError(t, err)

	_, err = h.svc.SaveOrganizationTransaction(ctx, "hank", org.UUID, testutil.TxHash())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = h.svc.SaveOrganizationTransaction(ctx, "hank", org.UUID, "0xabc")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	published, err := h.svc.PublishOrganizationToStorage(ctx, "hank", org.UUID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusApproved, published.Status)
	assert.Equal(t, "ipfs://"+testutil.CID([]byte("\x89PNG hero")), published.Assets.Data()["hero_image"].IPFSHash)
	assert.Equal(t, 1, h.assets.cleaned)

	_, hash, err := storage.ParseURI(*published.MetadataURI)
	require.NoError(t, err)
	doc, ok := h.cs.Object(hash)
	require.True(t, ok)

	var md OrganizationMetadata
	require.NoError(t, json.Unmarshal(doc, &md))
	assert.Equal(t, "hank", md.OrgID)
	assert.Equal(t, "Acme AI", md.OrgName)
	assert.Equal(t, published.Assets.Data()["hero_image"].IPFSHash, md.Assets["hero_image"])
	require.Len(t, md.Groups, 1)
	assert.Equal(t, paymentAddress, md.Groups[0].PaymentAddress)

	// Publishing unchanged content again yields the same URI.
	again, err := h.svc.PublishOrganizationToStorage(ctx, "hank", org.UUID)
	require.NoError(t, err)
	assert.Equal(t, *published.MetadataURI, *again.MetadataURI)

	// Storage publishing writes no history.
	assert.Equal(t, int64(2), historyCount(t, h.db, &models.OrganizationHistory{}, org.UUID))
}

func TestPublishOrganizationToStorage_DownloadFailure(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	in := orgInput("ivy")
	in.Assets = map[string]models.AssetRef{"hero_image": {URL: "s3://assets/missing.png"}}
	org, err := h.svc.CreateOrganization(ctx, "ivy", in)
	require.NoError(t, err)
	_, err = h.svc.SubmitOrganization(ctx, "ivy", org.UUID)
	require.NoError(t, err)
	_, err = h.svc.ApproveOrganization(ctx, "approver", org.UUID, "")
	require.NoError(t, err)

	_, err = h.svc.PublishOrganizationToStorage(ctx, "ivy", org.UUID)
	assert.Equal(t, apperr.KindExternal, apperr.KindOf(err))

	got, err := h.svc.GetOrganization(ctx, org.UUID)
	require.NoError(t, err)
	assert.Nil(t, got.MetadataURI)
}

func TestApplyOrganizationEvent_UnknownOrganization(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	doc, err := json.Marshal(OrganizationMetadata{
		OrgName:  "CLI Org",
		OrgID:    "cli-org",
		OrgType:  models.OrgTypeOrganization,
		Assets:   map[string]string{},
		Contacts: []models.Contact{},
		Groups:   []OrganizationGroupMD{{GroupName: "g", GroupID: "g1", PaymentAddress: paymentAddress}},
	})
	require.NoError(t, err)
	uri := storage.FormatURI(storage.ProviderIPFS, h.cs.Put(doc))

	created := event(chain.EventOrganizationCreated, "cli-org", "", uri)
	created.Owner = common.HexToAddress(wallet).Hex()
	org, err := h.svc.ApplyOrganizationEvent(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPublishedUnapproved, org.Status)
	assert.Equal(t, "CLI Org", org.Name)
	assert.Equal(t, uri, *org.MetadataURI)
	assert.Equal(t, created.Owner, org.WalletAddress)

	members, err := h.svc.Members().ListMembers(ctx, org.UUID, lifecycle.StatusNone)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, models.RoleOwner, members[0].Role)
	assert.Equal(t, lifecycle.StatusPublished, members[0].Status)
	assert.Equal(t, created.Owner, members[0].Username)
	require.NotNil(t, members[0].Address)
	assert.Equal(t, created.Owner, *members[0].Address)

	// Redelivery of the same event changes nothing.
	again, err := h.svc.ApplyOrganizationEvent(ctx, event(chain.EventOrganizationCreated, "cli-org", "", uri))
	require.NoError(t, err)
	assert.Equal(t, org.UUID, again.UUID)
	assert.Zero(t, historyCount(t, h.db, &models.OrganizationHistory{}, org.UUID))
}

func TestApplyOrganizationEvent_MismatchAdoptsChainVersion(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	org, err := h.svc.CreateOrganization(ctx, "jack", orgInput("jack"))
	require.NoError(t, err)
	_, err = h.svc.SubmitOrganization(ctx, "jack", org.UUID)
	require.NoError(t, err)
	_, err = h.svc.ApproveOrganization(ctx, "approver", org.UUID, "")
	require.NoError(t, err)
	_, err = h.svc.PublishOrganizationToStorage(ctx, "jack", org.UUID)
	require.NoError(t, err)
	_, err = h.svc.SaveOrganizationTransaction(ctx, "jack", org.UUID, testutil.TxHash())
	require.NoError(t, err)

	doc, err := json.Marshal(OrganizationMetadata{OrgName: "Renamed On Chain", OrgID: "jack", OrgType: models.OrgTypeOrganization})
	require.NoError(t, err)
	uri := storage.FormatURI(storage.ProviderIPFS, h.cs.Put(doc))

	got, err := h.svc.ApplyOrganizationEvent(ctx, event(chain.EventOrganizationModified, "jack", "", uri))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPublishedUnapproved, got.Status)
	assert.Equal(t, "Renamed On Chain", got.Name)
	assert.Nil(t, got.TransactionHash)
}

func TestApplyOrganizationEvent_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	_, err := h.svc.ApplyOrganizationEvent(ctx, event(chain.EventServiceCreated, "acme", "svc", "ipfs://Qm"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = h.svc.ApplyOrganizationEvent(ctx, event(chain.EventOrganizationCreated, "acme", "", ""))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = h.svc.ApplyOrganizationEvent(ctx, event(chain.EventOrganizationCreated, "acme", "", "ipfs://QmMissing"))
	assert.Equal(t, apperr.KindExternal, apperr.KindOf(err))

	uri := storage.FormatURI(storage.ProviderIPFS, h.cs.Put([]byte("not json")))
	_, err = h.svc.ApplyOrganizationEvent(ctx, event(chain.EventOrganizationCreated, "acme", "", uri))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestApplyOrganizationEvent_ConfirmsMembers(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	const (
		bobWallet   = "0x2222222222222222222222222222222222222222"
		carolWallet = "0x3333333333333333333333333333333333333333"
	)

	org, err := h.svc.CreateOrganization(ctx, "alice", orgInput("acme"))
	require.NoError(t, err)
	org = publishOrganization(t, h, "alice", org)
	orgHistory := historyCount(t, h.db, &models.OrganizationHistory{}, org.UUID)

	invited, err := h.svc.Members().Invite(ctx, org.UUID, []string{"bob", "carol"})
	require.NoError(t, err)
	require.Len(t, invited, 2)
	codes := map[string]string{}
	for _, m := range invited {
		codes[m.Username] = m.InviteCode
	}
	_, err = h.svc.Members().RegisterMember(ctx, codes["bob"], "bob", bobWallet)
	require.NoError(t, err)

	membersTx := testutil.TxHash()
	_, err = h.svc.Members().PublishMembers(ctx, org.UUID, membersTx)
	require.NoError(t, err)

	// The membership transaction re-emits the organization's current metadata.
	ev := event(chain.EventOrganizationModified, org.OrgID, "", *org.MetadataURI)
	ev.TransactionHash = membersTx
	got, err := h.svc.ApplyOrganizationEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPublished, got.Status)
	assert.Equal(t, orgHistory, historyCount(t, h.db, &models.OrganizationHistory{}, org.UUID))

	published, err := h.svc.Members().ListMembers(ctx, org.UUID, lifecycle.StatusPublished)
	require.NoError(t, err)
	var names []string
	for _, m := range published {
		names = append(names, m.Username)
	}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)

	// Members the registry lists are confirmed even without their own transaction.
	_, err = h.svc.Members().RegisterMember(ctx, codes["carol"], "carol", carolWallet)
	require.NoError(t, err)
	ev = event(chain.EventOrganizationModified, org.OrgID, "", *org.MetadataURI)
	ev.Members = []string{bobWallet, carolWallet}
	_, err = h.svc.ApplyOrganizationEvent(ctx, ev)
	require.NoError(t, err)

	published, err = h.svc.Members().ListMembers(ctx, org.UUID, lifecycle.StatusPublished)
	require.NoError(t, err)
	assert.Len(t, published, 3)
}

func TestApplyOrganizationEvent_KnownURIKeepsDraft(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	org, err := h.svc.CreateOrganization(ctx, "alice", orgInput("acme"))
	require.NoError(t, err)
	org = publishOrganization(t, h, "alice", org)
	publishedURI := *org.MetadataURI

	in := orgInput("acme")
	in.Name = "Acme Labs"
	draft, err := h.svc.SaveOrganizationDraft(ctx, "alice", org.UUID, in)
	require.NoError(t, err)
	assert.Nil(t, draft.MetadataURI)

	got, err := h.svc.ApplyOrganizationEvent(ctx, event(chain.EventOrganizationModified, org.OrgID, "", publishedURI))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDraft, got.Status)
	assert.Equal(t, "Acme Labs", got.Name)
}

func TestOrganization_EditAfterPublishRequiresRepublish(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	org, err := h.svc.CreateOrganization(ctx, "alice", orgInput("acme"))
	require.NoError(t, err)
	org = publishOrganization(t, h, "alice", org)
	oldURI := *org.MetadataURI

	in := orgInput("acme")
	in.Name = "Acme Labs"
	_, err = h.svc.SaveOrganizationDraft(ctx, "alice", org.UUID, in)
	require.NoError(t, err)
	_, err = h.svc.SubmitOrganization(ctx, "alice", org.UUID)
	require.NoError(t, err)
	approved, err := h.svc.ApproveOrganization(ctx, "approver", org.UUID, "")
	require.NoError(t, err)
	assert.Nil(t, approved.MetadataURI)

	_, err = h.svc.SaveOrganizationTransaction(ctx, "alice", org.UUID, testutil.TxHash())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	republished, err := h.svc.PublishOrganizationToStorage(ctx, "alice", org.UUID)
	require.NoError(t, err)
	require.NotNil(t, republished.MetadataURI)
	assert.NotEqual(t, oldURI, *republished.MetadataURI)

	_, err = h.svc.SaveOrganizationTransaction(ctx, "alice", org.UUID, testutil.TxHash())
	require.NoError(t, err)
	got, err := h.svc.ApplyOrganizationEvent(ctx, event(chain.EventOrganizationModified, org.OrgID, "", *republished.MetadataURI))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPublished, got.Status)
	assert.Equal(t, "Acme Labs", got.Name)
}

func newPublishedOrg(t *testing.T, h *harness, owner string) *models.Organization {
	t.Helper()
	return testutil.CreateTestOrganization(t, h.db, owner, lifecycle.StatusPublished)
}

func approvedService(t *testing.T, h *harness, owner string, org *models.Organization, serviceID string) *models.Service {
	t.Helper()
	ctx := testutil.TestContext(t)

	svc, err := h.svc.CreateService(ctx, owner, org.UUID, serviceInput(serviceID))
	require.NoError(t, err)
	_, err = h.svc.SubmitService(ctx, owner, org.UUID, svc.UUID)
	require.NoError(t, err)
	svc, err = h.svc.ApproveService(ctx, "approver", org.UUID, svc.UUID, "")
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusApproved, svc.Status)
	return svc
}

func TestCreateService(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	org := newPublishedOrg(t, h, "alice")

	svc, err := h.svc.CreateService(ctx, "alice", org.UUID, serviceInput("face-detect"))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDraft, svc.Status)
	assert.Equal(t, models.AssetStatusPending, svc.Assets.Data().ProtoFiles.Status)

	available, err := h.svc.IsServiceIDAvailable(ctx, org.UUID, "face-detect")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = h.svc.IsServiceIDAvailable(ctx, org.UUID, "other")
	require.NoError(t, err)
	assert.True(t, available)

	available, err = h.svc.IsServiceIDAvailable(ctx, org.UUID, "bad id")
	require.NoError(t, err)
	assert.False(t, available)

	_, err = h.svc.CreateService(ctx, "alice", org.UUID, serviceInput("face-detect"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = h.svc.CreateService(ctx, "mallory", org.UUID, serviceInput("other"))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	in := serviceInput("two-defaults")
	in.Groups[0].Pricing = append(in.Groups[0].Pricing, models.PriceModel{Default: true, PriceInCogs: 2})
	_, err = h.svc.CreateService(ctx, "alice", org.UUID, in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	services, err := h.svc.ListServices(ctx, org.UUID)
	require.NoError(t, err)
	assert.Len(t, services, 1)
}

func TestSaveServiceDraft_KeepsPublishedAssets(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	org := newPublishedOrg(t, h, "alice")
	svc := approvedService(t, h, "alice", org, "face-detect")

	published, err := h.svc.PublishServiceToStorage(ctx, "alice", org.UUID, svc.UUID)
	require.NoError(t, err)
	protoHash := published.Assets.Data().ProtoFiles.IPFSHash
	require.NotEmpty(t, protoHash)

	in := serviceInput("face-detect")
	in.Assets.HeroImage = models.AssetRef{URL: "s3://assets/acme/new-hero.png"}
	edited, err := h.svc.SaveServiceDraft(ctx, "alice", org.UUID, svc.UUID, in)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDraft, edited.Status)

	assets := edited.Assets.Data()
	assert.Equal(t, protoHash, assets.ProtoFiles.IPFSHash)
	assert.Equal(t, models.AssetStatusSucceeded, assets.ProtoFiles.Status)
	assert.Empty(t, assets.HeroImage.IPFSHash)
	assert.Equal(t, models.AssetStatusPending, assets.HeroImage.Status)

	_, err = h.svc.SaveServiceDraft(ctx, "alice", org.UUID, svc.UUID, serviceInput("renamed"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestService_PublishFlow(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	org := newPublishedOrg(t, h, "alice")
	svc := approvedService(t, h, "alice", org, "face-detect")

	published, err := h.svc.PublishServiceToStorage(ctx, "alice", org.UUID, svc.UUID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusApproved, published.Status)
	require.NotNil(t, published.MetadataURI)

	assets := published.Assets.Data()
	for _, a := range []models.AssetRef{assets.ProtoFiles, assets.DemoFiles, assets.HeroImage} {
		assert.Equal(t, models.AssetStatusSucceeded, a.Status)
		assert.True(t, strings.HasPrefix(a.IPFSHash, "ipfs://"), a.IPFSHash)
	}
	assert.Equal(t, "ipfs://"+testutil.CID([]byte("\x89PNG hero")), assets.HeroImage.IPFSHash)
	assert.Equal(t, assets.ProtoFiles.IPFSHash, published.Proto.Data().ModelIPFSHash)

	_, hash, err := storage.ParseURI(*published.MetadataURI)
	require.NoError(t, err)
	doc, ok := h.cs.Object(hash)
	require.True(t, ok)
	var md ServiceMetadata
	require.NoError(t, json.Unmarshal(doc, &md))
	assert.Equal(t, "Face Detect", md.DisplayName)
	assert.Equal(t, assets.ProtoFiles.IPFSHash, md.ModelIPFSHash)
	assert.Equal(t, assets.DemoFiles.IPFSHash, md.Assets["demo_files"])
	require.Len(t, md.Groups, 1)
	assert.Equal(t, int64(1), md.Groups[0].Pricing[0].PriceInCogs)

	// Normalized archives make republishing unchanged content a no-op.
	again, err := h.svc.PublishServiceToStorage(ctx, "alice", org.UUID, svc.UUID)
	require.NoError(t, err)
	assert.Equal(t, *published.MetadataURI, *again.MetadataURI)
	assert.Equal(t, assets.ProtoFiles.IPFSHash, again.Assets.Data().ProtoFiles.IPFSHash)

	_, err = h.svc.SaveServiceTransaction(ctx, "alice", org.UUID, svc.UUID, "not-a-hash")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	inFlight, err := h.svc.SaveServiceTransaction(ctx, "alice", org.UUID, svc.UUID, testutil.TxHash())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPublishInProgress, inFlight.Status)
	assert.NotNil(t, inFlight.TransactionHash)

	confirmed, err := h.svc.ApplyServiceEvent(ctx, event(chain.EventServiceMetadataModified, org.OrgID, "face-detect", *published.MetadataURI))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPublished, confirmed.Status)
	assert.Nil(t, confirmed.TransactionHash)

	history, err := h.svc.ServiceHistory(ctx, org.UUID, svc.UUID)
	require.NoError(t, err)
	assert.Len(t, history, 4)

	// Redelivery of the confirming event is a no-op.
	_, err = h.svc.ApplyServiceEvent(ctx, event(chain.EventServiceMetadataModified, org.OrgID, "face-detect", *published.MetadataURI))
	require.NoError(t, err)
	history, err = h.svc.ServiceHistory(ctx, org.UUID, svc.UUID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestService_EditAfterPublishRequiresRepublish(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	org := newPublishedOrg(t, h, "alice")
	svc := approvedService(t, h, "alice", org, "face-detect")

	published, err := h.svc.PublishServiceToStorage(ctx, "alice", org.UUID, svc.UUID)
	require.NoError(t, err)
	oldURI := *published.MetadataURI
	_, err = h.svc.SaveServiceTransaction(ctx, "alice", org.UUID, svc.UUID, testutil.TxHash())
	require.NoError(t, err)
	_, err = h.svc.ApplyServiceEvent(ctx, event(chain.EventServiceMetadataModified, org.OrgID, "face-detect", oldURI))
	require.NoError(t, err)

	in := serviceInput("face-detect")
	in.DisplayName = "Face Detect Pro"
	draft, err := h.svc.SaveServiceDraft(ctx, "alice", org.UUID, svc.UUID, in)
	require.NoError(t, err)
	assert.Nil(t, draft.MetadataURI)

	// A stale event carrying the old document leaves the edit alone.
	stale, err := h.svc.ApplyServiceEvent(ctx, event(chain.EventServiceMetadataModified, org.OrgID, "face-detect", oldURI))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDraft, stale.Status)
	assert.Equal(t, "Face Detect Pro", stale.DisplayName)

	_, err = h.svc.SubmitService(ctx, "alice", org.UUID, svc.UUID)
	require.NoError(t, err)
	_, err = h.svc.ApproveService(ctx, "approver", org.UUID, svc.UUID, "")
	require.NoError(t, err)

	_, err = h.svc.SaveServiceTransaction(ctx, "alice", org.UUID, svc.UUID, testutil.TxHash())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	republished, err := h.svc.PublishServiceToStorage(ctx, "alice", org.UUID, svc.UUID)
	require.NoError(t, err)
	require.NotNil(t, republished.MetadataURI)
	assert.NotEqual(t, oldURI, *republished.MetadataURI)
}

func TestPublishServiceToStorage_RequiresPublishedOrganization(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)

	org, err := h.svc.CreateOrganization(ctx, "alice", orgInput("acme"))
	require.NoError(t, err)
	svc := approvedService(t, h, "alice", org, "face-detect")

	_, err = h.svc.PublishServiceToStorage(ctx, "alice", org.UUID, svc.UUID)
	assert.ErrorIs(t, err, lifecycle.ErrOperationNotAllowed)
	assert.Zero(t, h.cs.Adds())
}

func TestPublishServiceToStorage_RequiresProto(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	org := newPublishedOrg(t, h, "alice")

	in := serviceInput("no-proto")
	in.Assets.ProtoFiles = models.AssetRef{}
	svc, err := h.svc.CreateService(ctx, "alice", org.UUID, in)
	require.NoError(t, err)
	_, err = h.svc.SubmitService(ctx, "alice", org.UUID, svc.UUID)
	require.NoError(t, err)
	_, err = h.svc.ApproveService(ctx, "approver", org.UUID, svc.UUID, "")
	require.NoError(t, err)

	_, err = h.svc.PublishServiceToStorage(ctx, "alice", org.UUID, svc.UUID)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	got, err := h.svc.GetService(ctx, org.UUID, svc.UUID)
	require.NoError(t, err)
	assert.Nil(t, got.MetadataURI)
}

func TestReviewService(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	org := newPublishedOrg(t, h, "alice")

	svc, err := h.svc.CreateService(ctx, "alice", org.UUID, serviceInput("face-detect"))
	require.NoError(t, err)
	_, err = h.svc.SubmitService(ctx, "alice", org.UUID, svc.UUID)
	require.NoError(t, err)

	rejected, err := h.svc.RejectService(ctx, "approver", org.UUID, svc.UUID, "not a real model")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusRejected, rejected.Status)

	comments, err := h.svc.ListComments(ctx, svc.UUID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, lifecycle.KindService, comments[0].EntityKind)

	last := h.sender.sent[len(h.sender.sent)-1]
	assert.Equal(t, "alice", last.Recipient)

	_, err = h.svc.SubmitService(ctx, "alice", org.UUID, svc.UUID)
	assert.ErrorIs(t, err, lifecycle.ErrOperationNotAllowed)

	other := newPublishedOrg(t, h, "bob")
	_, err = h.svc.ApproveService(ctx, "approver", other.UUID, svc.UUID, "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestApplyServiceEvent_UnknownService(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	org := newPublishedOrg(t, h, "alice")

	doc, err := json.Marshal(ServiceMetadata{
		Version:       1,
		DisplayName:   "CLI Service",
		Encoding:      "proto",
		ServiceType:   "grpc",
		ModelIPFSHash: "ipfs://QmProto",
		Assets:        map[string]string{"proto_files": "ipfs://QmProto"},
	})
	require.NoError(t, err)
	uri := storage.FormatURI(storage.ProviderIPFS, h.cs.Put(doc))

	svc, err := h.svc.ApplyServiceEvent(ctx, event(chain.EventServiceCreated, org.OrgID, "cli-svc", uri))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPublishedUnapproved, svc.Status)
	assert.Equal(t, "CLI Service", svc.DisplayName)
	assert.Equal(t, "ipfs://QmProto", svc.Assets.Data().ProtoFiles.IPFSHash)

	_, err = h.svc.ApplyServiceEvent(ctx, event(chain.EventServiceCreated, "unknown-org", "cli-svc", uri))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = h.svc.ApplyServiceEvent(ctx, event(chain.EventOrganizationCreated, org.OrgID, "", uri))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestApplyServiceEvent_MismatchAdoptsChainVersion(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	org := newPublishedOrg(t, h, "alice")
	svc := testutil.CreateTestService(t, h.db, org, "face-detect", lifecycle.StatusPublished)

	doc, err := json.Marshal(ServiceMetadata{Version: 1, DisplayName: "Changed Via CLI"})
	require.NoError(t, err)
	uri := storage.FormatURI(storage.ProviderIPFS, h.cs.Put(doc))

	got, err := h.svc.ApplyServiceEvent(ctx, event(chain.EventServiceMetadataModified, org.OrgID, "face-detect", uri))
	require.NoError(t, err)
	assert.Equal(t, svc.UUID, got.UUID)
	assert.Equal(t, lifecycle.StatusPublishedUnapproved, got.Status)
	assert.Equal(t, "Changed Via CLI", got.DisplayName)
	assert.Equal(t, uri, *got.MetadataURI)
}

func TestUpdateServiceRating(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	org := newPublishedOrg(t, h, "alice")
	testutil.CreateTestService(t, h.db, org, "face-detect", lifecycle.StatusPublished)

	require.NoError(t, h.svc.UpdateServiceRating(ctx, org.OrgID, "face-detect", 4.5, 12))
	assert.Equal(t, []string{org.OrgID + "/face-detect 4.5 12"}, h.ratings.calls)

	err := h.svc.UpdateServiceRating(ctx, org.OrgID, "face-detect", 5.5, 1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = h.svc.UpdateServiceRating(ctx, org.OrgID, "face-detect", 3, -1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = h.svc.UpdateServiceRating(ctx, org.OrgID, "missing", 3, 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Len(t, h.ratings.calls, 1)

	h.ratings.err = apperr.External("update rating", errors.New("contract api down"))
	err = h.svc.UpdateServiceRating(ctx, org.OrgID, "face-detect", 3, 1)
	assert.Equal(t, apperr.KindExternal, apperr.KindOf(err))
}

func TestAddComment(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.TestContext(t)
	org := newPublishedOrg(t, h, "alice")

	err := h.svc.AddComment(ctx, &models.Comment{
		EntityUUID: org.UUID,
		EntityKind: lifecycle.KindOrganization,
		Author:     "alice",
		Role:       models.CommentRoleProvider,
		Text:       "please take another look",
	})
	require.NoError(t, err)

	comments, err := h.svc.ListComments(ctx, org.UUID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, models.CommentRoleProvider, comments[0].Role)

	err = h.svc.AddComment(ctx, &models.Comment{EntityUUID: org.UUID, EntityKind: lifecycle.KindOrganization, Role: models.CommentRoleProvider})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = h.svc.AddComment(ctx, &models.Comment{EntityUUID: org.UUID, EntityKind: lifecycle.KindMember, Role: models.CommentRoleProvider, Text: "hi"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = h.svc.AddComment(ctx, &models.Comment{EntityUUID: uuid.New(), EntityKind: lifecycle.KindService, Role: models.CommentRoleApprover, Text: "hi"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
