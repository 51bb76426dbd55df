package testutil

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/singnet/snet-marketplace-service-sub000/internal/auth"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database"
	"github.com/singnet/snet-marketplace-service-sub000/internal/database/models"
	"github.com/singnet/snet-marketplace-service-sub000/internal/lifecycle"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing. The pool is held
// to one connection so every query sees the same in-memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func txHashFor(status lifecycle.Status) *string {
	if !status.InProgress() {
		return nil
	}
	h := TxHash()
	return &h
}

// TxHash returns a random well-formed transaction hash.
func TxHash() string {
	a, b := uuid.New(), uuid.New()
	return "0x" + hex.EncodeToString(a[:]) + hex.EncodeToString(b[:])
}

// CreateTestOrganization inserts an organization directly in the given status.
func CreateTestOrganization(t *testing.T, db *gorm.DB, owner string, status lifecycle.Status) *models.Organization {
	t.Helper()

	id := uuid.New()
	org := &models.Organization{
		UUID:  id,
		OrgID: "test-org-" + id.String()[:8],
		OrganizationFields: models.OrganizationFields{
			Name:             "Test Organization",
			Type:             models.OrgTypeOrganization,
			ShortDescription: "short",
			LongDescription:  "long",
			URL:              "https://example.com",
			Contacts:         datatypes.NewJSONType([]models.Contact{{ContactType: "support", Email: "support@example.com"}}),
			Assets:           datatypes.NewJSONType(map[string]models.AssetRef{}),
			Groups: datatypes.NewJSONType([]models.OrgGroup{{
				ID:             "group-1",
				Name:           "default_group",
				PaymentAddress: "0x1111111111111111111111111111111111111111",
				PaymentConfig:  map[string]any{"payment_expiration_threshold": float64(40320)},
			}}),
			Addresses:     datatypes.NewJSONType(models.Addresses{SameMailingAddress: true}),
			Owner:         owner,
			WalletAddress: "0x2222222222222222222222222222222222222222",
			State:         models.State{Status: status, TransactionHash: txHashFor(status)},
		},
	}

	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}

	return org
}

// CreateTestService inserts a service of org directly in the given status.
func CreateTestService(t *testing.T, db *gorm.DB, org *models.Organization, serviceID string, status lifecycle.Status) *models.Service {
	t.Helper()

	svc := &models.Service{
		UUID:      uuid.New(),
		OrgUUID:   org.UUID,
		ServiceID: serviceID,
		ServiceFields: models.ServiceFields{
			DisplayName:      "Test Service",
			ShortDescription: "short",
			Description:      "description",
			ProjectURL:       "https://example.com/service",
			Proto:            datatypes.NewJSONType(models.ProtoDescriptor{Encoding: "proto", ServiceType: "grpc"}),
			Assets:           datatypes.NewJSONType(models.ServiceAssets{}),
			Groups: datatypes.NewJSONType([]models.ServiceGroup{{
				GroupID:   "group-1",
				GroupName: "default_group",
				Pricing:   []models.PriceModel{{Default: true, PriceInCogs: 1, PriceModel: "fixed_price"}},
				Endpoints: []string{"https://daemon.example.com:8080"},
			}}),
			Tags:  datatypes.NewJSONType([]string{"test"}),
			State: models.State{Status: status, TransactionHash: txHashFor(status)},
		},
	}

	if err := db.Create(svc).Error; err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}

	return svc
}

// CreateTestMember inserts a member of org directly in the given status.
func CreateTestMember(t *testing.T, db *gorm.DB, org *models.Organization, username string, role models.MemberRole, status lifecycle.Status) *models.OrganizationMember {
	t.Helper()

	member := &models.OrganizationMember{
		InviteCode: "code-" + uuid.NewString(),
		OrganizationMemberFields: models.OrganizationMemberFields{
			OrgUUID:   org.UUID,
			Username:  username,
			Role:      role,
			InvitedAt: time.Now().UTC(),
			State:     models.State{Status: status, TransactionHash: txHashFor(status)},
		},
	}
	if status != lifecycle.StatusPending {
		addr := "0x3333333333333333333333333333333333333333"
		member.Address = &addr
	}

	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test member: %v", err)
	}

	return member
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for username
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, username, role string) string {
	t.Helper()

	token, err := jwtService.GenerateToken(username, username+"@example.com", role)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Username   string
	Token      string
}

// NewTestContext creates a test setup with a DB and a publisher token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	username := "publisher-" + uuid.NewString()[:8]

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Username:   username,
		Token:      GenerateTestToken(t, jwtService, username, auth.RolePublisher),
	}
}

// ApproverToken issues a token for an approver.
func (ts *TestSetup) ApproverToken(t *testing.T) string {
	t.Helper()
	return GenerateTestToken(t, ts.JWTService, "approver", auth.RoleApprover)
}
