package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rankforge/rankforge/internal/config"
	creditdomain "github.com/rankforge/rankforge/internal/credit/domain"
	gatedomain "github.com/rankforge/rankforge/internal/gate/domain"
	paymentdomain "github.com/rankforge/rankforge/internal/payment/domain"
	usagedomain "github.com/rankforge/rankforge/internal/usage/domain"
	userdomain "github.com/rankforge/rankforge/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testJWTSecret = "jwt_test_secret"

type stubUsers struct {
	user *userdomain.User
	err  error
}

func (s *stubUsers) ResolveByID(ctx context.Context, id snowflake.ID) (*userdomain.User, error) {
	return s.user, s.err
}

func (s *stubUsers) ResolveByExternalID(ctx context.Context, subjectID string) (*userdomain.User, error) {
	return s.user, s.err
}

func (s *stubUsers) Reconcile(ctx context.Context, localHint snowflake.ID, externalHint string) (*userdomain.User, error) {
	return s.user, s.err
}

func (s *stubUsers) HandleLifecycleEvent(ctx context.Context, event userdomain.LifecycleEvent) error {
	return s.err
}

func (s *stubUsers) LinkProviderCustomer(ctx context.Context, userID snowflake.ID, customerID string) error {
	return s.err
}

type stubLedger struct {
	balance int64
	err     error
}

func (s *stubLedger) Balance(ctx context.Context, userID snowflake.ID) (int64, error) {
	return s.balance, s.err
}

func (s *stubLedger) HasSufficientCredits(ctx context.Context, userID snowflake.ID, required int64) (bool, error) {
	return s.balance >= required, s.err
}

func (s *stubLedger) Debit(ctx context.Context, userID snowflake.ID, amount int64) (int64, error) {
	return s.balance, s.err
}

func (s *stubLedger) Credit(ctx context.Context, userID snowflake.ID, amount int64) (int64, error) {
	return s.balance, s.err
}

type stubPurchases struct {
	purchase *creditdomain.CreditPurchase
	err      error
}

func (s *stubPurchases) CreatePending(ctx context.Context, req creditdomain.CreatePurchaseRequest) (*creditdomain.CreditPurchase, error) {
	return s.purchase, s.err
}

func (s *stubPurchases) GetByID(ctx context.Context, id snowflake.ID) (*creditdomain.CreditPurchase, error) {
	return s.purchase, s.err
}

func (s *stubPurchases) GetBySessionID(ctx context.Context, sessionID string) (*creditdomain.CreditPurchase, error) {
	return s.purchase, s.err
}

func (s *stubPurchases) Complete(ctx context.Context, id snowflake.ID) (bool, error) {
	return true, s.err
}

func (s *stubPurchases) Fail(ctx context.Context, id snowflake.ID) (bool, error) {
	return true, s.err
}

type stubGate struct {
	result any
	err    error
}

func (s *stubGate) Charge(ctx context.Context, subjectID, toolName string, units int64, fn gatedomain.ToolFunc) (any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubPayments struct {
	err error
}

func (s *stubPayments) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	return s.err
}

type stubUsage struct {
	records []usagedomain.ToolUsage
	limit   int
	err     error
}

func (s *stubUsage) History(ctx context.Context, userID snowflake.ID, limit int) ([]usagedomain.ToolUsage, error) {
	s.limit = limit
	return s.records, s.err
}

type serverStubs struct {
	users     *stubUsers
	ledger    *stubLedger
	purchases *stubPurchases
	gate      *stubGate
	payments  *stubPayments
	usage     *stubUsage
}

func newTestServer(t *testing.T) (*gin.Engine, *serverStubs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stubs := &serverStubs{
		users:     &stubUsers{user: &userdomain.User{ID: 1001, Email: "u@example.com", Credits: 50}},
		ledger:    &stubLedger{balance: 50},
		purchases: &stubPurchases{},
		gate:      &stubGate{result: "ok"},
		payments:  &stubPayments{},
		usage:     &stubUsage{},
	}

	engine := NewEngine()
	NewServer(ServerParams{
		Gin: engine,
		Cfg: config.Config{
			AuthJWTSecret: testJWTSecret,
			Identity:      config.IdentityConfig{WebhookSecret: "identity_secret"},
		},
		Log:        zap.NewNop(),
		Usersvc:    stubs.users,
		Creditsvc:  stubs.ledger,
		Purchases:  stubs.purchases,
		Gatesvc:    stubs.gate,
		Paymentsvc: stubs.payments,
		Usagesvc:   stubs.usage,
	})
	return engine, stubs
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doRequest(engine *gin.Engine, method, path, body, auth string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestAuth_MissingTokenIs401(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodGet, "/v1/credits/balance", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_WrongSecretIs401(t *testing.T) {
	engine, _ := newTestServer(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "sub_1"})
	signed, err := token.SignedString([]byte("wrong_secret"))
	require.NoError(t, err)

	rec := doRequest(engine, http.MethodGet, "/v1/credits/balance", "", "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBalance_ReturnsCredits(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodGet, "/v1/credits/balance", "", bearer(t, "sub_1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"credits": 50}`, rec.Body.String())
}

func TestBalance_UnprovisionedUserIs404(t *testing.T) {
	engine, stubs := newTestServer(t)
	stubs.users.user = nil
	stubs.users.err = userdomain.ErrNotFound

	rec := doRequest(engine, http.MethodGet, "/v1/credits/balance", "", bearer(t, "sub_ghost"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_not_provisioned")
}

func TestTool_InsufficientCreditsIs402(t *testing.T) {
	engine, stubs := newTestServer(t)
	stubs.gate.err = creditdomain.ErrInsufficientCredits

	rec := doRequest(engine, http.MethodPost, "/v1/tools/ssl-check", "", bearer(t, "sub_1"))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), "Insufficient credits. Please purchase more credits to continue.")
}

func TestTool_UnknownToolIs404(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodPost, "/v1/tools/crystal-ball", "", bearer(t, "sub_1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTool_SuccessReturnsResult(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodPost, "/v1/tools/ssl-check", `{"input":"example.com"}`, bearer(t, "sub_1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tool": "ssl-check", "result": "ok"}`, rec.Body.String())
}

func TestUsageHistory_ReturnsRecords(t *testing.T) {
	engine, stubs := newTestServer(t)
	stubs.usage.records = []usagedomain.ToolUsage{
		{ID: 7, UserID: 1001, ToolName: "ssl-check", CreditsUsed: 1, Success: true},
	}

	rec := doRequest(engine, http.MethodGet, "/v1/usage", "", bearer(t, "sub_1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tool_name":"ssl-check"`)
	assert.Equal(t, 50, stubs.usage.limit)
}

func TestUsageHistory_EmptyIsAnEmptyList(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodGet, "/v1/usage", "", bearer(t, "sub_1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"usage": []}`, rec.Body.String())
}

func TestUsageHistory_LimitQuery(t *testing.T) {
	engine, stubs := newTestServer(t)

	rec := doRequest(engine, http.MethodGet, "/v1/usage?limit=5", "", bearer(t, "sub_1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, stubs.usage.limit)

	rec = doRequest(engine, http.MethodGet, "/v1/usage?limit=nope", "", bearer(t, "sub_1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_UnknownPackageIs400(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodPost, "/v1/checkout", `{"package":"platinum"}`, bearer(t, "sub_1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_package")
}

func TestCheckout_CreatesPendingPurchase(t *testing.T) {
	engine, stubs := newTestServer(t)
	session := "cs_1"
	stubs.purchases.purchase = &creditdomain.CreditPurchase{
		ID:        42,
		UserID:    1001,
		Credits:   100,
		Amount:    900,
		Currency:  "USD",
		Status:    creditdomain.PurchaseStatusPending,
		SessionID: &session,
	}

	rec := doRequest(engine, http.MethodPost, "/v1/checkout", `{"package":"starter","session_id":"cs_1"}`, bearer(t, "sub_1"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"purchase_id":"42"`)
	assert.Contains(t, rec.Body.String(), `"subject_id":"sub_1"`)
}

func TestPaymentWebhook_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"ok", nil, http.StatusOK},
		{"already processed acks", paymentdomain.ErrEventAlreadyProcessed, http.StatusOK},
		{"invalid signature", paymentdomain.ErrInvalidSignature, http.StatusBadRequest},
		{"unknown provider", paymentdomain.ErrProviderNotFound, http.StatusNotFound},
		{"purchase missing retries", paymentdomain.ErrPurchaseMissing, http.StatusServiceUnavailable},
		{"invalid payload", paymentdomain.ErrInvalidPayload, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, stubs := newTestServer(t)
			stubs.payments.err = tc.err

			rec := doRequest(engine, http.MethodPost, "/webhooks/payment/stripe", `{"id":"evt_1"}`, "")
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
