package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	creditdomain "github.com/rankforge/rankforge/internal/credit/domain"
	"github.com/rankforge/rankforge/internal/gate/domain"
	usagedomain "github.com/rankforge/rankforge/internal/usage/domain"
	userdomain "github.com/rankforge/rankforge/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveByID(ctx context.Context, id snowflake.ID) (*userdomain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userdomain.User), args.Error(1)
}

func (m *mockResolver) ResolveByExternalID(ctx context.Context, subjectID string) (*userdomain.User, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userdomain.User), args.Error(1)
}

func (m *mockResolver) Reconcile(ctx context.Context, localHint snowflake.ID, externalHint string) (*userdomain.User, error) {
	args := m.Called(ctx, localHint, externalHint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userdomain.User), args.Error(1)
}

func (m *mockResolver) HandleLifecycleEvent(ctx context.Context, event userdomain.LifecycleEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockResolver) LinkProviderCustomer(ctx context.Context, userID snowflake.ID, customerID string) error {
	args := m.Called(ctx, userID, customerID)
	return args.Error(0)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Balance(ctx context.Context, userID snowflake.ID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLedger) HasSufficientCredits(ctx context.Context, userID snowflake.ID, required int64) (bool, error) {
	args := m.Called(ctx, userID, required)
	return args.Bool(0), args.Error(1)
}

func (m *mockLedger) Debit(ctx context.Context, userID snowflake.ID, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLedger) Credit(ctx context.Context, userID snowflake.ID, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, userID snowflake.ID, toolName string, creditsUsed int64, success bool) *usagedomain.ToolUsage {
	m.Called(ctx, userID, toolName, creditsUsed, success)
	return &usagedomain.ToolUsage{}
}

func newGate(resolver *mockResolver, ledger *mockLedger, recorder *mockRecorder) domain.Service {
	return New(Params{
		Log:      zap.NewNop(),
		Resolver: resolver,
		Ledger:   ledger,
		Recorder: recorder,
	})
}

func testUser() *userdomain.User {
	return &userdomain.User{ID: 12345, Email: "u@example.com", Credits: 50}
}

func TestCharge_DebitsBeforeToolRuns(t *testing.T) {
	resolver := &mockResolver{}
	ledger := &mockLedger{}
	recorder := &mockRecorder{}
	user := testUser()

	resolver.On("ResolveByExternalID", mock.Anything, "sub_1").Return(user, nil)
	ledger.On("Debit", mock.Anything, user.ID, int64(3)).Return(int64(47), nil)
	recorder.On("Record", mock.Anything, user.ID, "backlink-analysis", int64(3), true).Return()

	debited := false
	result, err := newGate(resolver, ledger, recorder).Charge(
		context.Background(), "sub_1", "backlink-analysis", 0,
		func(ctx context.Context) (any, error) {
			debited = ledger.AssertCalled(t, "Debit", mock.Anything, user.ID, int64(3))
			return "report", nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "report", result)
	assert.True(t, debited, "debit must commit before the tool runs")
	recorder.AssertExpectations(t)
}

func TestCharge_PerUnitCostScalesWithRequest(t *testing.T) {
	resolver := &mockResolver{}
	ledger := &mockLedger{}
	recorder := &mockRecorder{}
	user := testUser()

	resolver.On("ResolveByExternalID", mock.Anything, "sub_1").Return(user, nil)
	ledger.On("Debit", mock.Anything, user.ID, int64(15)).Return(int64(35), nil)
	recorder.On("Record", mock.Anything, user.ID, "keyword-research", int64(15), true).Return()

	_, err := newGate(resolver, ledger, recorder).Charge(
		context.Background(), "sub_1", "keyword-research", 3,
		func(ctx context.Context) (any, error) { return nil, nil },
	)
	require.NoError(t, err)
	ledger.AssertExpectations(t)
}

func TestCharge_EmptySubjectIsUnauthenticated(t *testing.T) {
	resolver := &mockResolver{}
	ledger := &mockLedger{}
	recorder := &mockRecorder{}

	_, err := newGate(resolver, ledger, recorder).Charge(
		context.Background(), "  ", "ssl-check", 0,
		func(ctx context.Context) (any, error) { return nil, nil },
	)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	resolver.AssertNotCalled(t, "ResolveByExternalID", mock.Anything, mock.Anything)
}

func TestCharge_UnknownToolBeforeResolution(t *testing.T) {
	resolver := &mockResolver{}
	ledger := &mockLedger{}
	recorder := &mockRecorder{}

	_, err := newGate(resolver, ledger, recorder).Charge(
		context.Background(), "sub_1", "crystal-ball", 0,
		func(ctx context.Context) (any, error) { return nil, nil },
	)
	assert.ErrorIs(t, err, domain.ErrUnknownTool)
	resolver.AssertNotCalled(t, "ResolveByExternalID", mock.Anything, mock.Anything)
}

func TestCharge_UnprovisionedUser(t *testing.T) {
	resolver := &mockResolver{}
	ledger := &mockLedger{}
	recorder := &mockRecorder{}

	resolver.On("ResolveByExternalID", mock.Anything, "sub_ghost").Return(nil, userdomain.ErrNotFound)

	_, err := newGate(resolver, ledger, recorder).Charge(
		context.Background(), "sub_ghost", "ssl-check", 0,
		func(ctx context.Context) (any, error) { return nil, nil },
	)
	assert.ErrorIs(t, err, domain.ErrUserNotProvisioned)
	ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
}

func TestCharge_InsufficientCreditsSkipsTool(t *testing.T) {
	resolver := &mockResolver{}
	ledger := &mockLedger{}
	recorder := &mockRecorder{}
	user := testUser()

	resolver.On("ResolveByExternalID", mock.Anything, "sub_1").Return(user, nil)
	ledger.On("Debit", mock.Anything, user.ID, int64(5)).Return(int64(0), creditdomain.ErrInsufficientCredits)

	invoked := false
	_, err := newGate(resolver, ledger, recorder).Charge(
		context.Background(), "sub_1", "content-brief", 0,
		func(ctx context.Context) (any, error) {
			invoked = true
			return nil, nil
		},
	)
	assert.ErrorIs(t, err, creditdomain.ErrInsufficientCredits)
	assert.False(t, invoked, "tool must not run when the debit is refused")
	recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCharge_ToolFailureStillRecordedAndCharged(t *testing.T) {
	resolver := &mockResolver{}
	ledger := &mockLedger{}
	recorder := &mockRecorder{}
	user := testUser()

	resolver.On("ResolveByExternalID", mock.Anything, "sub_1").Return(user, nil)
	ledger.On("Debit", mock.Anything, user.ID, int64(1)).Return(int64(49), nil)
	recorder.On("Record", mock.Anything, user.ID, "meta-tags", int64(1), false).Return()

	toolErr := errors.New("vendor timeout")
	_, err := newGate(resolver, ledger, recorder).Charge(
		context.Background(), "sub_1", "meta-tags", 0,
		func(ctx context.Context) (any, error) { return nil, toolErr },
	)
	assert.ErrorIs(t, err, toolErr)
	recorder.AssertExpectations(t)
	ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
}

func TestCost_Table(t *testing.T) {
	cost, err := domain.Cost("keyword-research", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), cost, "per-unit cost clamps units to one")

	cost, err = domain.Cost("rank-tracker", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(8), cost)

	cost, err = domain.Cost("backlink-analysis", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cost, "flat tools ignore units")

	_, err = domain.Cost("unknown", 1)
	assert.ErrorIs(t, err, domain.ErrUnknownTool)
}
