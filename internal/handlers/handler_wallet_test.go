package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/shopkosh/coin_wallet_service/internal/apperrors"
	"github.com/shopkosh/coin_wallet_service/internal/core/domain"
	portssvc "github.com/shopkosh/coin_wallet_service/internal/core/ports/services"
	"github.com/shopkosh/coin_wallet_service/internal/dto"
	"github.com/shopkosh/coin_wallet_service/internal/handlers"
	"github.com/shopkosh/coin_wallet_service/internal/platform/config"
)

// --- Mock WalletService ---
type MockWalletService struct {
	mock.Mock
}

var _ portssvc.WalletSvcFacade = (*MockWalletService)(nil)

func (m *MockWalletService) EarnCoins(ctx context.Context, customerID, orderID string, amountMinor int64, expiresAt time.Time, metadata map[string]string) (*domain.MutationResult, error) {
	args := m.Called(ctx, customerID, orderID, amountMinor, expiresAt, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MutationResult), args.Error(1)
}

func (m *MockWalletService) SpendCoins(ctx context.Context, customerID, orderID string, amountMinor int64, idempotencyKey *string, metadata map[string]string) (*domain.MutationResult, error) {
	args := m.Called(ctx, customerID, orderID, amountMinor, idempotencyKey, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MutationResult), args.Error(1)
}

func (m *MockWalletService) ReverseEarned(ctx context.Context, orderID, reason string) (*domain.ReversalResult, error) {
	args := m.Called(ctx, orderID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReversalResult), args.Error(1)
}

func (m *MockWalletService) ExpireEarnedCoins(ctx context.Context, limit int) ([]domain.ExpiryCandidate, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExpiryCandidate), args.Error(1)
}

func (m *MockWalletService) ApplyExpiry(ctx context.Context, entryID, customerID string) (*domain.MutationResult, error) {
	args := m.Called(ctx, entryID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MutationResult), args.Error(1)
}

func (m *MockWalletService) CreditAdjustment(ctx context.Context, customerID, referenceID string, idempotencyKey *string, amountMinor int64, reason string, metadata map[string]string) (*domain.MutationResult, error) {
	args := m.Called(ctx, customerID, referenceID, idempotencyKey, amountMinor, reason, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MutationResult), args.Error(1)
}

func (m *MockWalletService) GetWalletSnapshot(ctx context.Context, customerID string) (*domain.WalletSnapshot, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WalletSnapshot), args.Error(1)
}

// --- Test Suite ---
type WalletHandlerTestSuite struct {
	suite.Suite
	router            *gin.Engine
	mockWalletService *MockWalletService
	jwtSecret         string
	serviceKey        string
	cronSecret        string
	customerID        string
}

// generateTestToken creates a dummy JWT for testing.
func (suite *WalletHandlerTestSuite) generateTestToken(customerID string) string {
	claims := jwt.RegisteredClaims{
		Issuer:    "wallet-test",
		Subject:   customerID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedString, err := token.SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signedString
}

func (suite *WalletHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"
	suite.serviceKey = "test-service-key"
	suite.cronSecret = "test-cron-secret"
	suite.customerID = "cust-123"

	suite.mockWalletService = new(MockWalletService)

	cfg := &config.Config{
		JWTSecret:      suite.jwtSecret,
		ServiceAPIKey:  suite.serviceKey,
		CronSecret:     suite.cronSecret,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	services := &portssvc.ServiceContainer{Wallet: suite.mockWalletService}
	handlers.RegisterRoutes(suite.router, cfg, services, nil)
}

func (suite *WalletHandlerTestSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *WalletHandlerTestSuite) jsonRequest(method, path string, body any) *http.Request {
	payload, err := json.Marshal(body)
	suite.Require().NoError(err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func appliedResult(actualMinor int64) *domain.MutationResult {
	return &domain.MutationResult{Applied: true, Balance: domain.ProjectBalance(actualMinor)}
}

// --- Test Cases ---

func (suite *WalletHandlerTestSuite) TestEarnCoinsConvertsMajorToMinor() {
	expiry := time.Now().UTC().Add(90 * 24 * time.Hour).Truncate(time.Second)
	suite.mockWalletService.
		On("EarnCoins", mock.Anything, suite.customerID, "order-1", int64(50000), mock.AnythingOfType("time.Time"), mock.Anything).
		Return(appliedResult(50000), nil).Once()

	req := suite.jsonRequest(http.MethodPost, "/api/v1/wallet/earn", dto.EarnCoinsRequest{
		CustomerID: suite.customerID,
		OrderID:    "order-1",
		Amount:     decimal.NewFromInt(500),
		ExpiryDate: expiry,
	})
	req.Header.Set("X-Service-Key", suite.serviceKey)
	w := suite.serve(req)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.EarnCoinsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Success)
	suite.True(resp.CoinsEarned.Equal(decimal.NewFromInt(500)))
	suite.True(resp.NewActualBalance.Equal(decimal.NewFromInt(500)))
	suite.mockWalletService.AssertExpectations(suite.T())
}

func (suite *WalletHandlerTestSuite) TestEarnCoinsRejectsSubMinorPrecision() {
	req := suite.jsonRequest(http.MethodPost, "/api/v1/wallet/earn", map[string]any{
		"customer_id": suite.customerID,
		"order_id":    "order-1",
		"amount":      "10.005",
		"expiry_date": time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
	})
	req.Header.Set("X-Service-Key", suite.serviceKey)
	w := suite.serve(req)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockWalletService.AssertNotCalled(suite.T(), "EarnCoins")
}

func (suite *WalletHandlerTestSuite) TestEarnCoinsRequiresServiceKey() {
	req := suite.jsonRequest(http.MethodPost, "/api/v1/wallet/earn", dto.EarnCoinsRequest{})
	w := suite.serve(req)
	suite.Equal(http.StatusUnauthorized, w.Code)

	req = suite.jsonRequest(http.MethodPost, "/api/v1/wallet/earn", dto.EarnCoinsRequest{})
	req.Header.Set("X-Service-Key", "wrong-key")
	w = suite.serve(req)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockWalletService.AssertNotCalled(suite.T(), "EarnCoins")
}

func (suite *WalletHandlerTestSuite) TestSpendCoinsUsesAuthenticatedCustomer() {
	key := "checkout-1"
	suite.mockWalletService.
		On("SpendCoins", mock.Anything, suite.customerID, "order-2", int64(30000), &key, mock.Anything).
		Return(appliedResult(20000), nil).Once()

	req := suite.jsonRequest(http.MethodPost, "/api/v1/wallet/spend", dto.SpendCoinsRequest{
		OrderID:        "order-2",
		Amount:         decimal.NewFromInt(300),
		IdempotencyKey: &key,
	})
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(suite.customerID))
	w := suite.serve(req)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.SpendCoinsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Success)
	suite.True(resp.CoinsRedeemed.Equal(decimal.NewFromInt(300)))
	suite.True(resp.DiscountAmount.Equal(decimal.NewFromInt(300)))
	suite.True(resp.NewActualBalance.Equal(decimal.NewFromInt(200)))
	suite.mockWalletService.AssertExpectations(suite.T())
}

func (suite *WalletHandlerTestSuite) TestSpendCoinsRequiresJWT() {
	req := suite.jsonRequest(http.MethodPost, "/api/v1/wallet/spend", dto.SpendCoinsRequest{
		OrderID: "order-2",
		Amount:  decimal.NewFromInt(300),
	})
	w := suite.serve(req)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockWalletService.AssertNotCalled(suite.T(), "SpendCoins")
}

func (suite *WalletHandlerTestSuite) TestSpendCoinsInsufficientBalanceIs422() {
	suite.mockWalletService.
		On("SpendCoins", mock.Anything, suite.customerID, "order-2", int64(30000), (*string)(nil), mock.Anything).
		Return(nil, apperrors.ErrInsufficientBalance).Once()

	req := suite.jsonRequest(http.MethodPost, "/api/v1/wallet/spend", dto.SpendCoinsRequest{
		OrderID: "order-2",
		Amount:  decimal.NewFromInt(300),
	})
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(suite.customerID))
	w := suite.serve(req)

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	var resp map[string]string
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("INSUFFICIENT_BALANCE", resp["code"])
}

func (suite *WalletHandlerTestSuite) TestSpendCoinsNegativeBalanceIs422() {
	suite.mockWalletService.
		On("SpendCoins", mock.Anything, suite.customerID, "order-2", int64(5000), (*string)(nil), mock.Anything).
		Return(nil, apperrors.ErrNegativeBalance).Once()

	req := suite.jsonRequest(http.MethodPost, "/api/v1/wallet/spend", dto.SpendCoinsRequest{
		OrderID: "order-2",
		Amount:  decimal.NewFromInt(50),
	})
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(suite.customerID))
	w := suite.serve(req)

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	var resp map[string]string
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("NEGATIVE_BALANCE", resp["code"])
}

func (suite *WalletHandlerTestSuite) TestSpendCoinsLockTimeoutIs503() {
	suite.mockWalletService.
		On("SpendCoins", mock.Anything, suite.customerID, "order-2", int64(5000), (*string)(nil), mock.Anything).
		Return(nil, apperrors.ErrLockTimeout).Once()

	req := suite.jsonRequest(http.MethodPost, "/api/v1/wallet/spend", dto.SpendCoinsRequest{
		OrderID: "order-2",
		Amount:  decimal.NewFromInt(50),
	})
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(suite.customerID))
	w := suite.serve(req)

	suite.Equal(http.StatusServiceUnavailable, w.Code)
}

func (suite *WalletHandlerTestSuite) TestReverseEarnedReportsNoop() {
	suite.mockWalletService.
		On("ReverseEarned", mock.Anything, "order-unknown", "order_cancelled").
		Return(&domain.ReversalResult{Applied: false}, nil).Once()

	req := suite.jsonRequest(http.MethodPost, "/api/v1/wallet/reverse", dto.ReverseEarnedRequest{
		OrderID: "order-unknown",
		Reason:  "order_cancelled",
	})
	req.Header.Set("X-Service-Key", suite.serviceKey)
	w := suite.serve(req)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ReverseEarnedResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Success)
	suite.False(resp.Reversed)
}

func (suite *WalletHandlerTestSuite) TestGetWalletSnapshotShape() {
	createdAt := time.Now().UTC().Truncate(time.Second)
	status := domain.EarnActive
	suite.mockWalletService.
		On("GetWalletSnapshot", mock.Anything, suite.customerID).
		Return(&domain.WalletSnapshot{
			Balance: domain.ProjectBalance(-30000),
			Transactions: []domain.WalletEntry{
				{
					EntryID:     "entry-1",
					CustomerID:  suite.customerID,
					EntryType:   domain.EntryEarn,
					AmountMinor: 50000,
					ReferenceID: "order-1",
					CreatedAt:   createdAt,
					Status:      &status,
				},
			},
		}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(suite.customerID))
	w := suite.serve(req)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.WalletSnapshotResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))

	suite.True(resp.Balance.Equal(decimal.Zero))
	suite.True(resp.DisplayBalance.Equal(decimal.Zero))
	suite.True(resp.ActualBalance.Equal(decimal.NewFromInt(-300)))
	suite.True(resp.PendingAdjustment.Equal(decimal.NewFromInt(300)))
	suite.NotEmpty(resp.AdjustmentMessage)
	suite.False(resp.CanRedeem)
	suite.Require().Len(resp.Transactions, 1)
	suite.Equal("EARN", resp.Transactions[0].Type)
	suite.True(resp.Transactions[0].Amount.Equal(decimal.NewFromInt(500)))
}

func (suite *WalletHandlerTestSuite) TestRunExpiryCountsOutcomes() {
	candidates := []domain.ExpiryCandidate{
		{EntryID: "entry-1", CustomerID: "cust-1", RemainingMinor: 100},
		{EntryID: "entry-2", CustomerID: "cust-2", RemainingMinor: 0},
	}
	suite.mockWalletService.On("ExpireEarnedCoins", mock.Anything, 0).Return(candidates, nil).Once()
	suite.mockWalletService.On("ApplyExpiry", mock.Anything, "entry-1", "cust-1").Return(appliedResult(0), nil).Once()
	suite.mockWalletService.On("ApplyExpiry", mock.Anything, "entry-2", "cust-2").
		Return(&domain.MutationResult{Applied: false}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/internal/cron/expire-coins", nil)
	req.Header.Set("X-Cron-Secret", suite.cronSecret)
	w := suite.serve(req)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ExpiryRunResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Success)
	suite.Equal(2, resp.Scanned)
	suite.Equal(1, resp.Expired)
	suite.Equal(1, resp.Skipped)
	suite.mockWalletService.AssertExpectations(suite.T())
}

func (suite *WalletHandlerTestSuite) TestRunExpiryRequiresCronSecret() {
	req := httptest.NewRequest(http.MethodPost, "/internal/cron/expire-coins", nil)
	w := suite.serve(req)
	suite.Equal(http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/internal/cron/expire-coins", nil)
	req.Header.Set("X-Cron-Secret", "wrong-secret")
	w = suite.serve(req)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockWalletService.AssertNotCalled(suite.T(), "ExpireEarnedCoins")
}

func (suite *WalletHandlerTestSuite) TestCreditAdjustmentResponseShape() {
	suite.mockWalletService.
		On("CreditAdjustment", mock.Anything, suite.customerID, "order-2", (*string)(nil), int64(30000), "order_item_returned", mock.Anything).
		Return(appliedResult(0), nil).Once()

	req := suite.jsonRequest(http.MethodPost, "/api/v1/wallet/adjustments", dto.CreditAdjustmentRequest{
		CustomerID:  suite.customerID,
		ReferenceID: "order-2",
		Amount:      decimal.NewFromInt(300),
		Reason:      "order_item_returned",
	})
	req.Header.Set("X-Service-Key", suite.serviceKey)
	w := suite.serve(req)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.AdjustmentResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Success)
	suite.True(resp.Applied)
	suite.True(resp.NewActualBalance.Equal(decimal.Zero))
	suite.mockWalletService.AssertExpectations(suite.T())
}

func TestWalletHandler(t *testing.T) {
	suite.Run(t, new(WalletHandlerTestSuite))
}
