package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopkosh/coin_wallet_service/internal/apperrors"
	portssvc "github.com/shopkosh/coin_wallet_service/internal/core/ports/services"
	"github.com/shopkosh/coin_wallet_service/internal/dto"
	"github.com/shopkosh/coin_wallet_service/internal/middleware"
	"github.com/shopkosh/coin_wallet_service/internal/utils/money"
)

// WalletHandler exposes the coin wallet ledger operations. All monetary
// values cross this boundary in major units; the ledger below only ever
// sees minor-unit integers.
type WalletHandler struct {
	walletService portssvc.WalletSvcFacade
}

func NewWalletHandler(walletService portssvc.WalletSvcFacade) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// EarnCoins godoc
// @Summary Credit coins for a completed order
// @Description Creates an EARN grant for the order. Calling again for the same order is a no-op.
// @Tags wallet
// @Accept  json
// @Produce  json
// @Param   request body dto.EarnCoinsRequest true "Earn request"
// @Success 200 {object} dto.EarnCoinsResponse
// @Failure 400 {object} map[string]string
// @Router /wallet/earn [post]
func (h *WalletHandler) EarnCoins(c *gin.Context) {
	var req dto.EarnCoinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amountMinor, err := money.ToMinor(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.walletService.EarnCoins(c.Request.Context(), req.CustomerID, req.OrderID, amountMinor, req.ExpiryDate.UTC(), req.Metadata)
	if err != nil {
		respondWalletError(c, err)
		return
	}

	coinsEarned := req.Amount
	if !result.Applied {
		coinsEarned = money.ToMajor(0)
	}
	c.JSON(http.StatusOK, dto.EarnCoinsResponse{
		Success:          true,
		CoinsEarned:      coinsEarned,
		NewActualBalance: money.ToMajor(result.Balance.ActualMinor),
		ExpiryDate:       req.ExpiryDate.UTC(),
	})
}

// SpendCoins godoc
// @Summary Redeem coins at checkout
// @Description Spends coins against the authenticated customer's balance. Retries with the same idempotency key are safe.
// @Tags wallet
// @Accept  json
// @Produce  json
// @Param   request body dto.SpendCoinsRequest true "Spend request"
// @Success 200 {object} dto.SpendCoinsResponse
// @Failure 422 {object} map[string]string
// @Router /wallet/spend [post]
func (h *WalletHandler) SpendCoins(c *gin.Context) {
	customerID, ok := middleware.GetCustomerIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Customer identity missing"})
		return
	}
	var req dto.SpendCoinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amountMinor, err := money.ToMinor(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.walletService.SpendCoins(c.Request.Context(), customerID, req.OrderID, amountMinor, req.IdempotencyKey, req.Metadata)
	if err != nil {
		respondWalletError(c, err)
		return
	}

	redeemed := req.Amount
	if !result.Applied {
		// Duplicate idempotency key: the spend was already applied once.
		redeemed = money.ToMajor(0)
	}
	c.JSON(http.StatusOK, dto.SpendCoinsResponse{
		Success:          true,
		CoinsRedeemed:    redeemed,
		DiscountAmount:   req.Amount,
		NewActualBalance: money.ToMajor(result.Balance.ActualMinor),
	})
}

// ReverseEarned godoc
// @Summary Reverse the coins granted for a cancelled or refunded order
// @Description Claws back the full original grant. Safe to call from both cancellation and refund hooks.
// @Tags wallet
// @Accept  json
// @Produce  json
// @Param   request body dto.ReverseEarnedRequest true "Reverse request"
// @Success 200 {object} dto.ReverseEarnedResponse
// @Router /wallet/reverse [post]
func (h *WalletHandler) ReverseEarned(c *gin.Context) {
	var req dto.ReverseEarnedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.walletService.ReverseEarned(c.Request.Context(), req.OrderID, req.Reason)
	if err != nil {
		respondWalletError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ReverseEarnedResponse{
		Success:          true,
		Reversed:         result.Applied,
		Amount:           money.ToMajor(result.AmountMinor),
		NewActualBalance: money.ToMajor(result.Balance.ActualMinor),
		CustomerID:       result.CustomerID,
	})
}

// CreditAdjustment godoc
// @Summary Credit back a coin-funded discount undone by a return
// @Tags wallet
// @Accept  json
// @Produce  json
// @Param   request body dto.CreditAdjustmentRequest true "Adjustment request"
// @Success 200 {object} dto.AdjustmentResponse
// @Router /wallet/adjustments [post]
func (h *WalletHandler) CreditAdjustment(c *gin.Context) {
	var req dto.CreditAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amountMinor, err := money.ToMinor(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.walletService.CreditAdjustment(c.Request.Context(), req.CustomerID, req.ReferenceID, req.IdempotencyKey, amountMinor, req.Reason, req.Metadata)
	if err != nil {
		respondWalletError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AdjustmentResponse{
		Success:          true,
		Applied:          result.Applied,
		NewActualBalance: money.ToMajor(result.Balance.ActualMinor),
	})
}

// GetWalletSnapshot godoc
// @Summary Get the authenticated customer's wallet balances and history
// @Tags wallet
// @Produce  json
// @Success 200 {object} dto.WalletSnapshotResponse
// @Router /wallet [get]
func (h *WalletHandler) GetWalletSnapshot(c *gin.Context) {
	customerID, ok := middleware.GetCustomerIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Customer identity missing"})
		return
	}

	snapshot, err := h.walletService.GetWalletSnapshot(c.Request.Context(), customerID)
	if err != nil {
		respondWalletError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWalletSnapshotResponse(snapshot))
}

// RunExpiry godoc
// @Summary Expire stale earn grants
// @Description Scans for ACTIVE grants past their expiry date and finalizes each one under its customer's lock. Invoked by the daily cron.
// @Tags wallet
// @Produce  json
// @Param   limit query int false "Maximum grants to process"
// @Success 200 {object} dto.ExpiryRunResponse
// @Router /internal/cron/expire-coins [post]
func (h *WalletHandler) RunExpiry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	candidates, err := h.walletService.ExpireEarnedCoins(c.Request.Context(), limit)
	if err != nil {
		respondWalletError(c, err)
		return
	}

	resp := dto.ExpiryRunResponse{Success: true, Scanned: len(candidates)}
	for _, candidate := range candidates {
		result, err := h.walletService.ApplyExpiry(c.Request.Context(), candidate.EntryID, candidate.CustomerID)
		if err != nil {
			// One failed grant must not abort the batch; the next run
			// picks it up again.
			logger.Error("Failed to apply expiry",
				slog.String("entry_id", candidate.EntryID),
				slog.String("customer_id", candidate.CustomerID),
				slog.String("error", err.Error()))
			resp.Skipped++
			continue
		}
		if result.Applied {
			resp.Expired++
		} else {
			resp.Skipped++
		}
	}

	c.JSON(http.StatusOK, resp)
}

// respondWalletError maps service errors onto HTTP statuses. Balance-rule
// violations are expected business outcomes surfaced with a stable code, not
// server errors.
func respondWalletError(c *gin.Context, err error) {
	code := apperrors.Code(err)
	switch {
	case errors.Is(err, apperrors.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "You don't have enough coins for this redemption.", "code": code})
	case errors.Is(err, apperrors.ErrNegativeBalance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Coin redemption is temporarily unavailable until a pending adjustment is settled.", "code": code})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": code})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": code})
	case errors.Is(err, apperrors.ErrLockTimeout):
		// Retryable: the caller should repeat the request with the same
		// idempotency key.
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "The wallet is busy, please retry.", "code": code})
	default:
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Wallet operation failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
