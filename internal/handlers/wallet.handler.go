package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/fasthttp/router"

	gateway "github.com/abdurrahmanaziz/eksporyuk-sub039/internal/gateways"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/repository"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/services"
	xhttp "github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/http"
)

// userIDHeader carries the authenticated user, stamped by the edge
// proxy in front of this service.
const userIDHeader = "X-User-ID"

type WalletService interface {
	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	Statement(ctx context.Context, userID int64, limit, offset int) (*model.Wallet, []*model.WalletEntry, error)
}

type PayoutService interface {
	RequestWithdrawal(ctx context.Context, userID int64, req model.WithdrawalRequest) (*model.Payout, error)
	Approve(ctx context.Context, payoutID int64) (*model.Payout, error)
	Reject(ctx context.Context, payoutID int64, reason string) (*model.Payout, error)
}

type WalletHandler struct {
	wallets WalletService
	payouts PayoutService
}

func NewWalletHandler(wallets WalletService, payouts PayoutService) *WalletHandler {
	return &WalletHandler{wallets: wallets, payouts: payouts}
}

func RegisterWalletRoutes(e *router.Group, h *WalletHandler) {
	e.GET("/wallet", h.GetWallet)
	e.GET("/wallet/entries", h.ListEntries)
	e.POST("/wallet/withdrawals", h.RequestWithdrawal)
	e.POST("/payouts/{id}/approve", h.ApprovePayout)
	e.POST("/payouts/{id}/reject", h.RejectPayout)
}

type statementResponse struct {
	Wallet  *model.Wallet        `json:"wallet"`
	Entries []*model.WalletEntry `json:"entries"`
}

type payoutResponse struct {
	Payout *model.Payout `json:"payout"`
}

func (h *WalletHandler) GetWallet(ctx *xhttp.RequestCtx) {
	userID, err := headerInt64(ctx, userIDHeader)
	if err != nil {
		writeError(ctx, xhttp.StatusUnauthorized, "missing user identity")
		return
	}
	wallet, err := h.wallets.GetWallet(ctx, userID)
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, "wallet lookup failed")
		return
	}
	writeJSON(ctx, xhttp.StatusOK, wallet)
}

func (h *WalletHandler) ListEntries(ctx *xhttp.RequestCtx) {
	userID, err := headerInt64(ctx, userIDHeader)
	if err != nil {
		writeError(ctx, xhttp.StatusUnauthorized, "missing user identity")
		return
	}

	limit, _ := strconv.Atoi(query(ctx, "limit"))
	offset, _ := strconv.Atoi(query(ctx, "offset"))

	wallet, entries, err := h.wallets.Statement(ctx, userID, limit, offset)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			writeError(ctx, xhttp.StatusNotFound, err.Error())
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, "statement lookup failed")
		return
	}
	writeJSON(ctx, xhttp.StatusOK, statementResponse{Wallet: wallet, Entries: entries})
}

func (h *WalletHandler) RequestWithdrawal(ctx *xhttp.RequestCtx) {
	userID, err := headerInt64(ctx, userIDHeader)
	if err != nil {
		writeError(ctx, xhttp.StatusUnauthorized, "missing user identity")
		return
	}

	var req model.WithdrawalRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	payout, err := h.payouts.RequestWithdrawal(ctx, userID, req)
	if err != nil {
		writeWithdrawalError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, payoutResponse{Payout: payout})
}

func (h *WalletHandler) ApprovePayout(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid payout id")
		return
	}
	payout, err := h.payouts.Approve(ctx, id)
	if err != nil {
		writePayoutTransitionError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, payoutResponse{Payout: payout})
}

func (h *WalletHandler) RejectPayout(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid payout id")
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = readJSON(ctx, &body)
	if body.Reason == "" {
		body.Reason = "rejected by operator"
	}

	payout, err := h.payouts.Reject(ctx, id, body.Reason)
	if err != nil {
		writePayoutTransitionError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, payoutResponse{Payout: payout})
}

func writeWithdrawalError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidPIN),
		errors.Is(err, services.ErrPINNotSet):
		writeError(ctx, xhttp.StatusUnauthorized, err.Error())
	case errors.Is(err, repository.ErrInsufficientBalance),
		errors.Is(err, services.ErrBelowMinimum):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrWalletNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	default:
		writeError(ctx, xhttp.StatusInternalServerError, "withdrawal request failed")
	}
}

func writePayoutTransitionError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, repository.ErrPayoutNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrPayoutNotOpen):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		writeError(ctx, xhttp.StatusInternalServerError, "disbursement gateway unavailable, retry later")
	default:
		writeError(ctx, xhttp.StatusInternalServerError, "payout transition failed")
	}
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	raw, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(raw, 10, 64)
}
