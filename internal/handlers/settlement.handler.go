package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/fasthttp/router"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/repository"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/services"
	xhttp "github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/http"
)

type SettlementService interface {
	Settle(ctx context.Context, req model.SettlementRequest) (*model.SettlementResult, error)
}

type AffiliateClickService interface {
	TrackClick(ctx context.Context, code string) error
}

type SettlementHandler struct {
	svc    SettlementService
	clicks AffiliateClickService
}

func NewSettlementHandler(svc SettlementService, clicks AffiliateClickService) *SettlementHandler {
	return &SettlementHandler{svc: svc, clicks: clicks}
}

func RegisterSettlementRoutes(e *router.Group, h *SettlementHandler) {
	e.POST("/settlements", h.CreateSettlement)
	e.POST("/affiliates/{code}/clicks", h.TrackClick)
}

type settlementRequest struct {
	TransactionID int64  `json:"transaction_id"`
	Reference     string `json:"reference"`
	Type          string `json:"type"`
	MembershipID  int64  `json:"membership_id"`
	ProductID     int64  `json:"product_id"`
	EventID       int64  `json:"event_id"`
	AffiliateCode string `json:"affiliate_code"`
	CouponID      *int64 `json:"coupon_id"`
}

type settlementResponse struct {
	Success     bool                    `json:"success"`
	Replayed    bool                    `json:"replayed"`
	Transaction *model.Transaction      `json:"transaction"`
	Activation  *model.ActivationResult `json:"activation,omitempty"`
	Warnings    []model.Warning         `json:"warnings,omitempty"`
}

func (h *SettlementHandler) CreateSettlement(ctx *xhttp.RequestCtx) {
	var req settlementRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	payload, err := req.payload()
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	settlement := model.SettlementRequest{
		TransactionID: req.TransactionID,
		Reference:     req.Reference,
		Payload:       payload,
	}
	if err := settlement.Validate(); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Settle(ctx, settlement)
	if err != nil {
		writeSettlementError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusOK, settlementResponse{
		Success:     true,
		Replayed:    result.Replayed,
		Transaction: result.Transaction,
		Activation:  result.Activation,
		Warnings:    result.Warnings,
	})
}

func (h *SettlementHandler) TrackClick(ctx *xhttp.RequestCtx) {
	code, _ := ctx.UserValue("code").(string)
	if code == "" {
		writeError(ctx, xhttp.StatusBadRequest, "affiliate code is required")
		return
	}
	if err := h.clicks.TrackClick(ctx, code); err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, "click tracking failed")
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]bool{"success": true})
}

func (r settlementRequest) payload() (model.CheckoutPayload, error) {
	switch model.TransactionType(r.Type) {
	case model.TransactionTypeMembership, model.TransactionTypeSupplierMembership:
		if r.MembershipID == 0 {
			return nil, errors.New("membership_id is required")
		}
		return model.MembershipCheckout{
			MembershipID:  r.MembershipID,
			AffiliateCode: r.AffiliateCode,
			CouponID:      r.CouponID,
		}, nil
	case model.TransactionTypeProduct:
		if r.ProductID == 0 {
			return nil, errors.New("product_id is required")
		}
		return model.ProductCheckout{
			ProductID:     r.ProductID,
			AffiliateCode: r.AffiliateCode,
		}, nil
	case model.TransactionTypeEvent:
		if r.EventID == 0 {
			return nil, errors.New("event_id is required")
		}
		return model.EventCheckout{EventID: r.EventID}, nil
	default:
		return nil, errors.New("unknown transaction type: " + r.Type)
	}
}

func writeSettlementError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, repository.ErrTransactionNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrSettlementInProgress):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	case errors.Is(err, services.ErrTransactionCancelled),
		errors.Is(err, services.ErrPayloadMismatch):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	default:
		writeError(ctx, xhttp.StatusInternalServerError, "settlement failed")
	}
}

/* ------------------------------ Shared helpers ------------------------------ */

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	return json.Unmarshal(ctx.PostBody(), dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func headerInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	return strconv.ParseInt(string(ctx.Request.Header.Peek(name)), 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}
