package handlers

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/fasthttp/router"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/services"
	xhttp "github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/http"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/prom"
)

const callbackTokenHeader = "X-Callback-Token"

type DisbursementEventHandler interface {
	HandleDisbursementEvent(ctx context.Context, event model.DisbursementEvent) error
}

// WebhookHandler receives disbursement callbacks from the payout
// gateway. The gateway retries on any non-200, so accepted deliveries
// always answer 200 even when the transition was a replay.
type WebhookHandler struct {
	svc   DisbursementEventHandler
	token string
}

func NewWebhookHandler(svc DisbursementEventHandler, callbackToken string) *WebhookHandler {
	return &WebhookHandler{svc: svc, token: callbackToken}
}

func RegisterWebhookRoutes(e *router.Group, h *WebhookHandler) {
	e.POST("/webhooks/disbursement", h.HandleDisbursement)
}

func (h *WebhookHandler) HandleDisbursement(ctx *xhttp.RequestCtx) {
	if !h.verify(ctx) {
		prom.IncCounter(prom.SystemWebhook, prom.MetricWebhookDeliveriesTotal, "rejected")
		writeError(ctx, xhttp.StatusUnauthorized, "invalid callback token")
		return
	}

	var event model.DisbursementEvent
	if err := readJSON(ctx, &event); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if event.ExternalID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "external_id is required")
		return
	}

	if err := h.svc.HandleDisbursementEvent(ctx, event); err != nil {
		if errors.Is(err, services.ErrUnknownDelivery) {
			writeError(ctx, xhttp.StatusNotFound, err.Error())
			return
		}
		logger.Error("disbursement webhook failed",
			"external_id", event.ExternalID,
			"status", event.Status,
			"error", err)
		writeError(ctx, xhttp.StatusInternalServerError, "webhook processing failed")
		return
	}

	writeJSON(ctx, xhttp.StatusOK, map[string]bool{"success": true})
}

// verify compares the shared-secret header in constant time. With no
// token configured, verification is disabled.
func (h *WebhookHandler) verify(ctx *xhttp.RequestCtx) bool {
	if h.token == "" {
		return true
	}
	got := ctx.Request.Header.Peek(callbackTokenHeader)
	return subtle.ConstantTimeCompare(got, []byte(h.token)) == 1
}
