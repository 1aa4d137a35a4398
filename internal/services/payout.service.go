package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/config"
	gateway "github.com/abdurrahmanaziz/eksporyuk-sub039/internal/gateways"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/repository"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/prom"
)

var (
	ErrBelowMinimum    = errors.New("amount is below the withdrawal minimum")
	ErrInvalidPIN      = errors.New("withdrawal pin is invalid")
	ErrPINNotSet       = errors.New("withdrawal pin is not set")
	ErrPayoutNotOpen   = errors.New("payout is not open for this transition")
	ErrUnknownDelivery = errors.New("disbursement references no known payout")
)

type PayoutWalletRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error)
	Debit(ctx context.Context, walletID, amount int64, entry *model.WalletEntry) error
	CreditRefund(ctx context.Context, walletID, amount int64, entry *model.WalletEntry) error
	MarkPayoutCompleted(ctx context.Context, walletID, amount int64, entry *model.WalletEntry) error
}

type PayoutStore interface {
	Create(ctx context.Context, p *model.Payout) (*model.Payout, error)
	GetByID(ctx context.Context, id int64) (*model.Payout, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Payout, error)
	MarkProcessing(ctx context.Context, id int64, disbursementID string, at time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id int64, reason string) (bool, error)
}

type PINSource interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type ConversionMarker interface {
	ListUnpaidOldest(ctx context.Context, affiliateID int64, limit int) ([]*model.AffiliateConversion, error)
	MarkConversionsPaid(ctx context.Context, ids []int64, at time.Time) (int64, error)
	FindByUserID(ctx context.Context, userID int64) (*model.AffiliateProfile, error)
}

type Disburser interface {
	CreateDisbursement(ctx context.Context, req gateway.DisbursementRequest) (*gateway.DisbursementResponse, error)
}

// PayoutService runs the withdrawal lifecycle: request (debit up
// front), approve (submit to the gateway), reconcile (webhook). The
// wallet is debited when the request is accepted; only a CANCELLED
// flip ever credits it back.
type PayoutService struct {
	payouts     PayoutStore
	wallets     PayoutWalletRepository
	users       PINSource
	conversions ConversionMarker
	disburser   Disburser
	events      EventPublisher
	tx          TxRunner
	settings    config.Settings
}

func NewPayoutService(
	payouts PayoutStore,
	wallets PayoutWalletRepository,
	users PINSource,
	conversions ConversionMarker,
	disburser Disburser,
	events EventPublisher,
	tx TxRunner,
	settings config.Settings,
) *PayoutService {
	return &PayoutService{
		payouts:     payouts,
		wallets:     wallets,
		users:       users,
		conversions: conversions,
		disburser:   disburser,
		events:      events,
		tx:          tx,
		settings:    settings,
	}
}

// RequestWithdrawal validates the PIN and amount, debits the wallet,
// and records a PENDING payout. Debit and payout row are one
// transaction: no payout ever exists without its matching debit.
func (s *PayoutService) RequestWithdrawal(ctx context.Context, userID int64, req model.WithdrawalRequest) (*model.Payout, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Amount < s.settings.WithdrawalMinAmount {
		return nil, fmt.Errorf("%w: minimum is %d", ErrBelowMinimum, s.settings.WithdrawalMinAmount)
	}
	if err := s.verifyPIN(ctx, userID, req.PIN); err != nil {
		return nil, err
	}

	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	fee := s.settings.WithdrawalFee
	payout := &model.Payout{
		WalletID:      wallet.ID,
		UserID:        userID,
		Amount:        req.Amount,
		Fee:           fee,
		NetAmount:     req.Amount - fee,
		Provider:      req.Provider,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		Status:        model.PayoutStatusPending,
		ExternalID:    uuid.NewString(),
	}
	if payout.NetAmount <= 0 {
		return nil, fmt.Errorf("%w: amount does not cover the fee", ErrBelowMinimum)
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		created, err := s.payouts.Create(ctx, payout)
		if err != nil {
			return fmt.Errorf("create payout: %w", err)
		}
		payout = created

		entry := &model.WalletEntry{
			Type:      model.WalletEntryWithdrawal,
			Amount:    -req.Amount,
			Reference: payout.ExternalID,
			PayoutID:  &payout.ID,
		}
		if err := s.wallets.Debit(ctx, wallet.ID, req.Amount, entry); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prom.IncCounter(prom.SystemPayout, prom.MetricPayoutsTotal, string(model.PayoutStatusPending))
	logger.Info("withdrawal requested",
		"payout_id", payout.ID,
		"user_id", userID,
		"amount", req.Amount,
		"net_amount", payout.NetAmount)

	// submit right away; a dead gateway leaves the payout PENDING and
	// the operator approval path picks it up later
	submitted, err := s.submit(ctx, payout)
	if err != nil {
		if errors.Is(err, gateway.ErrGatewayUnavailable) {
			logger.Warn("disbursement gateway unavailable, payout awaits approval",
				"payout_id", payout.ID, "error", err)
			return payout, nil
		}
		return nil, err
	}
	return submitted, nil
}

// Approve submits a PENDING payout to the disbursement gateway and
// flips it to PROCESSING. It is the retry path when submission at
// request time did not go through.
func (s *PayoutService) Approve(ctx context.Context, payoutID int64) (*model.Payout, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != model.PayoutStatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrPayoutNotOpen, payout.Status)
	}
	return s.submit(ctx, payout)
}

// submit hands the payout to the disbursement gateway. The gateway
// call runs outside any db transaction; the ExternalID makes retries
// safe. A rejection cancels and refunds immediately.
func (s *PayoutService) submit(ctx context.Context, payout *model.Payout) (*model.Payout, error) {
	resp, err := s.disburser.CreateDisbursement(ctx, gateway.DisbursementRequest{
		ExternalID:    payout.ExternalID,
		Amount:        payout.NetAmount,
		BankCode:      payout.Provider,
		AccountNumber: payout.AccountNumber,
		AccountName:   payout.AccountName,
		Description:   fmt.Sprintf("withdrawal payout %d", payout.ID),
	})
	if err != nil {
		if errors.Is(err, gateway.ErrGatewayRejected) {
			// the gateway will never pay this out; cancel and refund
			if cancelErr := s.cancelAndRefund(ctx, payout, err.Error()); cancelErr != nil {
				return nil, cancelErr
			}
			return s.payouts.GetByID(ctx, payout.ID)
		}
		// unavailable: payout stays PENDING, submission can be retried
		return nil, err
	}

	flipped, err := s.payouts.MarkProcessing(ctx, payout.ID, resp.ID, time.Now())
	if err != nil {
		return nil, err
	}
	if !flipped {
		// webhook already advanced it; report the current row
		return s.payouts.GetByID(ctx, payout.ID)
	}

	prom.IncCounter(prom.SystemPayout, prom.MetricPayoutsTotal, string(model.PayoutStatusProcessing))
	logger.Info("payout submitted",
		"payout_id", payout.ID,
		"disbursement_id", resp.ID,
		"net_amount", payout.NetAmount)
	return s.payouts.GetByID(ctx, payout.ID)
}

// Reject cancels a PENDING payout and refunds the wallet.
func (s *PayoutService) Reject(ctx context.Context, payoutID int64, reason string) (*model.Payout, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != model.PayoutStatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrPayoutNotOpen, payout.Status)
	}
	if err := s.cancelAndRefund(ctx, payout, reason); err != nil {
		return nil, err
	}
	return s.payouts.GetByID(ctx, payout.ID)
}

// HandleDisbursementEvent reconciles a gateway webhook. Replays and
// unknown transitions are no-ops: the conditional status flips decide
// whether anything happens.
func (s *PayoutService) HandleDisbursementEvent(ctx context.Context, event model.DisbursementEvent) error {
	payout, err := s.payouts.GetByExternalID(ctx, event.ExternalID)
	if err != nil {
		if errors.Is(err, repository.ErrPayoutNotFound) {
			prom.IncCounter(prom.SystemWebhook, prom.MetricWebhookDeliveriesTotal, "rejected")
			return fmt.Errorf("%w: %s", ErrUnknownDelivery, event.ExternalID)
		}
		return err
	}

	switch event.Status {
	case string(gateway.DisbursementStatusCompleted):
		flipped, err := s.payouts.MarkCompleted(ctx, payout.ID, time.Now())
		if err != nil {
			return err
		}
		if !flipped {
			prom.IncCounter(prom.SystemWebhook, prom.MetricWebhookDeliveriesTotal, "replayed")
			return nil
		}
		entry := &model.WalletEntry{
			Type:      model.WalletEntryPayoutCompleted,
			Amount:    0,
			Reference: payout.ExternalID,
			PayoutID:  &payout.ID,
		}
		if err := s.wallets.MarkPayoutCompleted(ctx, payout.WalletID, payout.Amount, entry); err != nil {
			return err
		}
		s.markConversionsPaid(ctx, payout.UserID, payout.Amount)
		prom.IncCounter(prom.SystemPayout, prom.MetricPayoutsTotal, string(model.PayoutStatusCompleted))
		prom.IncCounter(prom.SystemWebhook, prom.MetricWebhookDeliveriesTotal, "accepted")
		s.publish(ctx, &model.Event{
			Type:     model.EventPayoutCompleted,
			UserID:   payout.UserID,
			PayoutID: payout.ID,
			Amount:   payout.NetAmount,
		})
		logger.Info("payout completed", "payout_id", payout.ID, "disbursement_id", event.ID)
		return nil

	case string(gateway.DisbursementStatusFailed):
		if err := s.cancelAndRefund(ctx, payout, event.FailureReason); err != nil {
			if errors.Is(err, ErrPayoutNotOpen) {
				prom.IncCounter(prom.SystemWebhook, prom.MetricWebhookDeliveriesTotal, "replayed")
				return nil
			}
			return err
		}
		prom.IncCounter(prom.SystemWebhook, prom.MetricWebhookDeliveriesTotal, "accepted")
		s.publish(ctx, &model.Event{
			Type:     model.EventPayoutFailed,
			UserID:   payout.UserID,
			PayoutID: payout.ID,
			Amount:   payout.Amount,
		})
		return nil

	default:
		// PENDING and anything unrecognized carry no transition
		prom.IncCounter(prom.SystemWebhook, prom.MetricWebhookDeliveriesTotal, "replayed")
		return nil
	}
}

// cancelAndRefund flips the payout to CANCELLED and credits the gross
// amount back. The flip guards the refund: a payout refunds at most
// once no matter how many times the failure is reported.
func (s *PayoutService) cancelAndRefund(ctx context.Context, payout *model.Payout, reason string) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		flipped, err := s.payouts.MarkCancelled(ctx, payout.ID, reason)
		if err != nil {
			return err
		}
		if !flipped {
			return fmt.Errorf("%w: payout %d", ErrPayoutNotOpen, payout.ID)
		}
		entry := &model.WalletEntry{
			Type:      model.WalletEntryPayoutRefund,
			Amount:    payout.Amount,
			Reference: payout.ExternalID,
			PayoutID:  &payout.ID,
		}
		if err := s.wallets.CreditRefund(ctx, payout.WalletID, payout.Amount, entry); err != nil {
			return err
		}
		prom.IncCounter(prom.SystemPayout, prom.MetricPayoutsTotal, string(model.PayoutStatusCancelled))
		logger.Info("payout cancelled and refunded",
			"payout_id", payout.ID,
			"amount", payout.Amount,
			"reason", reason)
		return nil
	})
}

func (s *PayoutService) verifyPIN(ctx context.Context, userID int64, pin string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.WithdrawalPINHash == "" {
		return ErrPINNotSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.WithdrawalPINHash), []byte(pin)); err != nil {
		return ErrInvalidPIN
	}
	return nil
}

// markConversionsPaid flags the disbursed amount's worth of unpaid
// conversions, oldest first. Best effort bookkeeping: a failure here
// never rolls back the payout completion.
func (s *PayoutService) markConversionsPaid(ctx context.Context, userID, amount int64) {
	profile, err := s.conversions.FindByUserID(ctx, userID)
	if err != nil {
		// non-affiliates simply have no conversions to flag
		if !errors.Is(err, repository.ErrAffiliateNotFound) {
			logger.Warn("load affiliate profile for paid-out marking failed",
				"user_id", userID, "error", err)
		}
		return
	}

	unpaid, err := s.conversions.ListUnpaidOldest(ctx, profile.ID, 500)
	if err != nil {
		logger.Warn("list unpaid conversions failed", "affiliate_id", profile.ID, "error", err)
		return
	}

	var ids []int64
	var covered int64
	for _, conv := range unpaid {
		if covered >= amount {
			break
		}
		covered += conv.CommissionAmount
		ids = append(ids, conv.ID)
	}
	if len(ids) == 0 {
		return
	}
	if _, err := s.conversions.MarkConversionsPaid(ctx, ids, time.Now()); err != nil {
		logger.Warn("mark conversions paid failed", "affiliate_id", profile.ID, "error", err)
	}
}

func (s *PayoutService) publish(ctx context.Context, event *model.Event) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishJSON(ctx, event); err != nil {
		logger.Warn("event publish failed", "type", event.Type, "payout_id", event.PayoutID, "error", err)
	}
}
