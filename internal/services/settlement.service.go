package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/prom"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/redis"
)

var (
	ErrSettlementInProgress = errors.New("settlement already in progress")
	ErrTransactionCancelled = errors.New("transaction is cancelled")
	ErrPayloadMismatch      = errors.New("payload does not match transaction type")
)

const settlementLockTTL = 30 * time.Second

type SettlementTransactionRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
	GetByReference(ctx context.Context, ref string) (*model.Transaction, error)
	MarkSuccess(ctx context.Context, id int64, paidAt time.Time) (bool, error)
	SetAffiliate(ctx context.Context, id, affiliateID int64) error
}

type AffiliateResolver interface {
	Resolve(ctx context.Context, code string) (*model.AffiliateIdentity, error)
}

type CommissionDistributor interface {
	Distribute(ctx context.Context, txn *model.Transaction, affiliate *model.AffiliateIdentity, rule model.CommissionRule) (*model.DistributionResult, error)
}

type EntitlementActivator interface {
	ActivateMembership(ctx context.Context, txn *model.Transaction, membershipID int64) (*model.ActivationResult, error)
	ActivateProduct(ctx context.Context, txn *model.Transaction, productID int64) (*model.ActivationResult, error)
}

type MembershipRuleSource interface {
	GetByID(ctx context.Context, id int64) (*model.Membership, error)
}

type AffiliateRuleSource interface {
	FindByID(ctx context.Context, id int64) (*model.AffiliateProfile, error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, v any) (string, error)
}

// SettlementService orchestrates payment confirmation: status flip,
// commission distribution, entitlement activation, notification. The
// conditional status flip is the idempotency authority; the redis
// lock is only a fast path against concurrent duplicates.
type SettlementService struct {
	transactions SettlementTransactionRepository
	memberships  MembershipRuleSource
	affiliates   AffiliateResolver
	profiles     AffiliateRuleSource
	commissions  CommissionDistributor
	entitlements EntitlementActivator
	events       EventPublisher
	locks        redis.Adapter
}

func NewSettlementService(
	transactions SettlementTransactionRepository,
	memberships MembershipRuleSource,
	affiliates AffiliateResolver,
	profiles AffiliateRuleSource,
	commissions CommissionDistributor,
	entitlements EntitlementActivator,
	events EventPublisher,
	locks redis.Adapter,
) *SettlementService {
	return &SettlementService{
		transactions: transactions,
		memberships:  memberships,
		affiliates:   affiliates,
		profiles:     profiles,
		commissions:  commissions,
		entitlements: entitlements,
		events:       events,
		locks:        locks,
	}
}

// Settle confirms payment for one transaction. Replays return the
// recorded outcome without side effects; concurrent duplicates get
// ErrSettlementInProgress.
func (s *SettlementService) Settle(ctx context.Context, req model.SettlementRequest) (*model.SettlementResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	txn, err := s.lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	if txn.Status == model.TransactionStatusCancelled {
		return nil, ErrTransactionCancelled
	}
	if err := s.checkPayload(txn, req.Payload); err != nil {
		return nil, err
	}

	if s.locks != nil {
		lockKey := fmt.Sprintf("settlement:lock:%d", txn.ID)
		ok, err := s.locks.SetNX(lockKey, []byte("1"), settlementLockTTL)
		if err != nil {
			logger.Warn("settlement lock unavailable, relying on db guard", "transaction_id", txn.ID, "error", err)
		} else if !ok {
			return nil, ErrSettlementInProgress
		}
		defer s.locks.Del(lockKey) //nolint
	}

	start := time.Now()
	result, err := s.settle(ctx, txn, req.Payload)
	if err != nil {
		prom.IncCounter(prom.SystemSettlement, prom.MetricSettlementsTotal, "failed")
		return nil, err
	}

	outcome := "settled"
	if result.Replayed {
		outcome = "replayed"
	}
	prom.IncCounter(prom.SystemSettlement, prom.MetricSettlementsTotal, outcome)
	prom.ObserveHistogram(prom.SystemSettlement, prom.MetricSettlementDuration, time.Since(start).Seconds(), string(txn.Type))
	return result, nil
}

func (s *SettlementService) settle(ctx context.Context, txn *model.Transaction, payload model.CheckoutPayload) (*model.SettlementResult, error) {
	affiliate, err := s.attribution(ctx, txn, payload)
	if err != nil {
		return nil, err
	}

	flipped, err := s.transactions.MarkSuccess(ctx, txn.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("mark transaction success: %w", err)
	}
	result := &model.SettlementResult{Transaction: txn}
	if !flipped {
		// already settled; distribution replays from its own guards
		settled, err := s.transactions.GetByID(ctx, txn.ID)
		if err == nil {
			result.Transaction = settled
		}
		result.Replayed = true
	} else {
		now := time.Now()
		txn.Status = model.TransactionStatusSuccess
		txn.PaidAt = &now
	}

	// the payment is recorded once the status flips; commission trouble
	// downgrades to a warning so entitlements and notification still run
	if rule, err := s.commissionRule(ctx, txn, affiliate); err != nil {
		result.Warn("commission", err)
		logger.Error("commission rule resolution failed, settlement recorded",
			"transaction_id", txn.ID, "error", err)
	} else if distribution, err := s.commissions.Distribute(ctx, result.Transaction, affiliate, rule); err != nil {
		result.Warn("commission", err)
		logger.Error("commission distribution failed, settlement recorded",
			"transaction_id", txn.ID,
			"config_fatal", errors.Is(err, ErrCommissionConfig),
			"error", err)
	} else {
		result.Distribution = distribution
	}

	// activation re-runs on replay too: grants are idempotent, and a
	// crash between the status flip and the cascade must be resumable
	activation, err := s.activate(ctx, result.Transaction, payload)
	if err != nil {
		result.Warn("entitlement", err)
		logger.Error("entitlement activation failed, settlement recorded",
			"transaction_id", txn.ID, "error", err)
	} else {
		result.Activation = activation
	}

	if !result.Replayed {
		s.publish(ctx, &model.Event{
			Type:          model.EventPaymentConfirmed,
			UserID:        txn.UserID,
			TransactionID: txn.ID,
			Amount:        txn.Amount,
			Reference:     txn.Reference,
		})
		logger.Info("transaction settled",
			"transaction_id", txn.ID,
			"type", txn.Type,
			"amount", txn.Amount,
			"attributed", affiliate != nil)
	}
	return result, nil
}

func (s *SettlementService) lookup(ctx context.Context, req model.SettlementRequest) (*model.Transaction, error) {
	if req.TransactionID != 0 {
		return s.transactions.GetByID(ctx, req.TransactionID)
	}
	return s.transactions.GetByReference(ctx, req.Reference)
}

func (s *SettlementService) checkPayload(txn *model.Transaction, payload model.CheckoutPayload) error {
	switch payload.(type) {
	case model.MembershipCheckout:
		if txn.Type != model.TransactionTypeMembership && txn.Type != model.TransactionTypeSupplierMembership {
			return ErrPayloadMismatch
		}
	case model.ProductCheckout:
		if txn.Type != model.TransactionTypeProduct {
			return ErrPayloadMismatch
		}
	case model.EventCheckout:
		if txn.Type != model.TransactionTypeEvent {
			return ErrPayloadMismatch
		}
	case nil:
		return errors.New("checkout payload is required")
	}
	return nil
}

// attribution resolves the referral code and stamps the transaction.
// A transaction that already carries an affiliate keeps it: the
// stamped attribution wins over the payload on replay.
func (s *SettlementService) attribution(ctx context.Context, txn *model.Transaction, payload model.CheckoutPayload) (*model.AffiliateIdentity, error) {
	if txn.AffiliateID != nil {
		profile, err := s.profiles.FindByID(ctx, *txn.AffiliateID)
		if err != nil {
			return nil, fmt.Errorf("load stamped affiliate %d: %w", *txn.AffiliateID, err)
		}
		return &model.AffiliateIdentity{AffiliateID: profile.ID, UserID: profile.UserID, Code: profile.Code}, nil
	}

	var code string
	switch p := payload.(type) {
	case model.MembershipCheckout:
		code = p.AffiliateCode
	case model.ProductCheckout:
		code = p.AffiliateCode
	}
	affiliate, err := s.affiliates.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	if affiliate != nil {
		if err := s.transactions.SetAffiliate(ctx, txn.ID, affiliate.AffiliateID); err != nil {
			return nil, fmt.Errorf("stamp affiliate: %w", err)
		}
		txn.AffiliateID = &affiliate.AffiliateID
	}
	return affiliate, nil
}

// commissionRule picks the rule for the settled item. Memberships
// carry their own rule; products fall back to the affiliate profile's
// percentage rate; everything else pays no affiliate commission.
func (s *SettlementService) commissionRule(ctx context.Context, txn *model.Transaction, affiliate *model.AffiliateIdentity) (model.CommissionRule, error) {
	switch txn.Type {
	case model.TransactionTypeMembership, model.TransactionTypeSupplierMembership:
		if txn.MembershipID == nil {
			return model.CommissionRule{}, errors.New("membership transaction without membership_id")
		}
		plan, err := s.memberships.GetByID(ctx, *txn.MembershipID)
		if err != nil {
			return model.CommissionRule{}, fmt.Errorf("load membership rule: %w", err)
		}
		return plan.CommissionRule(), nil
	case model.TransactionTypeProduct:
		if affiliate == nil {
			return model.CommissionRule{Type: model.CommissionTypePercentage, Rate: 0}, nil
		}
		profile, err := s.profiles.FindByID(ctx, affiliate.AffiliateID)
		if err != nil {
			return model.CommissionRule{}, fmt.Errorf("load affiliate rate: %w", err)
		}
		return model.CommissionRule{Type: model.CommissionTypePercentage, Rate: profile.CommissionRate}, nil
	default:
		return model.CommissionRule{Type: model.CommissionTypePercentage, Rate: 0}, nil
	}
}

func (s *SettlementService) activate(ctx context.Context, txn *model.Transaction, payload model.CheckoutPayload) (*model.ActivationResult, error) {
	switch p := payload.(type) {
	case model.MembershipCheckout:
		return s.entitlements.ActivateMembership(ctx, txn, p.MembershipID)
	case model.ProductCheckout:
		return s.entitlements.ActivateProduct(ctx, txn, p.ProductID)
	default:
		return &model.ActivationResult{}, nil
	}
}

func (s *SettlementService) publish(ctx context.Context, event *model.Event) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishJSON(ctx, event); err != nil {
		logger.Warn("event publish failed",
			"type", event.Type,
			"transaction_id", event.TransactionID,
			"error", err)
	}
}
