package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/config"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/repository"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/prom"
)

var (
	// ErrCommissionConfig marks a missing system revenue recipient.
	// Fatal configuration error: revenue cannot be attributed, so the
	// distribution aborts and is flagged for manual reconciliation.
	ErrCommissionConfig = errors.New("commission recipient configuration invalid")
)

type ConversionRepository interface {
	CreateConversion(ctx context.Context, conv *model.AffiliateConversion) (*model.AffiliateConversion, bool, error)
	GetConversionByTransactionID(ctx context.Context, transactionID int64) (*model.AffiliateConversion, error)
	IncrementAggregates(ctx context.Context, affiliateID, earnings, conversions int64) error
}

type CommissionWalletRepository interface {
	GetOrCreateByUserID(ctx context.Context, userID int64) (*model.Wallet, error)
	Credit(ctx context.Context, walletID, amount int64, entry *model.WalletEntry) error
	HasCommissionEntry(ctx context.Context, transactionID int64) (bool, error)
}

type RecipientRepository interface {
	FindManyByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error)
}

type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// CommissionService splits a settled amount between the referring
// affiliate and the fixed system roles, credits each recipient's
// wallet, and freezes the applied rule into the conversion record.
type CommissionService struct {
	conversions ConversionRepository
	wallets     CommissionWalletRepository
	users       RecipientRepository
	tx          TxRunner
	settings    config.Settings
}

func NewCommissionService(
	conversions ConversionRepository,
	wallets CommissionWalletRepository,
	users RecipientRepository,
	tx TxRunner,
	settings config.Settings,
) *CommissionService {
	return &CommissionService{
		conversions: conversions,
		wallets:     wallets,
		users:       users,
		tx:          tx,
		settings:    settings,
	}
}

// Distribute computes and persists the commission split for one
// transaction. Re-invocation for a transaction that already has a
// split is a no-op returning the existing conversion.
func (s *CommissionService) Distribute(ctx context.Context, txn *model.Transaction, affiliate *model.AffiliateIdentity, rule model.CommissionRule) (*model.DistributionResult, error) {
	if txn.Amount <= 0 {
		return &model.DistributionResult{}, nil
	}

	// replay detection before any mutation
	if affiliate != nil {
		existing, err := s.conversions.GetConversionByTransactionID(ctx, txn.ID)
		if err == nil {
			return &model.DistributionResult{Conversion: existing, Replayed: true}, nil
		}
		if !errors.Is(err, repository.ErrConversionNotFound) {
			return nil, fmt.Errorf("commission replay check: %w", err)
		}
	}
	// cheap pre-check; the unique commission index inside the
	// transaction below is the authority for concurrent replays
	credited, err := s.wallets.HasCommissionEntry(ctx, txn.ID)
	if err != nil {
		return nil, fmt.Errorf("commission replay check: %w", err)
	}
	if credited {
		return &model.DistributionResult{Replayed: true}, nil
	}

	affiliateShare := affiliateShare(txn.Amount, rule, affiliate != nil)
	splits, err := s.buildSplits(ctx, txn.Amount, affiliateShare, affiliate)
	if err != nil {
		return nil, err
	}

	result := &model.DistributionResult{Splits: splits}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if affiliate != nil {
			conv := &model.AffiliateConversion{
				AffiliateID:      affiliate.AffiliateID,
				TransactionID:    txn.ID,
				CommissionAmount: affiliateShare,
				CommissionRate:   rule.Rate,
				CommissionType:   rule.Type,
			}
			created, isNew, err := s.conversions.CreateConversion(ctx, conv)
			if err != nil {
				return fmt.Errorf("create conversion: %w", err)
			}
			result.Conversion = created
			if !isNew {
				// lost the race against a concurrent settlement
				result.Replayed = true
				result.Splits = nil
				return nil
			}
			if err := s.conversions.IncrementAggregates(ctx, affiliate.AffiliateID, affiliateShare, 1); err != nil {
				return fmt.Errorf("bump affiliate aggregates: %w", err)
			}
		}

		for _, split := range result.Splits {
			if split.Amount <= 0 {
				continue
			}
			wallet, err := s.wallets.GetOrCreateByUserID(ctx, split.UserID)
			if err != nil {
				return fmt.Errorf("wallet for %s recipient: %w", split.Role, err)
			}
			entry := &model.WalletEntry{
				Type:          model.WalletEntryCommission,
				Amount:        split.Amount,
				Reference:     txn.Reference,
				TransactionID: &txn.ID,
			}
			if err := s.wallets.Credit(ctx, wallet.ID, split.Amount, entry); err != nil {
				return fmt.Errorf("credit %s wallet: %w", split.Role, err)
			}
			prom.AddCounter(prom.SystemSettlement, prom.MetricCommissionDistributed, float64(split.Amount), string(split.Role))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateCommissionEntry) {
			// lost the race to a concurrent settlement at the index;
			// the rollback discards every credit from this attempt
			return &model.DistributionResult{Replayed: true}, nil
		}
		return nil, err
	}

	if !result.Replayed {
		logger.Info("commission distributed",
			"transaction_id", txn.ID,
			"amount", txn.Amount,
			"affiliate_share", affiliateShare,
			"rule_type", rule.Type,
			"rule_rate", rule.Rate)
	}
	return result, nil
}

// affiliateShare applies the commission rule. Percentage shares round
// half-up to the rupiah; a flat commission never exceeds the amount.
func affiliateShare(amount int64, rule model.CommissionRule, attributed bool) int64 {
	if !attributed {
		return 0
	}
	switch rule.Type {
	case model.CommissionTypeFlat:
		if rule.Rate > amount {
			return amount
		}
		if rule.Rate < 0 {
			return 0
		}
		return rule.Rate
	default:
		if rule.Rate <= 0 {
			return 0
		}
		return (amount*rule.Rate + 50) / 100
	}
}

// buildSplits distributes the post-affiliate remainder across the
// system roles. The admin share is the remainder after founder and
// co-founder cuts, so the splits always sum exactly to amount.
func (s *CommissionService) buildSplits(ctx context.Context, amount, affiliateShare int64, affiliate *model.AffiliateIdentity) ([]model.CommissionSplit, error) {
	set := s.settings
	// with the percents below 100 the rounded founder and co-founder
	// cuts can never exceed the remainder, so the admin share stays >= 0
	if set.FounderPercent < 0 || set.CoFounderPercent < 0 || set.FounderPercent+set.CoFounderPercent >= 100 {
		return nil, fmt.Errorf("%w: founder/co-founder percents %d/%d must be non-negative and sum below 100",
			ErrCommissionConfig, set.FounderPercent, set.CoFounderPercent)
	}
	recipientIDs := []int64{set.AdminUserID, set.FounderUserID, set.CoFounderUserID}
	for _, id := range recipientIDs {
		if id == 0 {
			return nil, fmt.Errorf("%w: recipient user id not configured", ErrCommissionConfig)
		}
	}
	users, err := s.users.FindManyByIDs(ctx, recipientIDs)
	if err != nil {
		return nil, fmt.Errorf("load commission recipients: %w", err)
	}
	for _, id := range recipientIDs {
		if _, ok := users[id]; !ok {
			return nil, fmt.Errorf("%w: recipient user %d not found", ErrCommissionConfig, id)
		}
	}

	remainder := amount - affiliateShare
	founderShare := (remainder*set.FounderPercent + 50) / 100
	coFounderShare := (remainder*set.CoFounderPercent + 50) / 100
	adminShare := remainder - founderShare - coFounderShare

	splits := make([]model.CommissionSplit, 0, 4)
	if affiliate != nil {
		splits = append(splits, model.CommissionSplit{
			UserID: affiliate.UserID,
			Role:   model.CommissionRoleAffiliate,
			Amount: affiliateShare,
		})
	}
	splits = append(splits,
		model.CommissionSplit{UserID: set.AdminUserID, Role: model.CommissionRoleAdmin, Amount: adminShare},
		model.CommissionSplit{UserID: set.FounderUserID, Role: model.CommissionRoleFounder, Amount: founderShare},
		model.CommissionSplit{UserID: set.CoFounderUserID, Role: model.CommissionRoleCoFounder, Amount: coFounderShare},
	)
	return splits, nil
}
