package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/pg"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMaxRetriesExceeded  = errors.New("max retries exceeded")

	// ErrDuplicateCommissionEntry signals the unique commission index
	// rejected a second credit for the same (wallet, transaction).
	ErrDuplicateCommissionEntry = errors.New("commission entry already recorded")
)

// WalletRepository mutates balances only through data-level atomic
// increments. The balance column is never read-modified-written from
// application memory.
type WalletRepository struct {
	*pg.DB
}

func NewWalletRepository(db *pg.DB) *WalletRepository {
	return &WalletRepository{db}
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	var entity WalletEntity
	err := r.Read(ctx).Where("user_id = ?", userID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return toWalletModel(&entity), nil
}

func (r *WalletRepository) GetByID(ctx context.Context, id int64) (*model.Wallet, error) {
	var entity WalletEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return toWalletModel(&entity), nil
}

// GetOrCreateByUserID returns the user's wallet, creating an empty
// one on first touch. Safe under concurrent first credits via the
// unique user_id index.
func (r *WalletRepository) GetOrCreateByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	entity := WalletEntity{UserID: userID}
	err := r.Write(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&entity).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

// Credit adds amount to the wallet balance and total earnings, and
// appends the ledger entry, with bounded retry on transient errors.
// Call inside WithinTransaction so the increment and the entry commit
// together.
func (r *WalletRepository) Credit(ctx context.Context, walletID, amount int64, entry *model.WalletEntry) error {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := r.creditAttempt(ctx, walletID, amount, entry)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrWalletNotFound) || errors.Is(err, ErrDuplicateCommissionEntry) {
			return err
		}
		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return fmt.Errorf("%w: credit failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}

func (r *WalletRepository) creditAttempt(ctx context.Context, walletID, amount int64, entry *model.WalletEntry) error {
	result := r.Write(ctx).
		Model(&WalletEntity{}).
		Where("id = ?", walletID).
		Updates(map[string]interface{}{
			"balance":        gorm.Expr("balance + ?", amount),
			"total_earnings": gorm.Expr("total_earnings + ?", amount),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return r.appendEntry(ctx, walletID, entry)
}

// Debit subtracts amount with the non-negativity guard in the UPDATE
// itself: concurrent withdrawals against the same balance cannot both
// pass.
func (r *WalletRepository) Debit(ctx context.Context, walletID, amount int64, entry *model.WalletEntry) error {
	result := r.Write(ctx).
		Model(&WalletEntity{}).
		Where("id = ? AND balance >= ?", walletID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.checkDebitFailureReason(ctx, walletID, amount)
	}
	return r.appendEntry(ctx, walletID, entry)
}

func (r *WalletRepository) checkDebitFailureReason(ctx context.Context, walletID, amount int64) error {
	var entity WalletEntity
	err := r.Read(ctx).Where("id = ?", walletID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWalletNotFound
		}
		return err
	}
	if entity.Balance < amount {
		return ErrInsufficientBalance
	}
	// balance was sufficient on re-read: a concurrent debit raced us
	return ErrInsufficientBalance
}

// CreditRefund restores a payout debit. No total_earnings bump: the
// money was already earned once.
func (r *WalletRepository) CreditRefund(ctx context.Context, walletID, amount int64, entry *model.WalletEntry) error {
	result := r.Write(ctx).
		Model(&WalletEntity{}).
		Where("id = ?", walletID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return r.appendEntry(ctx, walletID, entry)
}

// MarkPayoutCompleted bumps the total payout aggregate and appends a
// zero-delta marker entry referencing the disbursement. The balance
// was already debited when the withdrawal was requested.
func (r *WalletRepository) MarkPayoutCompleted(ctx context.Context, walletID, amount int64, entry *model.WalletEntry) error {
	result := r.Write(ctx).
		Model(&WalletEntity{}).
		Where("id = ?", walletID).
		Update("total_payout", gorm.Expr("total_payout + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return r.appendEntry(ctx, walletID, entry)
}

func (r *WalletRepository) appendEntry(ctx context.Context, walletID int64, entry *model.WalletEntry) error {
	if entry == nil {
		return nil
	}
	e := toWalletEntryEntity(entry)
	e.WalletID = walletID
	if err := r.Write(ctx).Create(e).Error; err != nil {
		if entry.Type == model.WalletEntryCommission && isUniqueViolation(err) {
			return ErrDuplicateCommissionEntry
		}
		return err
	}
	entry.ID = e.ID
	entry.WalletID = e.WalletID
	entry.CreatedAt = e.CreatedAt
	return nil
}

// driver-portable unique violation check (postgres and the sqlite
// driver used in tests word it differently)
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint")
}

func (r *WalletRepository) ListEntries(ctx context.Context, walletID int64, limit, offset int) ([]*model.WalletEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entities []*WalletEntryEntity
	err := r.Read(ctx).
		Where("wallet_id = ?", walletID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toWalletEntryModels(entities), nil
}

// HasCommissionEntry reports whether any commission entry exists for
// the transaction. Covers the replay check for organic settlements,
// which have no conversion row to collide on.
func (r *WalletRepository) HasCommissionEntry(ctx context.Context, transactionID int64) (bool, error) {
	var count int64
	err := r.Read(ctx).
		Model(&WalletEntryEntity{}).
		Where("transaction_id = ? AND type = ?", transactionID, string(model.WalletEntryCommission)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// EntrySum returns the running sum of all entries for a wallet. The
// materialized balance must always agree with it.
func (r *WalletRepository) EntrySum(ctx context.Context, walletID int64) (int64, error) {
	var sum *int64
	err := r.Read(ctx).
		Model(&WalletEntryEntity{}).
		Select("SUM(amount)").
		Where("wallet_id = ?", walletID).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
