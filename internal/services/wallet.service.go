package services

import (
	"context"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
)

type WalletReader interface {
	GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error)
	GetOrCreateByUserID(ctx context.Context, userID int64) (*model.Wallet, error)
	ListEntries(ctx context.Context, walletID int64, limit, offset int) ([]*model.WalletEntry, error)
}

// WalletService exposes read-side wallet queries. All balance
// mutation goes through the commission and payout services.
type WalletService struct {
	wallets WalletReader
}

func NewWalletService(wallets WalletReader) *WalletService {
	return &WalletService{wallets: wallets}
}

func (s *WalletService) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	return s.wallets.GetOrCreateByUserID(ctx, userID)
}

// Statement returns the newest entries first.
func (s *WalletService) Statement(ctx context.Context, userID int64, limit, offset int) (*model.Wallet, []*model.WalletEntry, error) {
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := s.wallets.ListEntries(ctx, wallet.ID, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	return wallet, entries, nil
}
