package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/repository"
)

type AffiliateProfileRepository interface {
	FindActiveByCode(ctx context.Context, code string) (*model.AffiliateProfile, error)
	IncrementClicks(ctx context.Context, affiliateID int64) error
}

// AffiliateService resolves referral codes to affiliate identities.
// Attribution is optional: an unknown or inactive code resolves to
// nil, never to an error, so it can never block a settlement.
type AffiliateService struct {
	profiles AffiliateProfileRepository
}

func NewAffiliateService(profiles AffiliateProfileRepository) *AffiliateService {
	return &AffiliateService{profiles: profiles}
}

func (s *AffiliateService) Resolve(ctx context.Context, code string) (*model.AffiliateIdentity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	profile, err := s.profiles.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrAffiliateNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve affiliate: %w", err)
	}
	return &model.AffiliateIdentity{
		AffiliateID: profile.ID,
		UserID:      profile.UserID,
		Code:        profile.Code,
	}, nil
}

func (s *AffiliateService) TrackClick(ctx context.Context, code string) error {
	profile, err := s.profiles.FindActiveByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, repository.ErrAffiliateNotFound) {
			return nil
		}
		return err
	}
	return s.profiles.IncrementClicks(ctx, profile.ID)
}
