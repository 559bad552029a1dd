// Package subscription implements entitlement eligibility and grant
// logic on top of the repository.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"landingbot/core/logger"
	"landingbot/internal/models"
	"landingbot/internal/repository"

	"log/slog"
)

// TrialLevel is the tier granted by a free trial.
const TrialLevel = 1

var (
	// ErrAlreadyUsedTrial is returned when a user requests a second trial.
	ErrAlreadyUsedTrial = errors.New("subscription: trial already used")
	// ErrIneligibleDowngrade is returned when a grant would lower the
	// user's current tier.
	ErrIneligibleDowngrade = errors.New("subscription: downgrade not allowed")
)

// Service gates and applies entitlement grants.
type Service struct {
	repo      repository.Repository
	trialDays int
	now       func() time.Time
}

// NewService creates a Service. trialDays <= 0 falls back to 3.
func NewService(repo repository.Repository, trialDays int) *Service {
	if trialDays <= 0 {
		trialDays = 3
	}
	return &Service{
		repo:      repo,
		trialDays: trialDays,
		now:       time.Now,
	}
}

// Now returns the service clock reading, used wherever lazy expiry
// checks must agree with grant timestamps.
func (s *Service) Now() time.Time {
	return s.now()
}

// GetEntitlement returns the user's record, or (nil, nil) when absent.
func (s *Service) GetEntitlement(ctx context.Context, userID int64) (*models.Entitlement, error) {
	rec, err := s.repo.ReadEntitlement(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// CanUpgradeTo reports whether the user may purchase the requested level.
// True when no record exists or requestedLevel >= the current level.
// This is the sole anti-downgrade gate and runs before any money moves.
func (s *Service) CanUpgradeTo(ctx context.Context, userID int64, requestedLevel int) (bool, error) {
	current, err := s.repo.ReadLevel(ctx, userID)
	if err != nil {
		return false, err
	}
	return requestedLevel >= current, nil
}

// GrantTrial grants the one-time free trial: TrialLevel for the
// configured number of days, marking the trial as used.
func (s *Service) GrantTrial(ctx context.Context, userID int64) (*models.Entitlement, error) {
	rec, err := s.GetEntitlement(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.HadFreeSubscription {
		return nil, ErrAlreadyUsedTrial
	}
	if rec != nil && rec.Level > TrialLevel {
		return nil, ErrIneligibleDowngrade
	}

	now := s.now().UTC()
	expires := now.AddDate(0, 0, s.trialDays)
	if err := s.repo.UpsertEntitlement(ctx, userID, TrialLevel, now, expires, true); err != nil {
		return nil, fmt.Errorf("grant trial: %w", err)
	}

	logger.LogEvent(ctx, logger.SVCSubs, slog.LevelInfo, "grant.trial",
		slog.Int64("user_id", userID),
		slog.Int("sub_level", TrialLevel),
		slog.Int("days", s.trialDays),
		slog.Time("expires_at", expires),
	)

	return &models.Entitlement{
		UserID:              userID,
		Level:               TrialLevel,
		HadFreeSubscription: true,
		PurchasedAt:         &now,
		ExpiresAt:           &expires,
	}, nil
}

// GrantPaid applies a paid purchase: the new expiry extends from the
// later of now and the stored expiry, so early renewal never discards
// remaining paid time. hadFreeSubscription is passed through untouched.
func (s *Service) GrantPaid(ctx context.Context, userID int64, level, durationDays int) (*models.Entitlement, error) {
	rec, err := s.GetEntitlement(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	base := now
	hadFree := false
	if rec != nil {
		hadFree = rec.HadFreeSubscription
		if rec.ExpiresAt != nil && rec.ExpiresAt.After(base) {
			base = rec.ExpiresAt.UTC()
		}
	}
	expires := base.AddDate(0, 0, durationDays)

	if err := s.repo.UpsertEntitlement(ctx, userID, level, now, expires, hadFree); err != nil {
		return nil, fmt.Errorf("grant paid: %w", err)
	}

	logger.LogEvent(ctx, logger.SVCSubs, slog.LevelInfo, "grant.paid",
		slog.Int64("user_id", userID),
		slog.Int("sub_level", level),
		slog.Int("days", durationDays),
		slog.Bool("had_trial", hadFree),
		slog.Time("purchased_at", now),
		slog.Time("expires_at", expires),
	)

	return &models.Entitlement{
		UserID:              userID,
		Level:               level,
		HadFreeSubscription: hadFree,
		PurchasedAt:         &now,
		ExpiresAt:           &expires,
	}, nil
}
