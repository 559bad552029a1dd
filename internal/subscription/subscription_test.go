package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"landingbot/internal/models"
	"landingbot/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) ReadEntitlement(ctx context.Context, userID int64) (*models.Entitlement, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entitlement), args.Error(1)
}

func (m *RepoMock) UpsertEntitlement(ctx context.Context, userID int64, level int, purchasedAt, expiresAt time.Time, hadFreeSubscription bool) error {
	return m.Called(ctx, userID, level, purchasedAt, expiresAt, hadFreeSubscription).Error(0)
}

func (m *RepoMock) ReadLevel(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) ReadCategoryMessage(ctx context.Context, userID int64, category models.Category) (string, error) {
	args := m.Called(ctx, userID, category)
	return args.String(0), args.Error(1)
}

func (m *RepoMock) WriteCategoryMessage(ctx context.Context, userID int64, category models.Category, text string) error {
	return m.Called(ctx, userID, category, text).Error(0)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCanUpgradeTo(t *testing.T) {
	tests := []struct {
		name      string
		current   int
		requested int
		want      bool
	}{
		{"no record allows any level", 0, 1, true},
		{"same level allowed", 2, 2, true},
		{"upgrade allowed", 1, 3, true},
		{"downgrade rejected", 2, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("ReadLevel", mock.Anything, int64(7)).Return(tt.current, nil).Once()

			svc := NewService(repo, 3)
			got, err := svc.CanUpgradeTo(context.Background(), 7, tt.requested)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			repo.AssertExpectations(t)
		})
	}
}

func TestGrantTrial_NewUser(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	repo := new(RepoMock)
	repo.On("ReadEntitlement", mock.Anything, int64(42)).Return(nil, repository.ErrNotFound).Once()
	repo.On("UpsertEntitlement", mock.Anything, int64(42), TrialLevel, now, now.AddDate(0, 0, 3), true).
		Return(nil).Once()

	svc := NewService(repo, 3)
	svc.now = fixedClock(now)

	rec, err := svc.GrantTrial(context.Background(), 42)
	assert.NoError(t, err)
	assert.Equal(t, TrialLevel, rec.Level)
	assert.True(t, rec.HadFreeSubscription)
	assert.Equal(t, now.AddDate(0, 0, 3), *rec.ExpiresAt)
	assert.Equal(t, *rec.PurchasedAt, rec.ExpiresAt.AddDate(0, 0, -3))
	repo.AssertExpectations(t)
}

func TestGrantTrial_AlreadyUsed(t *testing.T) {
	exp := time.Now().Add(-time.Hour)
	repo := new(RepoMock)
	repo.On("ReadEntitlement", mock.Anything, int64(42)).Return(&models.Entitlement{
		UserID:              42,
		Level:               0,
		HadFreeSubscription: true,
		ExpiresAt:           &exp,
	}, nil).Once()

	svc := NewService(repo, 3)
	_, err := svc.GrantTrial(context.Background(), 42)
	assert.ErrorIs(t, err, ErrAlreadyUsedTrial)
	repo.AssertNotCalled(t, "UpsertEntitlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGrantTrial_DowngradeRejected(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ReadEntitlement", mock.Anything, int64(42)).Return(&models.Entitlement{
		UserID: 42,
		Level:  2,
	}, nil).Once()

	svc := NewService(repo, 3)
	_, err := svc.GrantTrial(context.Background(), 42)
	assert.ErrorIs(t, err, ErrIneligibleDowngrade)
	repo.AssertNotCalled(t, "UpsertEntitlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGrantPaid_ExtendsFutureExpiry(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	current := now.AddDate(0, 0, 5)

	repo := new(RepoMock)
	repo.On("ReadEntitlement", mock.Anything, int64(42)).Return(&models.Entitlement{
		UserID:              42,
		Level:               1,
		HadFreeSubscription: true,
		ExpiresAt:           &current,
	}, nil).Once()
	repo.On("UpsertEntitlement", mock.Anything, int64(42), 1, now, now.AddDate(0, 0, 35), true).
		Return(nil).Once()

	svc := NewService(repo, 3)
	svc.now = fixedClock(now)

	rec, err := svc.GrantPaid(context.Background(), 42, 1, 30)
	assert.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 35), *rec.ExpiresAt)
	repo.AssertExpectations(t)
}

func TestGrantPaid_LapsedExtendsFromNow(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -20)

	repo := new(RepoMock)
	repo.On("ReadEntitlement", mock.Anything, int64(42)).Return(&models.Entitlement{
		UserID:              42,
		Level:               1,
		HadFreeSubscription: true,
		ExpiresAt:           &past,
	}, nil).Once()
	repo.On("UpsertEntitlement", mock.Anything, int64(42), 2, now, now.AddDate(0, 0, 30), true).
		Return(nil).Once()

	svc := NewService(repo, 3)
	svc.now = fixedClock(now)

	rec, err := svc.GrantPaid(context.Background(), 42, 2, 30)
	assert.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 30), *rec.ExpiresAt)
	assert.True(t, rec.ExpiresAt.After(now))
	repo.AssertExpectations(t)
}

func TestGrantPaid_PreservesHadFreeFlag(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		rec     *models.Entitlement
		recErr  error
		hadFree bool
	}{
		{"no record stays false", nil, repository.ErrNotFound, false},
		{"trial used stays true", &models.Entitlement{UserID: 42, Level: 1, HadFreeSubscription: true}, nil, true},
		{"never trialed stays false", &models.Entitlement{UserID: 42, Level: 1}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("ReadEntitlement", mock.Anything, int64(42)).Return(tt.rec, tt.recErr).Once()
			repo.On("UpsertEntitlement", mock.Anything, int64(42), 2, now, now.AddDate(0, 0, 30), tt.hadFree).
				Return(nil).Once()

			svc := NewService(repo, 3)
			svc.now = fixedClock(now)

			rec, err := svc.GrantPaid(context.Background(), 42, 2, 30)
			assert.NoError(t, err)
			assert.Equal(t, tt.hadFree, rec.HadFreeSubscription)
			repo.AssertExpectations(t)
		})
	}
}

func TestGrantPaid_RepoErrorSurfaces(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ReadEntitlement", mock.Anything, int64(42)).Return(nil, errors.New("connection refused")).Once()

	svc := NewService(repo, 3)
	_, err := svc.GrantPaid(context.Background(), 42, 1, 30)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "UpsertEntitlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetEntitlement_AbsentIsNil(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ReadEntitlement", mock.Anything, int64(42)).Return(nil, repository.ErrNotFound).Once()

	svc := NewService(repo, 3)
	rec, err := svc.GetEntitlement(context.Background(), 42)
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestActiveAt(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		rec  *models.Entitlement
		want bool
	}{
		{"nil record", nil, false},
		{"no expiry", &models.Entitlement{Level: 1}, false},
		{"level zero", &models.Entitlement{Level: 0, ExpiresAt: &future}, false},
		{"unexpired", &models.Entitlement{Level: 1, ExpiresAt: &future}, true},
		{"expired", &models.Entitlement{Level: 1, ExpiresAt: &past}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.ActiveAt(now))
		})
	}
}
