// Package repository provides durable storage for entitlement records
// and per-category free-text templates.
package repository

import (
	"context"
	"errors"
	"time"

	"landingbot/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("repository: not found")

// Repository is the storage contract consumed by the subscription
// service and the template edit flows.
type Repository interface {
	// ReadEntitlement returns the entitlement record for the user,
	// or ErrNotFound when the user has no row.
	ReadEntitlement(ctx context.Context, userID int64) (*models.Entitlement, error)

	// UpsertEntitlement inserts or replaces the user's entitlement row.
	UpsertEntitlement(ctx context.Context, userID int64, level int, purchasedAt, expiresAt time.Time, hadFreeSubscription bool) error

	// ReadLevel returns the user's subscription level, 0 when absent.
	ReadLevel(ctx context.Context, userID int64) (int, error)

	// ReadCategoryMessage returns the user's stored template for the
	// category, falling back to the category default row.
	ReadCategoryMessage(ctx context.Context, userID int64, category models.Category) (string, error)

	// WriteCategoryMessage upserts the user's template for the category.
	WriteCategoryMessage(ctx context.Context, userID int64, category models.Category, text string) error
}
