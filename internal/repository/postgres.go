package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"landingbot/core/logger"
	"landingbot/internal/models"

	"github.com/jmoiron/sqlx"
	"log/slog"
)

// categoryTables maps a template category to its backing table.
// Table names never come from user input.
var categoryTables = map[models.Category]string{
	models.CategoryFAQ:   "faq_messages",
	models.CategoryOrder: "order_messages",
}

// defaultMessageUserID keys the per-table default template row.
const defaultMessageUserID = 0

// Postgres implements Repository over sqlx with bound parameters only.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open sqlx connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// ReadEntitlement loads the user's entitlement with the level display name.
func (p *Postgres) ReadEntitlement(ctx context.Context, userID int64) (*models.Entitlement, error) {
	const q = `
		SELECT u.id,
		       u.subscription_level,
		       COALESCE(l.name, '') AS level_name,
		       u.had_free_subscription,
		       u.subscription_purchased,
		       u.subscription_expires
		FROM users u
		LEFT JOIN subscription_levels l ON l.level = u.subscription_level
		WHERE u.id = $1`

	var rec models.Entitlement
	if err := p.db.GetContext(ctx, &rec, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.DB.Error("read entitlement failed",
			slog.String("event", "entitlement.read"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("read entitlement: %w", err)
	}
	return &rec, nil
}

// UpsertEntitlement inserts or replaces the user's entitlement row.
func (p *Postgres) UpsertEntitlement(ctx context.Context, userID int64, level int, purchasedAt, expiresAt time.Time, hadFreeSubscription bool) error {
	const q = `
		INSERT INTO users (id, subscription_level, had_free_subscription, subscription_purchased, subscription_expires)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			subscription_level     = EXCLUDED.subscription_level,
			had_free_subscription  = EXCLUDED.had_free_subscription,
			subscription_purchased = EXCLUDED.subscription_purchased,
			subscription_expires   = EXCLUDED.subscription_expires`

	if _, err := p.db.ExecContext(ctx, q, userID, level, hadFreeSubscription, purchasedAt, expiresAt); err != nil {
		logger.DB.Error("upsert entitlement failed",
			slog.String("event", "entitlement.upsert"),
			slog.Int64("user_id", userID),
			slog.Int("sub_level", level),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("upsert entitlement: %w", err)
	}
	return nil
}

// ReadLevel returns the user's subscription level, 0 when the user has no row.
func (p *Postgres) ReadLevel(ctx context.Context, userID int64) (int, error) {
	const q = `SELECT subscription_level FROM users WHERE id = $1`

	var level int
	if err := p.db.GetContext(ctx, &level, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read level: %w", err)
	}
	return level, nil
}

// ReadCategoryMessage returns the user's stored template for the category,
// or the category default row when no per-user row exists.
func (p *Postgres) ReadCategoryMessage(ctx context.Context, userID int64, category models.Category) (string, error) {
	table, ok := categoryTables[category]
	if !ok {
		return "", fmt.Errorf("unknown category: %q", category)
	}

	q := fmt.Sprintf(`
		SELECT COALESCE(
			(SELECT message FROM %[1]s WHERE user_id = $1),
			(SELECT message FROM %[1]s WHERE user_id = $2),
			'')`, table)

	var msg string
	if err := p.db.GetContext(ctx, &msg, q, userID, int64(defaultMessageUserID)); err != nil {
		logger.DB.Error("read category message failed",
			slog.String("event", "template.read"),
			slog.Int64("user_id", userID),
			slog.String("category", string(category)),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("read %s message: %w", category, err)
	}
	return msg, nil
}

// WriteCategoryMessage upserts the user's template for the category.
func (p *Postgres) WriteCategoryMessage(ctx context.Context, userID int64, category models.Category, text string) error {
	table, ok := categoryTables[category]
	if !ok {
		return fmt.Errorf("unknown category: %q", category)
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (user_id, message)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET message = EXCLUDED.message`, table)

	if _, err := p.db.ExecContext(ctx, q, userID, text); err != nil {
		logger.DB.Error("write category message failed",
			slog.String("event", "template.write"),
			slog.Int64("user_id", userID),
			slog.String("category", string(category)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("write %s message: %w", category, err)
	}
	return nil
}
