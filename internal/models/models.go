// Package models holds the persistent record types shared by the
// repository and service layers.
package models

import "time"

// Entitlement is a user's current subscription tier and validity window.
// A user without a row has no entitlement; rows are upserted on every
// grant and never deleted.
type Entitlement struct {
	UserID              int64      `db:"id"`
	Level               int        `db:"subscription_level"`
	LevelName           string     `db:"level_name"`
	HadFreeSubscription bool       `db:"had_free_subscription"`
	PurchasedAt         *time.Time `db:"subscription_purchased"`
	ExpiresAt           *time.Time `db:"subscription_expires"`
}

// ActiveAt reports whether the entitlement is unexpired at the given
// instant. Expiry is evaluated lazily; no stored field tracks it.
func (e *Entitlement) ActiveAt(now time.Time) bool {
	if e == nil || e.Level <= 0 || e.ExpiresAt == nil {
		return false
	}
	return !now.After(*e.ExpiresAt)
}

// SubscriptionLevel maps a tier number to its display name.
// Reference data, read-only at runtime.
type SubscriptionLevel struct {
	Level int    `db:"level"`
	Name  string `db:"name"`
}

// Category selects one of the stored free-text template kinds.
type Category string

const (
	CategoryFAQ   Category = "faq"
	CategoryOrder Category = "order"
)

// Valid reports whether the category names a known template table.
func (c Category) Valid() bool {
	return c == CategoryFAQ || c == CategoryOrder
}
