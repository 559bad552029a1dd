package middleware

import (
	"context"
	"sync"
	"time"

	"landingbot/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures the per-user rate limit middleware.
type RateLimitOptions struct {
	// Interval is the minimum spacing between updates from one user;
	// zero disables limiting.
	Interval time.Duration
	// Exclude lists update kinds ("callback", "message") that bypass
	// the limiter.
	Exclude map[string]struct{}
	// OnLimited, when set, runs instead of the handler for throttled updates.
	OnLimited tele.HandlerFunc
}

// userThrottle tracks the last accepted update per user.
type userThrottle struct {
	mu       sync.Mutex
	lastSeen map[int64]time.Time
}

func (t *userThrottle) allow(userID int64, interval time.Duration) bool {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.lastSeen[userID]; ok && now.Sub(last) < interval {
		return false
	}
	t.lastSeen[userID] = now
	return true
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	default:
		return "other"
	}
}

// RateLimitMiddleware enforces a minimum interval between updates from
// the same user. Throttled updates are logged and swallowed.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	throttle := &userThrottle{lastSeen: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[updateKind(c.Update())]; skip {
				return next(c)
			}
			if throttle.allow(user.ID, opts.Interval) {
				return next(c)
			}

			attrs := []slog.Attr{slog.Int64("user_id", user.ID)}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			logger.LogEvent(context.Background(), logger.TG, slog.LevelWarn, "tg.rate_limit", attrs...)

			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
