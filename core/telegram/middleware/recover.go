package middleware

import (
	"context"
	"runtime/debug"

	"landingbot/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware converts a handler panic into an error log line so
// one broken update cannot take the whole bot down.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			attrs := []slog.Attr{
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			}
			if u := c.Sender(); u != nil {
				attrs = append(attrs, slog.Int64("user_id", u.ID))
			}
			logger.LogEvent(context.Background(), logger.TG, slog.LevelError, "tg.panic", attrs...)
		}()
		return next(c)
	}
}
