package bot

import (
	"reflect"
	"strings"
	"time"

	"landingbot/core/logger"
	tg "landingbot/core/telegram"
	tghelpers "landingbot/core/telegram/helpers"
	"landingbot/core/telegram/middleware"
	"landingbot/internal/sanitize"

	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// RegisterCommands fills the command registry. The test payment command
// is registered only when enabled by config, hidden and admin-gated.
func (h *Handlers) RegisterCommands(reg *tg.Registry, enableTestPayment bool) {
	reg.RegisterCommand(cmdStart, tg.Command{
		Handler:     h.Start,
		Description: "Show the welcome message",
	})
	reg.RegisterCommand(cmdGetTrial, tg.Command{
		Handler:     h.GetTrial,
		Description: "Get a one-time trial subscription",
	})
	reg.RegisterCommand(cmdBuy, tg.Command{
		Handler:     h.BuySubscription,
		Description: "Buy the basic subscription",
	})
	reg.RegisterCommand(cmdEditFAQ, tg.Command{
		Handler:     h.StartEditFAQ,
		Description: "Edit your FAQ section",
	})
	reg.RegisterCommand(cmdEditOrder, tg.Command{
		Handler:     h.StartEditOrder,
		Description: "Edit your order info section",
	})
	if enableTestPayment {
		reg.RegisterCommand(cmdTestPayment, tg.Command{
			Handler:     h.TestPayment,
			Description: "Send a test invoice",
			AdminOnly:   true,
			Hidden:      true,
		})
	}
}

// RegisterCallbacks maps inline action tags to handlers. Unknown tags
// fall back to the FAQ view.
func (h *Handlers) RegisterCallbacks(reg *tg.Registry) {
	_ = reg.RegisterCallback(cbSubscriptionStatus, h.ShowStatus)
	_ = reg.RegisterCallback(cbFAQ, h.ShowFAQ)
	_ = reg.RegisterCallback(cbCancelEdit, h.CancelEdit)
	reg.SetCallbackNotFound(h.ShowFAQ)
}

// Routes wires handlers to telebot endpoints with the recover and
// receipt-logging middleware applied per branch.
func (h *Handlers) Routes(reg *tg.Registry, admin middleware.AdminOptions) []tg.Route {
	wrap := func(handler tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler))
	}
	text := h.textHandler(reg, admin)
	routes := []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnEdited, Handler: wrap(text)},
		{Endpoint: tele.OnMedia, Handler: wrap(h.mediaHandler())},
		{Endpoint: tele.OnPayment, Handler: wrap(h.paymentHandler())},
		{Endpoint: tele.OnCheckout, Handler: wrap(h.checkoutHandler())},
		{Endpoint: tele.OnCallback, Handler: wrap(h.callbackHandler(reg))},
	}

	// Update kinds with no feature behind them still get a receipt
	// line and a summary; telebot would otherwise drop them without a
	// trace since unregistered endpoints never dispatch.
	ignored := h.ignoredHandler()
	for _, ep := range []any{
		tele.OnContact, tele.OnLocation, tele.OnVenue, tele.OnDice,
		tele.OnQuery, tele.OnUserJoined, tele.OnUserLeft, tele.OnPinned,
		tele.OnChannelPost, tele.OnEditedChannelPost,
	} {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: wrap(ignored)})
	}
	return routes
}

// ignoredHandler logs a skip summary for update kinds the bot has no
// behavior for and replies with nothing.
func (h *Handlers) ignoredHandler() tele.HandlerFunc {
	return func(c tele.Context) error {
		logHandlerSummary(c, "unhandled_update", time.Now(), "skip", nil)
		return nil
	}
}

// textHandler routes sanitized conversation input first, then the
// command table. Unmatched tokens produce no action.
func (h *Handlers) textHandler(reg *tg.Registry, admin middleware.AdminOptions) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		raw := c.Text()

		sender := c.Sender()
		if sender == nil {
			return nil
		}

		if h.conv.IsActive(sender.ID) {
			clean := sanitize.Clean(raw)
			return h.handleMessage(c, "conversation", start, func() error {
				return h.ContinueConversation(c, clean)
			})
		}

		token := raw
		if i := strings.IndexAny(token, " \t\n"); i >= 0 {
			token = token[:i]
		}
		// Only slash-prefixed tokens reach the command table; a bare
		// word like "start" is ordinary text and produces no action.
		if !strings.HasPrefix(token, "/") {
			logHandlerSummary(c, "unknown_text", start, "skip", nil)
			return nil
		}
		cmd, ok := reg.LookupCommand(token)
		if !ok || cmd.Handler == nil {
			logHandlerSummary(c, "unknown_text", start, "skip", nil)
			return nil
		}

		handler := middleware.WithAdminCheck(admin, cmd)
		return h.handleMessage(c, normalizeHandlerName(token), start, func() error {
			return handler(c)
		})
	}
}

// mediaHandler falls back to the welcome action for non-text content.
func (h *Handlers) mediaHandler() tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		if c.Message() != nil && c.Message().Payment != nil {
			return nil
		}
		return h.handleMessage(c, "welcome_fallback", start, func() error {
			return h.Start(c)
		})
	}
}

func (h *Handlers) paymentHandler() tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		return h.handleMessage(c, "payment", start, func() error {
			return h.OnPayment(c)
		})
	}
}

// checkoutHandler never uses the generic-notice boundary: OnCheckout
// converts its own failures into a rejection answer.
func (h *Handlers) checkoutHandler() tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		err := h.OnCheckout(c)
		logHandlerSummary(c, "pre_checkout", start, "", err)
		return err
	}
}

// callbackHandler acknowledges the callback immediately, then routes on
// the embedded action tag. Errors keep the bare acknowledgment only.
func (h *Handlers) callbackHandler(reg *tg.Registry) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		cb := c.Callback()
		if cb == nil {
			return nil
		}

		tag, _ := tg.ParseCallback(cb)
		name := "callback." + normalizeHandlerName(tag)

		_ = c.Respond()

		handler, ok := reg.GetCallback(tag)
		if !ok || handler == nil {
			handler = reg.CallbackNotFound()
			name += ".fallback"
		}
		if handler == nil {
			return nil
		}

		tghelpers.WithHandler(c, name)
		err := handler(c)
		logHandlerSummary(c, name, start, "", err, slog.String("cb_key", tag))
		return err
	}
}

// handleMessage executes a message action inside the failure boundary:
// errors are logged with context and the user gets a generic notice.
func (h *Handlers) handleMessage(c tele.Context, name string, start time.Time, fn func() error) error {
	tghelpers.WithHandler(c, name)
	err := fn()
	logHandlerSummary(c, name, start, "", err)
	if err != nil {
		_ = tghelpers.SendText(c, msgGenericFailure)
	}
	return err
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, statusOverride string, err error, extras ...slog.Attr) {
	ctx := tghelpers.WithHandler(c, handlerName)
	msgs, kb := middleware.GetCounters(c)

	status := statusOverride
	if status == "" {
		if err != nil {
			status = "fail"
		} else {
			status = "ok"
		}
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handlerName),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	if len(extras) > 0 {
		attrs = append(attrs, extras...)
	}
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
