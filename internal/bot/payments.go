package bot

import (
	"fmt"
	"strconv"

	"landingbot/core/logger"
	tghelpers "landingbot/core/telegram/helpers"

	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// OnCheckout answers a pre-checkout query. The platform imposes a
// response deadline, so every path through here produces exactly one
// answer; any failure becomes a rejection rather than silence.
func (h *Handlers) OnCheckout(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "pre_checkout")

	query := c.PreCheckoutQuery()
	if query == nil {
		return nil
	}

	reason, err := h.checkoutDecision(c, query)
	if err != nil {
		logger.Error(ctx, "tg", "pre_checkout.fail",
			slog.Int64("user_id", query.Sender.ID),
			slog.String("payload", logger.SanitizeLimit(query.Payload, 64)),
			slog.String("err", err.Error()),
		)
		return c.Accept(msgInternalError)
	}
	if reason != "" {
		return c.Accept(reason)
	}
	return c.Accept()
}

func (h *Handlers) checkoutDecision(c tele.Context, query *tele.PreCheckoutQuery) (rejectReason string, err error) {
	level, err := strconv.Atoi(query.Payload)
	if err != nil {
		return "", fmt.Errorf("bad invoice payload %q: %w", query.Payload, err)
	}

	ctx := tghelpers.BuildContext(c)
	ok, err := h.subs.CanUpgradeTo(ctx, query.Sender.ID, level)
	if err != nil {
		return "", err
	}
	if !ok {
		return msgNoDowngradeBuy, nil
	}
	return "", nil
}

// OnPayment applies a captured payment: the paid grant with the fixed
// renewal duration and the level taken from the invoice payload.
func (h *Handlers) OnPayment(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "payment")

	msg := c.Message()
	if msg == nil || msg.Payment == nil {
		return nil
	}

	level, err := strconv.Atoi(msg.Payment.Payload)
	if err != nil {
		return fmt.Errorf("bad payment payload %q: %w", msg.Payment.Payload, err)
	}

	rec, err := h.subs.GrantPaid(ctx, c.Sender().ID, level, h.payments.PaidDays)
	if err != nil {
		return err
	}

	logger.Info(ctx, "tg", "payment.captured",
		slog.Int64("user_id", c.Sender().ID),
		slog.Int("sub_level", rec.Level),
		slog.Int("amount", msg.Payment.Total),
		slog.String("currency", msg.Payment.Currency),
	)
	return h.congratulate(c, rec.Level)
}
