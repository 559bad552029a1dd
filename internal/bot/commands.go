// Package bot contains the update handlers and the dispatcher wiring
// them to telebot endpoints.
package bot

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"landingbot/core/config"
	tghelpers "landingbot/core/telegram/helpers"
	"landingbot/core/telegram/keyboard"
	"landingbot/internal/convstate"
	"landingbot/internal/models"
	"landingbot/internal/repository"
	"landingbot/internal/subscription"

	tele "gopkg.in/telebot.v4"
)

// Handlers bundles the bot's update handlers with their dependencies.
type Handlers struct {
	payments config.PaymentsConfig
	repo     repository.Repository
	subs     *subscription.Service
	conv     *convstate.Store
}

// New creates the handler set.
func New(payments config.PaymentsConfig, repo repository.Repository, subs *subscription.Service, conv *convstate.Store) *Handlers {
	return &Handlers{
		payments: payments,
		repo:     repo,
		subs:     subs,
		conv:     conv,
	}
}

func mainMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "ℹ️ FAQ", Unique: cbFAQ},
		},
		[]keyboard.InlineBtn{
			{Text: "⛔️ Subscription", Unique: cbSubscriptionStatus},
		},
	)
}

// Start sends the welcome message with the main inline menu.
// Also serves as the fallback for non-text messages.
func (h *Handlers) Start(c tele.Context) error {
	return tghelpers.SendMD(c, msgWelcome, mainMenu())
}

// GetTrial grants the one-time trial subscription.
func (h *Handlers) GetTrial(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "get_trial")
	rec, err := h.subs.GrantTrial(ctx, c.Sender().ID)
	switch {
	case errors.Is(err, subscription.ErrAlreadyUsedTrial):
		return tghelpers.SendText(c, msgTrialUsed)
	case errors.Is(err, subscription.ErrIneligibleDowngrade):
		return tghelpers.SendText(c, msgNoDowngrade)
	case err != nil:
		return err
	}
	return h.congratulate(c, rec.Level)
}

// BuySubscription sends the basic subscription invoice.
func (h *Handlers) BuySubscription(c tele.Context) error {
	return c.Send(h.invoice(c, invoiceTitle, invoiceDescription, h.payments.BasicPrice))
}

// TestPayment sends a small debug invoice. Registered only when enabled
// by config and gated to the admin.
func (h *Handlers) TestPayment(c tele.Context) error {
	return c.Send(h.invoice(c, testInvoiceTitle, testInvoiceDesc, testInvoiceAmount))
}

func (h *Handlers) invoice(c tele.Context, title, description string, amount int) *tele.Invoice {
	return &tele.Invoice{
		Title:       title,
		Description: description,
		Payload:     strconv.Itoa(basicSubscriptionLevel),
		Currency:    h.payments.Currency,
		Prices:      []tele.Price{{Label: invoicePriceLabel, Amount: amount}},
		Token:       h.payments.ProviderToken,
		Start:       strconv.FormatInt(c.Chat().ID, 10),
	}
}

// ShowFAQ renders the FAQ template for the user, falling back to the
// category default. Also the target for unknown callback tags.
func (h *Handlers) ShowFAQ(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "faq")
	text, err := h.repo.ReadCategoryMessage(ctx, c.Sender().ID, models.CategoryFAQ)
	if err != nil {
		return err
	}
	return tghelpers.EditOrSendMD(c, text, mainMenu())
}

// ShowStatus renders the subscription status view. Expiry is evaluated
// here, at render time; nothing marks records as expired in storage.
func (h *Handlers) ShowStatus(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "subscription_status")
	rec, err := h.subs.GetEntitlement(ctx, c.Sender().ID)
	if err != nil {
		return err
	}

	now := h.subs.Now()
	var msg string
	if rec.ActiveAt(now) {
		msg = fmt.Sprintf("Your current subscription: *%s*\nPurchased: *%s*\nExpires: *%s*",
			rec.LevelName,
			fmtDate(rec.PurchasedAt),
			fmtDate(rec.ExpiresAt),
		)
	} else {
		msg = fmt.Sprintf("Your current subscription: *%s*\n", msgNoSubscription)
		if rec == nil || !rec.HadFreeSubscription {
			msg += fmt.Sprintf("Get a trial subscription: *%s*\n", cmdGetTrial)
		}
		msg += fmt.Sprintf("Buy a subscription: *%s*", cmdBuy)
	}
	return tghelpers.EditOrSendMD(c, msg, mainMenu())
}

func (h *Handlers) congratulate(c tele.Context, level int) error {
	return tghelpers.SendMD(c, fmt.Sprintf("Congratulations on your level *%d* subscription!", level))
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return "—"
	}
	return t.Format(statusDateLayout)
}
