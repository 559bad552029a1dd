package bot

import (
	"fmt"

	"landingbot/core/logger"
	tghelpers "landingbot/core/telegram/helpers"
	"landingbot/core/telegram/keyboard"
	"landingbot/internal/convstate"
	"landingbot/internal/models"
	"landingbot/internal/sanitize"

	"log/slog"

	tele "gopkg.in/telebot.v4"
)

func cancelMarkup() *tele.ReplyMarkup {
	return keyboard.SingleCancelMarkup(cbCancelEdit, "cancel", "❌ Close editing")
}

// StartEditFAQ opens the FAQ edit conversation for subscribed users.
func (h *Handlers) StartEditFAQ(c tele.Context) error {
	return h.startEdit(c, models.CategoryFAQ, convstate.StepFAQInput, promptFAQInput)
}

// StartEditOrder opens the order-info edit conversation for subscribed users.
func (h *Handlers) StartEditOrder(c tele.Context) error {
	return h.startEdit(c, models.CategoryOrder, convstate.StepOrderInput, promptOrderInput)
}

func (h *Handlers) startEdit(c tele.Context, category models.Category, step convstate.Step, prompt string) error {
	ctx := tghelpers.WithHandler(c, "edit_"+string(category))
	userID := c.Sender().ID

	level, err := h.repo.ReadLevel(ctx, userID)
	if err != nil {
		return err
	}
	if level < 1 {
		return tghelpers.SendText(c, msgRestriction)
	}

	current, err := h.repo.ReadCategoryMessage(ctx, userID, category)
	if err != nil {
		return err
	}

	h.conv.Set(userID, step)

	// The stored message is sanitized on write; clean again before echo
	// in case the default row carries markup.
	return tghelpers.SendMD(c, prompt+sanitize.Clean(current), cancelMarkup())
}

// ContinueConversation consumes the next text message for the user's
// active step. The step always returns to None, success or not, so a
// user can never get stuck mid-edit.
func (h *Handlers) ContinueConversation(c tele.Context, text string) error {
	userID := c.Sender().ID
	step := h.conv.Get(userID)
	h.conv.Set(userID, convstate.StepNone)

	var (
		category models.Category
		done     string
	)
	switch step {
	case convstate.StepFAQInput:
		category, done = models.CategoryFAQ, msgFAQUpdated
	case convstate.StepOrderInput:
		category, done = models.CategoryOrder, msgOrderUpdated
	default:
		return nil
	}

	ctx := tghelpers.WithHandler(c, "conversation_"+step.String())
	if err := h.repo.WriteCategoryMessage(ctx, userID, category, text); err != nil {
		return fmt.Errorf("store %s input: %w", category, err)
	}
	logger.LogEvent(ctx, logger.SVCTemplates, slog.LevelInfo, "template.updated",
		slog.Int64("user_id", userID),
		slog.String("category", string(category)),
		slog.Int("chars", len(text)),
	)
	return tghelpers.SendMD(c, done)
}

// CancelEdit aborts an in-progress edit from the inline cancel button.
func (h *Handlers) CancelEdit(c tele.Context) error {
	h.conv.Set(c.Sender().ID, convstate.StepNone)
	return tghelpers.EditMD(c, msgEditCancelled)
}
