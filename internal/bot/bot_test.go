package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"landingbot/core/config"
	tg "landingbot/core/telegram"
	"landingbot/core/telegram/middleware"
	"landingbot/internal/convstate"
	"landingbot/internal/models"
	"landingbot/internal/repository"
	"landingbot/internal/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	tele "gopkg.in/telebot.v4"
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

// ctxStub overrides the tele.Context methods the handlers touch and
// records outbound calls. Unused interface methods panic via the
// embedded nil Context, keeping accidental use visible.
type ctxStub struct {
	tele.Context

	sender   *tele.User
	chat     *tele.Chat
	text     string
	message  *tele.Message
	callback *tele.Callback
	query    *tele.PreCheckoutQuery
	store    map[string]interface{}

	sent     []interface{}
	edited   []interface{}
	accepts  []string
	responds int
}

func newCtxStub(userID int64) *ctxStub {
	return &ctxStub{
		sender: &tele.User{ID: userID},
		chat:   &tele.Chat{ID: userID},
		store:  map[string]interface{}{},
	}
}

func (s *ctxStub) Update() tele.Update                  { return tele.Update{ID: 1} }
func (s *ctxStub) Sender() *tele.User                   { return s.sender }
func (s *ctxStub) Chat() *tele.Chat                     { return s.chat }
func (s *ctxStub) Text() string                         { return s.text }
func (s *ctxStub) Message() *tele.Message               { return s.message }
func (s *ctxStub) Callback() *tele.Callback             { return s.callback }
func (s *ctxStub) PreCheckoutQuery() *tele.PreCheckoutQuery { return s.query }
func (s *ctxStub) Set(key string, val interface{})      { s.store[key] = val }
func (s *ctxStub) Get(key string) interface{}           { return s.store[key] }

func (s *ctxStub) Send(what interface{}, _ ...interface{}) error {
	s.sent = append(s.sent, what)
	return nil
}

func (s *ctxStub) Edit(what interface{}, _ ...interface{}) error {
	s.edited = append(s.edited, what)
	return nil
}

func (s *ctxStub) EditOrSend(what interface{}, _ ...interface{}) error {
	s.edited = append(s.edited, what)
	return nil
}

func (s *ctxStub) Accept(errorMessage ...string) error {
	reason := ""
	if len(errorMessage) > 0 {
		reason = errorMessage[0]
	}
	s.accepts = append(s.accepts, reason)
	return nil
}

func (s *ctxStub) Respond(_ ...*tele.CallbackResponse) error {
	s.responds++
	return nil
}

func (s *ctxStub) sentTexts() []string {
	var out []string
	for _, v := range s.sent {
		if t, ok := v.(string); ok {
			out = append(out, t)
		}
	}
	return out
}

func newHandlers(repo repository.Repository) *Handlers {
	svc := subscription.NewService(repo, 3)
	return New(config.PaymentsConfig{
		ProviderToken: "test-token",
		Currency:      "RUB",
		BasicPrice:    55000,
		TrialDays:     3,
		PaidDays:      30,
	}, repo, svc, convstate.NewStore())
}

func newRouter(h *Handlers) (tele.HandlerFunc, *tg.Registry) {
	reg := tg.NewRegistry()
	h.RegisterCommands(reg, false)
	h.RegisterCallbacks(reg)
	return h.textHandler(reg, middleware.AdminOptions{}), reg
}

func TestEditFAQFlow_StoresSanitizedText(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)
	text, _ := newRouter(h)

	repo.On("ReadLevel", mock.Anything, int64(7)).Return(1, nil).Once()
	repo.On("ReadCategoryMessage", mock.Anything, int64(7), models.CategoryFAQ).Return("old faq", nil).Once()

	c := newCtxStub(7)
	c.text = cmdEditFAQ
	assert.NoError(t, text(c))
	assert.Equal(t, convstate.StepFAQInput, h.conv.Get(7))

	repo.On("WriteCategoryMessage", mock.Anything, int64(7), models.CategoryFAQ, "new answer with emphasis and ").
		Return(nil).Once()

	c2 := newCtxStub(7)
	c2.text = "new *answer* with _emphasis_ and [a link](http://example.com)"
	assert.NoError(t, text(c2))

	assert.Equal(t, convstate.StepNone, h.conv.Get(7))
	assert.Contains(t, c2.sentTexts(), msgFAQUpdated)
	repo.AssertExpectations(t)
}

func TestEditFAQ_RequiresSubscription(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)

	repo.On("ReadLevel", mock.Anything, int64(7)).Return(0, nil).Once()

	c := newCtxStub(7)
	assert.NoError(t, h.StartEditFAQ(c))
	assert.Contains(t, c.sentTexts(), msgRestriction)
	assert.Equal(t, convstate.StepNone, h.conv.Get(7))
}

func TestConversationStepResetsOnStoreFailure(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)

	h.conv.Set(7, convstate.StepOrderInput)
	repo.On("WriteCategoryMessage", mock.Anything, int64(7), models.CategoryOrder, "hello").
		Return(errors.New("db down")).Once()

	c := newCtxStub(7)
	err := h.ContinueConversation(c, "hello")
	assert.Error(t, err)
	assert.Equal(t, convstate.StepNone, h.conv.Get(7), "step must reset even on failure")
}

func TestConversationTakesPrecedenceOverCommands(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)
	text, _ := newRouter(h)

	h.conv.Set(7, convstate.StepFAQInput)
	// The sanitizer strips the slash, so the command text is stored as
	// plain input instead of being dispatched.
	repo.On("WriteCategoryMessage", mock.Anything, int64(7), models.CategoryFAQ, "start").
		Return(nil).Once()

	c := newCtxStub(7)
	c.text = cmdStart
	assert.NoError(t, text(c))
	repo.AssertExpectations(t)
}

func TestBareCommandWordIsIgnored(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)
	text, _ := newRouter(h)

	// Without the slash these are ordinary words, not commands; in
	// particular "get_trial" must not grant anything.
	for _, word := range []string{"start", "get_trial", "buy_subscription"} {
		c := newCtxStub(7)
		c.text = word
		assert.NoError(t, text(c))
		assert.Empty(t, c.sent, "word %q", word)
	}
	repo.AssertNotCalled(t, "ReadEntitlement", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpsertEntitlement",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUnknownTextIsIgnored(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)
	text, _ := newRouter(h)

	c := newCtxStub(7)
	c.text = "just chatting"
	assert.NoError(t, text(c))
	assert.Empty(t, c.sent)
}

func TestIgnoredUpdateKindsProduceNoReply(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)

	c := newCtxStub(7)
	assert.NoError(t, h.ignoredHandler()(c))
	assert.Empty(t, c.sent)
	assert.Empty(t, c.edited)
	repo.AssertExpectations(t)
}

func TestCommandFailureSendsGenericNotice(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)
	text, _ := newRouter(h)

	repo.On("ReadLevel", mock.Anything, int64(7)).Return(0, errors.New("connection refused")).Once()

	c := newCtxStub(7)
	c.text = cmdEditFAQ
	assert.Error(t, text(c))
	assert.Contains(t, c.sentTexts(), msgGenericFailure)
}

func TestPreCheckout_DowngradeRejected(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)

	repo.On("ReadLevel", mock.Anything, int64(7)).Return(2, nil).Once()

	c := newCtxStub(7)
	c.query = &tele.PreCheckoutQuery{Sender: &tele.User{ID: 7}, Payload: "1"}
	assert.NoError(t, h.OnCheckout(c))
	assert.Equal(t, []string{msgNoDowngradeBuy}, c.accepts)
	repo.AssertNotCalled(t, "UpsertEntitlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPreCheckout_StorageFailureStillAnswersOnce(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)

	repo.On("ReadLevel", mock.Anything, int64(7)).Return(0, errors.New("storage unavailable")).Once()

	c := newCtxStub(7)
	c.query = &tele.PreCheckoutQuery{Sender: &tele.User{ID: 7}, Payload: "1"}
	assert.NoError(t, h.OnCheckout(c))
	assert.Equal(t, []string{msgInternalError}, c.accepts, "exactly one rejection answer")
}

func TestPreCheckout_BadPayloadRejected(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)

	c := newCtxStub(7)
	c.query = &tele.PreCheckoutQuery{Sender: &tele.User{ID: 7}, Payload: "not-a-level"}
	assert.NoError(t, h.OnCheckout(c))
	assert.Equal(t, []string{msgInternalError}, c.accepts)
}

func TestPreCheckout_Accepts(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)

	repo.On("ReadLevel", mock.Anything, int64(7)).Return(1, nil).Once()

	c := newCtxStub(7)
	c.query = &tele.PreCheckoutQuery{Sender: &tele.User{ID: 7}, Payload: "1"}
	assert.NoError(t, h.OnCheckout(c))
	assert.Equal(t, []string{""}, c.accepts, "plain accept, no reason")
}

func TestOnPayment_GrantsPaidLevel(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)

	repo.On("ReadEntitlement", mock.Anything, int64(7)).Return(nil, repository.ErrNotFound).Once()
	repo.On("UpsertEntitlement", mock.Anything, int64(7), 1, mock.Anything, mock.Anything, false).
		Return(nil).Once()

	c := newCtxStub(7)
	c.message = &tele.Message{Payment: &tele.Payment{Currency: "RUB", Total: 55000, Payload: "1"}}
	assert.NoError(t, h.OnPayment(c))

	texts := c.sentTexts()
	assert.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Congratulations")
	repo.AssertExpectations(t)
}

func TestCallbackUnknownTagFallsBackToFAQ(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)
	reg := tg.NewRegistry()
	h.RegisterCommands(reg, false)
	h.RegisterCallbacks(reg)
	cbRoute := h.callbackHandler(reg)

	repo.On("ReadCategoryMessage", mock.Anything, int64(7), models.CategoryFAQ).Return("the faq", nil).Once()

	c := newCtxStub(7)
	c.callback = &tele.Callback{Unique: "mystery-tag"}
	assert.NoError(t, cbRoute(c))
	assert.Equal(t, 1, c.responds)
	assert.Equal(t, []interface{}{"the faq"}, c.edited)
	repo.AssertExpectations(t)
}

func TestCallbackCancelEditResetsStep(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)
	reg := tg.NewRegistry()
	h.RegisterCallbacks(reg)
	cbRoute := h.callbackHandler(reg)

	h.conv.Set(7, convstate.StepFAQInput)

	c := newCtxStub(7)
	c.callback = &tele.Callback{Unique: cbCancelEdit}
	assert.NoError(t, cbRoute(c))
	assert.Equal(t, convstate.StepNone, h.conv.Get(7))
	assert.Equal(t, []interface{}{msgEditCancelled}, c.edited)
}

func TestStatusView_TrialHintSuppressedAfterUse(t *testing.T) {
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name     string
		rec      *models.Entitlement
		recErr   error
		wantHint bool
	}{
		{"no record shows hint", nil, repository.ErrNotFound, true},
		{"lapsed trial hides hint", &models.Entitlement{UserID: 7, Level: 1, HadFreeSubscription: true, ExpiresAt: &past}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			h := newHandlers(repo)
			repo.On("ReadEntitlement", mock.Anything, int64(7)).Return(tt.rec, tt.recErr).Once()

			c := newCtxStub(7)
			assert.NoError(t, h.ShowStatus(c))
			assert.Len(t, c.edited, 1)
			status := fmt.Sprint(c.edited[0])
			if tt.wantHint {
				assert.Contains(t, status, cmdGetTrial)
			} else {
				assert.NotContains(t, status, cmdGetTrial)
			}
			assert.Contains(t, status, cmdBuy)
		})
	}
}

func TestBuySubscriptionSendsInvoice(t *testing.T) {
	repo := new(RepoMock)
	h := newHandlers(repo)

	c := newCtxStub(7)
	assert.NoError(t, h.BuySubscription(c))
	assert.Len(t, c.sent, 1)

	inv, ok := c.sent[0].(*tele.Invoice)
	assert.True(t, ok, "expected an invoice")
	assert.Equal(t, "1", inv.Payload)
	assert.Equal(t, "RUB", inv.Currency)
	assert.Equal(t, 55000, inv.Prices[0].Amount)
	assert.Equal(t, "7", inv.Start)
}

func TestGetTrial_UserMessages(t *testing.T) {
	tests := []struct {
		name    string
		rec     *models.Entitlement
		recErr  error
		upsert  bool
		want    string
	}{
		{"fresh user gets congratulation", nil, repository.ErrNotFound, true, "Congratulations"},
		{"second trial refused", &models.Entitlement{UserID: 7, HadFreeSubscription: true}, nil, false, msgTrialUsed},
		{"downgrade refused", &models.Entitlement{UserID: 7, Level: 2}, nil, false, msgNoDowngrade},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			h := newHandlers(repo)
			repo.On("ReadEntitlement", mock.Anything, int64(7)).Return(tt.rec, tt.recErr).Once()
			if tt.upsert {
				repo.On("UpsertEntitlement", mock.Anything, int64(7), subscription.TrialLevel, mock.Anything, mock.Anything, true).
					Return(nil).Once()
			}

			c := newCtxStub(7)
			assert.NoError(t, h.GetTrial(c))
			texts := c.sentTexts()
			assert.Len(t, texts, 1)
			assert.Contains(t, texts[0], tt.want)
			repo.AssertExpectations(t)
		})
	}
}
