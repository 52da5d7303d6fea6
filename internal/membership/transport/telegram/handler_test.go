package telegram

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channelpass/internal/membership"
	promoservice "channelpass/internal/promocode/service"
)

type fakeSender struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, nil
}

func (s *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.requested = append(s.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *fakeSender) sentTexts() []string {
	var out []string
	for _, c := range s.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

type fakeAccess struct {
	granted   []int64
	lastPlan  membership.Plan
	grantErr  error
	cancelled []int64
	statusRow *membership.Membership
	statusErr error
	grantLink string
	cancelErr error
}

func (a *fakeAccess) Grant(_ context.Context, userID int64, plan membership.Plan) (string, error) {
	if a.grantErr != nil {
		return "", a.grantErr
	}
	a.granted = append(a.granted, userID)
	a.lastPlan = plan
	return a.grantLink, nil
}

func (a *fakeAccess) Status(_ context.Context, _ int64) (*membership.Membership, error) {
	return a.statusRow, a.statusErr
}

func (a *fakeAccess) Cancel(_ context.Context, userID int64) error {
	if a.cancelErr != nil {
		return a.cancelErr
	}
	a.cancelled = append(a.cancelled, userID)
	return nil
}

type fakePromo struct {
	result *membership.Membership
	err    error
}

func (p *fakePromo) Redeem(_ context.Context, _ int64, _ string) (*membership.Membership, error) {
	return p.result, p.err
}

func newTestHandler(bot *fakeSender, access *fakeAccess, promo *fakePromo) *Handler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewHandler(bot, access, promo, 777, log)
}

func paymentUpdate(fromID int64, payload string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: fromID, FirstName: "Test"},
			Chat: &tgbotapi.Chat{ID: fromID},
			SuccessfulPayment: &tgbotapi.SuccessfulPayment{
				Currency:       "XTR",
				TotalAmount:    20,
				InvoicePayload: payload,
			},
		},
	}
}

func TestSuccessfulPaymentGrantsAccess(t *testing.T) {
	bot := &fakeSender{}
	access := &fakeAccess{grantLink: "https://t.me/+x"}
	h := newTestHandler(bot, access, &fakePromo{})

	h.HandleUpdate(context.Background(), paymentUpdate(100, `{"user_id":100,"plan":"forever"}`))

	assert.Equal(t, []int64{100}, access.granted)
	assert.Equal(t, membership.PlanForever, access.lastPlan)

	texts := bot.sentTexts()
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[0], "навсегда")
	// уведомление администратора
	last := bot.sent[len(bot.sent)-1].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(777), last.ChatID)
	assert.Contains(t, last.Text, "Новая покупка")
}

func TestSuccessfulPaymentMalformedPayloadFallsBack(t *testing.T) {
	bot := &fakeSender{}
	access := &fakeAccess{grantLink: "https://t.me/+x"}
	h := newTestHandler(bot, access, &fakePromo{})

	h.HandleUpdate(context.Background(), paymentUpdate(555, "garbage"))

	// доступ всё равно выдан — отправителю, на месяц
	assert.Equal(t, []int64{555}, access.granted)
	assert.Equal(t, membership.PlanMonth, access.lastPlan)
}

func TestSuccessfulPaymentGrantFailureInformsUserAndAdmin(t *testing.T) {
	bot := &fakeSender{}
	access := &fakeAccess{grantErr: errors.New("invite link failed")}
	h := newTestHandler(bot, access, &fakePromo{})

	h.HandleUpdate(context.Background(), paymentUpdate(100, `{"user_id":100,"plan":"month"}`))

	texts := bot.sentTexts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "не удалось")
	assert.Contains(t, texts[1], "выдача доступа упала")
}

func TestPreCheckoutAlwaysAccepted(t *testing.T) {
	bot := &fakeSender{}
	h := newTestHandler(bot, &fakeAccess{}, &fakePromo{})

	h.HandleUpdate(context.Background(), tgbotapi.Update{
		PreCheckoutQuery: &tgbotapi.PreCheckoutQuery{ID: "pcq-1"},
	})

	require.Len(t, bot.requested, 1)
	cfg, ok := bot.requested[0].(tgbotapi.PreCheckoutConfig)
	require.True(t, ok)
	assert.True(t, cfg.OK)
	assert.Equal(t, "pcq-1", cfg.PreCheckoutQueryID)
}

func TestBuyCallbackSendsInvoice(t *testing.T) {
	bot := &fakeSender{}
	h := newTestHandler(bot, &fakeAccess{}, &fakePromo{})

	h.HandleUpdate(context.Background(), tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			Data: "buy_month",
			From: &tgbotapi.User{ID: 100},
		},
	})

	require.Len(t, bot.sent, 1)
	invoice, ok := bot.sent[0].(tgbotapi.InvoiceConfig)
	require.True(t, ok)
	assert.Equal(t, "XTR", invoice.Currency)
	assert.Equal(t, 20, invoice.Prices[0].Amount)

	userID, plan := decodePayload(invoice.Payload, 0)
	assert.Equal(t, int64(100), userID)
	assert.Equal(t, membership.PlanMonth, plan)
}

func TestCancelCommand(t *testing.T) {
	bot := &fakeSender{}
	access := &fakeAccess{}
	h := newTestHandler(bot, access, &fakePromo{})

	h.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:     &tgbotapi.User{ID: 100},
			Chat:     &tgbotapi.Chat{ID: 100},
			Text:     "/cancel",
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 7}},
		},
	})

	assert.Equal(t, []int64{100}, access.cancelled)
	texts := bot.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "удалены из канала")
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Подписка не найдена. Нажмите /buy для оформления.", statusText(nil))

	perm := &membership.Membership{UserID: 1, Plan: membership.PlanForever}
	assert.Contains(t, statusText(perm), "навсегда")

	exp := time.Date(2026, 9, 28, 12, 0, 0, 0, time.UTC)
	timed := &membership.Membership{UserID: 1, ExpiresAt: &exp, Plan: membership.PlanMonth}
	assert.Contains(t, statusText(timed), "28.09.2026 12:00 UTC")
}

func TestRedeemErrorText(t *testing.T) {
	assert.Equal(t, "Промокод не найден.", redeemErrorText(promoservice.ErrPromoCodeNotFound))
	assert.Equal(t, "Срок действия промокода истёк.", redeemErrorText(promoservice.ErrPromoCodeExpired))
	assert.Equal(t, "Промокод больше не действует.", redeemErrorText(promoservice.ErrPromoCodeMaxUses))
	assert.Equal(t, "Вы уже использовали этот промокод.", redeemErrorText(promoservice.ErrAlreadyRedeemed))
	assert.Equal(t, "Не удалось применить промокод, попробуйте позже.", redeemErrorText(errors.New("db down")))
}
