package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"channelpass/internal/membership"
	"channelpass/internal/metrics"
	promoservice "channelpass/internal/promocode/service"
	tgclient "channelpass/internal/telegram"
)

// Sender — часть Bot API, нужная обработчику. *tgbotapi.BotAPI её реализует.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type AccessService interface {
	Grant(ctx context.Context, userID int64, plan membership.Plan) (string, error)
	Status(ctx context.Context, userID int64) (*membership.Membership, error)
	Cancel(ctx context.Context, userID int64) error
}

type PromoService interface {
	Redeem(ctx context.Context, userID int64, code string) (*membership.Membership, error)
}

type Handler struct {
	bot     Sender
	access  AccessService
	promo   PromoService
	adminID int64
	log     *logrus.Logger
}

func NewHandler(bot Sender, access AccessService, promo PromoService, adminID int64, log *logrus.Logger) *Handler {
	return &Handler{
		bot:     bot,
		access:  access,
		promo:   promo,
		adminID: adminID,
		log:     log,
	}
}

// HandleUpdate разбирает входящее событие и зовёт нужный обработчик.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.PreCheckoutQuery != nil:
		h.handlePreCheckout(update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		h.handleSuccessfulPayment(ctx, update.Message)
	case update.Message != nil && update.Message.IsCommand():
		h.handleCommand(ctx, update.Message)
	}
}

func (h *Handler) handleCommand(ctx context.Context, m *tgbotapi.Message) {
	switch m.Command() {
	case "start", "buy":
		h.sendTariffs(m.Chat.ID)
	case "status":
		h.sendStatus(ctx, m.From.ID, m.Chat.ID)
	case "cancel":
		h.handleCancel(ctx, m)
	case "redeem":
		h.handleRedeem(ctx, m)
	}
}

func (h *Handler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	switch cq.Data {
	case "buy_month":
		h.sendInvoice(cq.From.ID, membership.PlanMonth)
	case "buy_forever":
		h.sendInvoice(cq.From.ID, membership.PlanForever)
	case "status":
		h.sendStatus(ctx, cq.From.ID, cq.From.ID)
	}

	if _, err := h.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		h.log.WithError(err).Debug("callback answer failed")
	}
}

func (h *Handler) sendTariffs(chatID int64) {
	text := "Привет! Я бот доступа в приватный канал.\n\n" +
		"Выберите тариф:\n" +
		"• 20 ⭐ за месяц (30 дней)\n" +
		"• 100 ⭐ навсегда\n"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💫 Месяц — 20 ⭐", "buy_month"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💎 Навсегда — 100 ⭐", "buy_forever"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Статус", "status"),
		),
	)

	if _, err := h.bot.Send(msg); err != nil {
		h.log.WithError(err).Warn("failed to send tariffs")
	}
}

func (h *Handler) sendStatus(ctx context.Context, userID, chatID int64) {
	m, err := h.access.Status(ctx, userID)
	if err != nil {
		h.log.WithField("user_id", userID).WithError(err).Error("status query failed")
		h.reply(chatID, "Не удалось проверить статус, попробуйте позже.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, statusText(m))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(msg); err != nil {
		h.log.WithError(err).Warn("failed to send status")
	}
}

func statusText(m *membership.Membership) string {
	switch {
	case m == nil:
		return "Подписка не найдена. Нажмите /buy для оформления."
	case m.IsPermanent():
		return fmt.Sprintf("У вас <b>навсегда</b> (%s).", m.Plan)
	default:
		return fmt.Sprintf("Ваша подписка (%s) активна до <b>%s</b>.", m.Plan, tgclient.FormatExpiry(*m.ExpiresAt))
	}
}

func (h *Handler) sendInvoice(userID int64, plan membership.Plan) {
	invoice := tgbotapi.InvoiceConfig{
		BaseChat:    tgbotapi.BaseChat{ChatID: userID},
		Title:       plan.Title(),
		Description: plan.Description(),
		Payload:     encodePayload(userID, plan),
		// Для Telegram Stars provider token пустой
		ProviderToken:  "",
		Currency:       "XTR",
		Prices:         []tgbotapi.LabeledPrice{{Label: plan.Title(), Amount: plan.PriceXTR()}},
		StartParameter: string(plan) + "_plan",
	}

	if _, err := h.bot.Send(invoice); err != nil {
		h.log.WithFields(logrus.Fields{"user_id": userID, "plan": plan}).WithError(err).Error("failed to send invoice")
		h.reply(userID, "Не удалось выставить счёт, попробуйте позже.")
	}
}

// handlePreCheckout всегда подтверждает: никаких проверок на этом этапе нет.
func (h *Handler) handlePreCheckout(q *tgbotapi.PreCheckoutQuery) {
	cfg := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: q.ID,
		OK:                 true,
	}
	if _, err := h.bot.Request(cfg); err != nil {
		h.log.WithError(err).Error("failed to answer pre-checkout query")
	}
}

func (h *Handler) handleSuccessfulPayment(ctx context.Context, m *tgbotapi.Message) {
	sp := m.SuccessfulPayment
	userID, plan := decodePayload(sp.InvoicePayload, m.From.ID)

	metrics.PaymentsTotal.WithLabelValues(string(plan)).Inc()
	h.log.WithFields(logrus.Fields{
		"user_id": userID,
		"plan":    plan,
		"amount":  sp.TotalAmount,
	}).Info("payment received")

	if _, err := h.access.Grant(ctx, userID, plan); err != nil {
		h.log.WithField("user_id", userID).WithError(err).Error("grant failed after payment")
		h.reply(m.Chat.ID, "Оплата получена ⭐, но выдать приглашение не удалось. Напишите администратору, доступ оформят вручную.")
		h.notifyAdmin(fmt.Sprintf("Оплата от %d (тариф %s) прошла, но выдача доступа упала: %v", userID, plan, err))
		return
	}

	if plan == membership.PlanForever {
		h.reply(m.Chat.ID, "Оплата получена ⭐. Доступ навсегда выдан!")
	} else {
		h.reply(m.Chat.ID, "Оплата получена ⭐. Доступ на месяц выдан!")
	}

	h.notifyAdmin(fmt.Sprintf("Новая покупка!\nПользователь: %s (@%s)\nТариф: %s",
		strings.TrimSpace(m.From.FirstName+" "+m.From.LastName), m.From.UserName, plan))
}

func (h *Handler) handleCancel(ctx context.Context, m *tgbotapi.Message) {
	if err := h.access.Cancel(ctx, m.From.ID); err != nil {
		h.log.WithField("user_id", m.From.ID).WithError(err).Error("cancel failed")
		h.reply(m.Chat.ID, "Не удалось отменить подписку, попробуйте позже.")
		return
	}

	h.reply(m.Chat.ID, "Вы удалены из канала. Возвращайтесь в любое время через /buy.")
}

func (h *Handler) handleRedeem(ctx context.Context, m *tgbotapi.Message) {
	code := strings.TrimSpace(m.CommandArguments())
	if code == "" {
		h.reply(m.Chat.ID, "Использование: /redeem КОД")
		return
	}

	mem, err := h.promo.Redeem(ctx, m.From.ID, code)
	if err != nil {
		h.reply(m.Chat.ID, redeemErrorText(err))
		return
	}

	if mem.IsPermanent() {
		h.reply(m.Chat.ID, "Промокод применён. У вас и так бессрочный доступ.")
	} else {
		msg := tgbotapi.NewMessage(m.Chat.ID,
			fmt.Sprintf("Промокод применён! Подписка активна до <b>%s</b>.", tgclient.FormatExpiry(*mem.ExpiresAt)))
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := h.bot.Send(msg); err != nil {
			h.log.WithError(err).Warn("failed to confirm redeem")
		}
	}
}

func redeemErrorText(err error) string {
	switch {
	case errors.Is(err, promoservice.ErrPromoCodeNotFound):
		return "Промокод не найден."
	case errors.Is(err, promoservice.ErrPromoCodeExpired):
		return "Срок действия промокода истёк."
	case errors.Is(err, promoservice.ErrPromoCodeMaxUses):
		return "Промокод больше не действует."
	case errors.Is(err, promoservice.ErrAlreadyRedeemed):
		return "Вы уже использовали этот промокод."
	default:
		return "Не удалось применить промокод, попробуйте позже."
	}
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.log.WithError(err).Warn("failed to send message")
	}
}

// notifyAdmin — best effort, ошибка не влияет на покупку.
func (h *Handler) notifyAdmin(text string) {
	if h.adminID == 0 {
		return
	}
	if _, err := h.bot.Send(tgbotapi.NewMessage(h.adminID, text)); err != nil {
		h.log.WithError(err).Warn("admin notification failed")
	}
}
