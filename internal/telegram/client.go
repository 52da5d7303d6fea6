package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Client оборачивает Bot API для работы с приватным каналом: ссылки-приглашения,
// выгон участников (ban+unban, прямого kick у Telegram нет) и уведомления.
type Client struct {
	bot       *tgbotapi.BotAPI
	channelID int64
	log       *logrus.Logger
}

func NewClient(bot *tgbotapi.BotAPI, channelID int64, log *logrus.Logger) *Client {
	return &Client{
		bot:       bot,
		channelID: channelID,
		log:       log,
	}
}

// CreateInviteLink создаёт одноразовую ссылку (member_limit = 1), истекающую
// вместе с подпиской. Для бессрочных тарифов срок не задаётся.
func (c *Client) CreateInviteLink(_ context.Context, userID int64, expiresAt *time.Time) (string, error) {
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: c.channelID},
		Name:        fmt.Sprintf("invite_%d_%d", userID, time.Now().Unix()),
		MemberLimit: 1,
	}
	if expiresAt != nil {
		cfg.ExpireDate = int(expiresAt.Unix())
	}

	resp, err := c.bot.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("createChatInviteLink: %w", err)
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invite link: %w", err)
	}

	return link.InviteLink, nil
}

// Evict выгоняет подписчика из канала парой ban+unban, чтобы не оставить его в
// чёрном списке. Ошибки "уже не участник" глотаются по отдельности для каждого
// вызова.
func (c *Client) Evict(_ context.Context, userID int64) error {
	member := tgbotapi.ChatMemberConfig{ChatID: c.channelID, UserID: userID}

	var evictErr error
	if _, err := c.bot.Request(tgbotapi.BanChatMemberConfig{ChatMemberConfig: member}); err != nil {
		if !isNotMemberErr(err) {
			evictErr = fmt.Errorf("banChatMember: %w", err)
		} else {
			c.log.WithField("user_id", userID).Debug("ban skipped, user not in channel")
		}
	}
	if _, err := c.bot.Request(tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: member, OnlyIfBanned: true}); err != nil {
		if !isNotMemberErr(err) && evictErr == nil {
			evictErr = fmt.Errorf("unbanChatMember: %w", err)
		}
	}

	return evictErr
}

// SendInvite отправляет подписчику ссылку с кнопкой и точным сроком действия.
func (c *Client) SendInvite(_ context.Context, userID int64, link string, expiresAt *time.Time) error {
	var text string
	if expiresAt != nil {
		text = fmt.Sprintf("Доступ выдан до <b>%s</b>.", FormatExpiry(*expiresAt))
	} else {
		text = "Доступ выдан <b>навсегда</b>."
	}

	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("👉 Войти в приватный канал", link),
		),
	)

	_, err := c.bot.Send(msg)
	return err
}

func (c *Client) NotifyExpired(_ context.Context, userID int64) error {
	return c.Send(context.Background(), userID,
		"Срок подписки истёк, доступ к каналу закрыт. Вы можете продлить подписку командой /buy.")
}

func (c *Client) Send(_ context.Context, chatID int64, text string) error {
	_, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// FormatExpiry — единый формат отображения срока подписки.
func FormatExpiry(t time.Time) string {
	return t.UTC().Format("02.01.2006 15:04 UTC")
}

// isNotMemberErr распознаёт ответы Telegram на попытку выгнать того, кого в
// канале уже нет.
func isNotMemberErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToUpper(err.Error())
	for _, s := range []string{
		"USER_NOT_PARTICIPANT",
		"PARTICIPANT_ID_INVALID",
		"USER NOT FOUND",
		"CHAT MEMBER NOT FOUND",
		"NOT A MEMBER",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
