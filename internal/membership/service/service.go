package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"channelpass/internal/membership"
	"channelpass/internal/metrics"
)

type MembershipRepository interface {
	Upsert(ctx context.Context, m *membership.Membership) error
	GetByUserID(ctx context.Context, userID int64) (*membership.Membership, error)
	ListExpired(ctx context.Context, now time.Time) ([]*membership.Membership, error)
	List(ctx context.Context) ([]*membership.Membership, error)
	Delete(ctx context.Context, userID int64) error
}

// ChannelGate — операции с приватным каналом через Telegram.
type ChannelGate interface {
	// CreateInviteLink выдаёт одноразовую ссылку, истекающую вместе с подпиской.
	CreateInviteLink(ctx context.Context, userID int64, expiresAt *time.Time) (string, error)
	// Evict удаляет подписчика из канала (ban+unban). Ошибки класса
	// "уже не участник" гейт глотает сам.
	Evict(ctx context.Context, userID int64) error
	SendInvite(ctx context.Context, userID int64, link string, expiresAt *time.Time) error
	NotifyExpired(ctx context.Context, userID int64) error
}

type Service struct {
	repo    MembershipRepository
	gate    ChannelGate
	subDays int
	log     *logrus.Logger
}

func NewService(repo MembershipRepository, gate ChannelGate, subDays int, log *logrus.Logger) *Service {
	return &Service{
		repo:    repo,
		gate:    gate,
		subDays: subDays,
		log:     log,
	}
}

// Grant выдаёт доступ после успешной оплаты: upsert строки, одноразовая
// ссылка-приглашение, сообщение подписчику. Повторная покупка перезаписывает
// тариф и срок. Ошибка создания ссылки возвращается вызывающему: строка
// остаётся (оплата уже получена), но молча терять приглашение нельзя.
func (s *Service) Grant(ctx context.Context, userID int64, plan membership.Plan) (string, error) {
	var expiresAt *time.Time
	if plan != membership.PlanForever {
		t := time.Now().UTC().AddDate(0, 0, s.subDays)
		expiresAt = &t
	}

	m := &membership.Membership{
		UserID:    userID,
		ExpiresAt: expiresAt,
		Plan:      plan,
	}
	if err := s.repo.Upsert(ctx, m); err != nil {
		return "", fmt.Errorf("upsert membership: %w", err)
	}

	link, err := s.gate.CreateInviteLink(ctx, userID, expiresAt)
	if err != nil {
		metrics.InviteFailuresTotal.Inc()
		return "", fmt.Errorf("create invite link: %w", err)
	}
	metrics.InvitesIssuedTotal.Inc()

	if err := s.gate.SendInvite(ctx, userID, link, expiresAt); err != nil {
		return "", fmt.Errorf("send invite: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "plan": plan}).Info("access granted")
	return link, nil
}

// Status возвращает членство подписчика или nil, если его нет.
func (s *Service) Status(ctx context.Context, userID int64) (*membership.Membership, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *Service) ListMembers(ctx context.Context) ([]*membership.Membership, error) {
	return s.repo.List(ctx)
}

// Cancel убирает подписчика из канала и удаляет его строку. Отсутствие строки
// или членства в канале ошибкой не считается.
func (s *Service) Cancel(ctx context.Context, userID int64) error {
	if err := s.gate.Evict(ctx, userID); err != nil {
		metrics.EvictionFailuresTotal.Inc()
		s.log.WithField("user_id", userID).WithError(err).Warn("eviction failed on cancel")
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}

	s.log.WithField("user_id", userID).Info("membership cancelled")
	return nil
}

// Extend добавляет дни к подписке (промокоды). Бессрочную подписку не трогает,
// при отсутствии строки создаёт месячную от текущего момента.
func (s *Service) Extend(ctx context.Context, userID int64, days int) (*membership.Membership, error) {
	m, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch {
	case m == nil:
		t := time.Now().UTC().AddDate(0, 0, days)
		m = &membership.Membership{UserID: userID, ExpiresAt: &t, Plan: membership.PlanMonth}
	case m.IsPermanent():
		return m, nil
	default:
		t := m.ExpiresAt.AddDate(0, 0, days)
		m.ExpiresAt = &t
	}

	if err := s.repo.Upsert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SweepExpired — один проход свипера: выбрать истекшие строки, для каждой
// попытаться выгнать из канала и уведомить, затем удалить строку независимо
// от исхода. Повторный запуск безопасен.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	metrics.SweepsTotal.Inc()

	expired, err := s.repo.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	revoked := 0
	for _, m := range expired {
		if err := s.gate.Evict(ctx, m.UserID); err != nil {
			metrics.EvictionFailuresTotal.Inc()
			s.log.WithField("user_id", m.UserID).WithError(err).Warn("eviction failed on sweep")
		}
		if err := s.gate.NotifyExpired(ctx, m.UserID); err != nil {
			s.log.WithField("user_id", m.UserID).WithError(err).Debug("expiry notification failed")
		}

		// Удаляем строку после попытки выгнать: упавший проход оставит
		// stale-строку, которую подберёт следующий.
		if err := s.repo.Delete(ctx, m.UserID); err != nil {
			s.log.WithField("user_id", m.UserID).WithError(err).Error("failed to delete expired membership")
			continue
		}

		metrics.MembersRevokedTotal.Inc()
		revoked++
		s.log.WithFields(logrus.Fields{"user_id": m.UserID, "plan": m.Plan}).Info("membership expired, access revoked")
	}

	return revoked, nil
}
