package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"channelpass/internal/membership"
	"channelpass/internal/metrics"
	"channelpass/internal/promocode"
)

var (
	ErrPromoCodeNotFound = errors.New("promo code not found or inactive")
	ErrPromoCodeExpired  = errors.New("promo code expired")
	ErrPromoCodeMaxUses  = errors.New("promo code usage limit reached")
	ErrAlreadyRedeemed   = errors.New("promo code already redeemed by this user")
)

type PromoCodeRepository interface {
	Create(ctx context.Context, pc *promocode.PromoCode) error
	GetAll(ctx context.Context) ([]*promocode.PromoCode, error)
	Deactivate(ctx context.Context, id int64) error
}

type Service struct {
	Repo PromoCodeRepository
	DB   *sql.DB
	Log  *logrus.Logger
}

func NewService(repo PromoCodeRepository, db *sql.DB, log *logrus.Logger) *Service {
	return &Service{
		Repo: repo,
		DB:   db,
		Log:  log,
	}
}

func (s *Service) CreatePromoCode(ctx context.Context, createdBy, code string, daysDuration, maxUses int, expiresAt *time.Time) (*promocode.PromoCode, error) {
	pc := &promocode.PromoCode{
		Code:         code,
		DaysDuration: daysDuration,
		MaxUses:      maxUses,
		UsedCount:    0,
		IsActive:     true,
		CreatedBy:    createdBy,
		ExpiresAt:    expiresAt,
	}

	return pc, s.Repo.Create(ctx, pc)
}

func (s *Service) GetAllPromoCodes(ctx context.Context) ([]*promocode.PromoCode, error) {
	return s.Repo.GetAll(ctx)
}

func (s *Service) DeactivatePromoCode(ctx context.Context, id int64) error {
	return s.Repo.Deactivate(ctx, id)
}

// Redeem погашает промокод и продлевает членство на его дни в одной транзакции:
// счётчик использований, в отличие от свипа, не сходится сам собой.
func (s *Service) Redeem(ctx context.Context, userID int64, code string) (*membership.Membership, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	txPromoRepo := NewTxPromoCodeRepository(tx)
	txMemberRepo := NewTxMembershipRepository(tx)

	pc, err := txPromoRepo.GetByCode(ctx, code)
	if err != nil {
		s.rollback(tx)
		if err == sql.ErrNoRows {
			return nil, ErrPromoCodeNotFound
		}
		return nil, err
	}

	if err := Validate(pc, time.Now()); err != nil {
		s.rollback(tx)
		return nil, err
	}

	used, err := txPromoRepo.HasUserUsed(ctx, userID, pc.ID)
	if err != nil {
		s.rollback(tx)
		return nil, err
	}
	if used {
		s.rollback(tx)
		return nil, ErrAlreadyRedeemed
	}

	if err := txPromoRepo.IncrementUsage(ctx, pc.ID); err != nil {
		s.rollback(tx)
		return nil, err
	}
	if err := txPromoRepo.RecordUsage(ctx, userID, pc.ID); err != nil {
		s.rollback(tx)
		return nil, err
	}

	m, err := txMemberRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.rollback(tx)
		return nil, err
	}

	switch {
	case m == nil:
		t := time.Now().UTC().AddDate(0, 0, pc.DaysDuration)
		m = &membership.Membership{UserID: userID, ExpiresAt: &t, Plan: membership.PlanMonth}
	case m.IsPermanent():
		// бессрочному продлевать нечего, но погашение уже записано
	default:
		t := m.ExpiresAt.AddDate(0, 0, pc.DaysDuration)
		m.ExpiresAt = &t
	}

	if err := txMemberRepo.Upsert(ctx, m); err != nil {
		s.rollback(tx)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.PromoRedemptionsTotal.Inc()
	s.Log.WithFields(logrus.Fields{"user_id": userID, "code": code}).Info("promo code redeemed")
	return m, nil
}

// Validate проверяет, можно ли ещё гасить этот промокод.
func Validate(pc *promocode.PromoCode, now time.Time) error {
	if !pc.IsActive {
		return ErrPromoCodeNotFound
	}
	if pc.ExpiresAt != nil && now.After(*pc.ExpiresAt) {
		return ErrPromoCodeExpired
	}
	if pc.UsedCount >= pc.MaxUses {
		return ErrPromoCodeMaxUses
	}
	return nil
}

func (s *Service) rollback(tx *sql.Tx) {
	if tx != nil {
		_ = tx.Rollback()
	}
}
