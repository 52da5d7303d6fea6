package service

import (
	"context"
	"database/sql"

	"channelpass/internal/membership"
	"channelpass/internal/promocode"
)

// TxPromoCodeRepository — работа с промокодами внутри транзакции погашения.
type TxPromoCodeRepository struct {
	tx *sql.Tx
}

func NewTxPromoCodeRepository(tx *sql.Tx) *TxPromoCodeRepository {
	return &TxPromoCodeRepository{tx: tx}
}

func (r *TxPromoCodeRepository) GetByCode(ctx context.Context, code string) (*promocode.PromoCode, error) {
	pc := &promocode.PromoCode{}
	query := `SELECT id, code, days_duration, max_uses, used_count, is_active, created_by, created_at, expires_at
              FROM promo_codes WHERE code = $1 AND is_active = true FOR UPDATE`

	err := r.tx.QueryRowContext(ctx, query, code).Scan(
		&pc.ID,
		&pc.Code,
		&pc.DaysDuration,
		&pc.MaxUses,
		&pc.UsedCount,
		&pc.IsActive,
		&pc.CreatedBy,
		&pc.CreatedAt,
		&pc.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	return pc, nil
}

func (r *TxPromoCodeRepository) IncrementUsage(ctx context.Context, promoCodeID int64) error {
	_, err := r.tx.ExecContext(ctx,
		`UPDATE promo_codes SET used_count = used_count + 1 WHERE id = $1`, promoCodeID)
	return err
}

func (r *TxPromoCodeRepository) RecordUsage(ctx context.Context, userID, promoCodeID int64) error {
	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO promo_code_usages (user_id, promo_code_id, used_at) VALUES ($1, $2, NOW())`,
		userID, promoCodeID)
	return err
}

func (r *TxPromoCodeRepository) HasUserUsed(ctx context.Context, userID, promoCodeID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM promo_code_usages WHERE user_id = $1 AND promo_code_id = $2)`,
		userID, promoCodeID).Scan(&exists)
	return exists, err
}

// TxMembershipRepository — продление членства в той же транзакции.
type TxMembershipRepository struct {
	tx *sql.Tx
}

func NewTxMembershipRepository(tx *sql.Tx) *TxMembershipRepository {
	return &TxMembershipRepository{tx: tx}
}

func (r *TxMembershipRepository) GetByUserID(ctx context.Context, userID int64) (*membership.Membership, error) {
	m := &membership.Membership{}
	err := r.tx.QueryRowContext(ctx,
		`SELECT user_id, expires_at, plan FROM members WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&m.UserID, &m.ExpiresAt, &m.Plan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *TxMembershipRepository) Upsert(ctx context.Context, m *membership.Membership) error {
	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO members (user_id, expires_at, plan) VALUES ($1, $2, $3)
         ON CONFLICT (user_id) DO UPDATE SET expires_at = EXCLUDED.expires_at, plan = EXCLUDED.plan`,
		m.UserID, m.ExpiresAt, m.Plan)
	return err
}
