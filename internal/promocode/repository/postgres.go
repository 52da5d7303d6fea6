package repository

import (
	"context"
	"database/sql"

	"channelpass/internal/promocode"
)

type PostgresPromoCodeRepository struct {
	db *sql.DB
}

func NewPostgresPromoCodeRepository(db *sql.DB) *PostgresPromoCodeRepository {
	return &PostgresPromoCodeRepository{db: db}
}

func (r *PostgresPromoCodeRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS promo_codes (
            id            BIGSERIAL PRIMARY KEY,
            code          TEXT UNIQUE NOT NULL,
            days_duration INT NOT NULL,
            max_uses      INT NOT NULL,
            used_count    INT NOT NULL DEFAULT 0,
            is_active     BOOLEAN NOT NULL DEFAULT TRUE,
            created_by    TEXT NOT NULL,
            created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            expires_at    TIMESTAMPTZ
        )`)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS promo_code_usages (
            id            BIGSERIAL PRIMARY KEY,
            user_id       BIGINT NOT NULL,
            promo_code_id BIGINT NOT NULL REFERENCES promo_codes(id),
            used_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (user_id, promo_code_id)
        )`)
	return err
}

func (r *PostgresPromoCodeRepository) Create(ctx context.Context, pc *promocode.PromoCode) error {
	query := `
        INSERT INTO promo_codes (code, days_duration, max_uses, is_active, created_by, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		pc.Code, pc.DaysDuration, pc.MaxUses, pc.IsActive, pc.CreatedBy, pc.ExpiresAt).
		Scan(&pc.ID, &pc.CreatedAt)
}

func (r *PostgresPromoCodeRepository) GetAll(ctx context.Context) ([]*promocode.PromoCode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, days_duration, max_uses, used_count, is_active, created_by, created_at, expires_at
         FROM promo_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*promocode.PromoCode
	for rows.Next() {
		pc := &promocode.PromoCode{}
		if err := rows.Scan(
			&pc.ID,
			&pc.Code,
			&pc.DaysDuration,
			&pc.MaxUses,
			&pc.UsedCount,
			&pc.IsActive,
			&pc.CreatedBy,
			&pc.CreatedAt,
			&pc.ExpiresAt,
		); err != nil {
			return nil, err
		}
		result = append(result, pc)
	}
	return result, rows.Err()
}

func (r *PostgresPromoCodeRepository) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE promo_codes SET is_active = false WHERE id = $1`, id)
	return err
}
