package repository

import (
	"context"
	"database/sql"
	"time"

	"channelpass/internal/membership"
)

type MembershipRepository struct {
	db *sql.DB
}

func NewMembershipRepository(db *sql.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS members (
            user_id    BIGINT PRIMARY KEY,
            expires_at TIMESTAMPTZ,
            plan       TEXT NOT NULL
        )`)
	return err
}

func (r *MembershipRepository) Upsert(ctx context.Context, m *membership.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (user_id, expires_at, plan) VALUES ($1, $2, $3)
         ON CONFLICT (user_id) DO UPDATE SET expires_at = EXCLUDED.expires_at, plan = EXCLUDED.plan`,
		m.UserID, m.ExpiresAt, m.Plan)
	return err
}

func (r *MembershipRepository) GetByUserID(ctx context.Context, userID int64) (*membership.Membership, error) {
	m := &membership.Membership{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at, plan FROM members WHERE user_id = $1`,
		userID).Scan(&m.UserID, &m.ExpiresAt, &m.Plan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// ListExpired возвращает всех подписчиков с истекшим сроком. Бессрочные строки не попадают.
func (r *MembershipRepository) ListExpired(ctx context.Context, now time.Time) ([]*membership.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, expires_at, plan FROM members
         WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*membership.Membership
	for rows.Next() {
		m := &membership.Membership{}
		if err := rows.Scan(&m.UserID, &m.ExpiresAt, &m.Plan); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *MembershipRepository) List(ctx context.Context) ([]*membership.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, expires_at, plan FROM members ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*membership.Membership
	for rows.Next() {
		m := &membership.Membership{}
		if err := rows.Scan(&m.UserID, &m.ExpiresAt, &m.Plan); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *MembershipRepository) Delete(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE user_id = $1`, userID)
	return err
}
