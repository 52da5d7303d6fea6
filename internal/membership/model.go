package membership

import "time"

// Membership — одна строка на подписчика. ExpiresAt == nil означает бессрочный доступ.
type Membership struct {
	UserID    int64
	ExpiresAt *time.Time
	Plan      Plan
}

func (m *Membership) IsPermanent() bool {
	return m.ExpiresAt == nil
}

func (m *Membership) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now)
}

type Plan string

const (
	PlanMonth   Plan = "month"
	PlanForever Plan = "forever"
)

// PriceXTR возвращает цену тарифа в Telegram Stars.
func (p Plan) PriceXTR() int {
	switch p {
	case PlanForever:
		return 100
	default:
		return 20
	}
}

func (p Plan) Title() string {
	switch p {
	case PlanForever:
		return "Доступ в канал (навсегда)"
	default:
		return "Доступ в канал (месяц)"
	}
}

func (p Plan) Description() string {
	switch p {
	case PlanForever:
		return "Неограниченный доступ в приватный канал"
	default:
		return "30 дней доступа в приватный канал"
	}
}

// ParsePlan возвращает известный тариф или month как безопасный fallback.
func ParsePlan(s string) Plan {
	switch Plan(s) {
	case PlanMonth, PlanForever:
		return Plan(s)
	default:
		return PlanMonth
	}
}
