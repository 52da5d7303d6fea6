package telegram

import (
	"encoding/json"

	"channelpass/internal/membership"
)

type invoicePayload struct {
	UserID int64  `json:"user_id"`
	Plan   string `json:"plan"`
}

func encodePayload(userID int64, plan membership.Plan) string {
	b, _ := json.Marshal(invoicePayload{UserID: userID, Plan: string(plan)})
	return string(b)
}

// decodePayload разбирает payload инвойса. Платёж к этому моменту уже списан,
// поэтому битый payload не отклоняется: подставляются отправитель события и
// месячный тариф.
func decodePayload(payload string, fallbackUserID int64) (int64, membership.Plan) {
	var p invoicePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return fallbackUserID, membership.PlanMonth
	}

	userID := p.UserID
	if userID == 0 {
		userID = fallbackUserID
	}

	return userID, membership.ParsePlan(p.Plan)
}
