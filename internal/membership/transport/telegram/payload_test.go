package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"channelpass/internal/membership"
)

func TestDecodePayload(t *testing.T) {
	userID, plan := decodePayload(`{"user_id":100,"plan":"forever"}`, 555)
	assert.Equal(t, int64(100), userID)
	assert.Equal(t, membership.PlanForever, plan)
}

func TestDecodePayloadRoundTrip(t *testing.T) {
	userID, plan := decodePayload(encodePayload(42, membership.PlanMonth), 555)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, membership.PlanMonth, plan)
}

func TestDecodePayloadMalformedFallsBack(t *testing.T) {
	userID, plan := decodePayload(`not json at all`, 555)
	assert.Equal(t, int64(555), userID)
	assert.Equal(t, membership.PlanMonth, plan)
}

func TestDecodePayloadEmptyFallsBack(t *testing.T) {
	userID, plan := decodePayload("", 555)
	assert.Equal(t, int64(555), userID)
	assert.Equal(t, membership.PlanMonth, plan)
}

func TestDecodePayloadMissingFields(t *testing.T) {
	userID, plan := decodePayload(`{}`, 555)
	assert.Equal(t, int64(555), userID)
	assert.Equal(t, membership.PlanMonth, plan)
}

func TestDecodePayloadUnknownPlanFallsBack(t *testing.T) {
	userID, plan := decodePayload(`{"user_id":100,"plan":"weekly"}`, 555)
	assert.Equal(t, int64(100), userID)
	assert.Equal(t, membership.PlanMonth, plan)
}
