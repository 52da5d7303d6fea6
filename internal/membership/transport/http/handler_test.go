package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channelpass/internal/membership"
	"channelpass/internal/promocode"
	"channelpass/pkg/hash"
	"channelpass/pkg/jwt"
)

type fakeMembers struct {
	rows      map[int64]*membership.Membership
	cancelled []int64
}

func (f *fakeMembers) Status(_ context.Context, userID int64) (*membership.Membership, error) {
	return f.rows[userID], nil
}

func (f *fakeMembers) ListMembers(_ context.Context) ([]*membership.Membership, error) {
	var out []*membership.Membership
	for _, m := range f.rows {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMembers) Cancel(_ context.Context, userID int64) error {
	f.cancelled = append(f.cancelled, userID)
	delete(f.rows, userID)
	return nil
}

type fakePromo struct {
	created []*promocode.PromoCode
}

func (f *fakePromo) CreatePromoCode(_ context.Context, createdBy, code string, days, maxUses int, expiresAt *time.Time) (*promocode.PromoCode, error) {
	pc := &promocode.PromoCode{
		ID:           int64(len(f.created) + 1),
		Code:         code,
		DaysDuration: days,
		MaxUses:      maxUses,
		IsActive:     true,
		CreatedBy:    createdBy,
		ExpiresAt:    expiresAt,
	}
	f.created = append(f.created, pc)
	return pc, nil
}

func (f *fakePromo) GetAllPromoCodes(_ context.Context) ([]*promocode.PromoCode, error) {
	return f.created, nil
}

func newTestHandler(members *fakeMembers) *Handler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	passwordHash, _ := hash.HashPassword("ops-password")
	return NewHandler(members, &fakePromo{}, "admin", passwordHash, "test-secret", log)
}

func TestLogin(t *testing.T) {
	h := newTestHandler(&fakeMembers{rows: map[int64]*membership.Membership{}})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"admin","password":"ops-password"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token")

	// выданный токен валиден
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	sub, err := jwt.ParseToken("test-secret", body.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)
}

func TestLoginWrongPassword(t *testing.T) {
	h := newTestHandler(&fakeMembers{rows: map[int64]*membership.Membership{}})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"admin","password":"wrong"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetMemberNotFound(t *testing.T) {
	h := newTestHandler(&fakeMembers{rows: map[int64]*membership.Membership{}})

	r := chi.NewRouter()
	r.Get("/api/members/{id}", h.GetMember)

	req := httptest.NewRequest(http.MethodGet, "/api/members/42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMember(t *testing.T) {
	exp := time.Date(2026, 9, 28, 12, 0, 0, 0, time.UTC)
	members := &fakeMembers{rows: map[int64]*membership.Membership{
		42: {UserID: 42, ExpiresAt: &exp, Plan: membership.PlanMonth},
	}}
	h := newTestHandler(members)

	r := chi.NewRouter()
	r.Get("/api/members/{id}", h.GetMember)

	req := httptest.NewRequest(http.MethodGet, "/api/members/42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":42`)
	assert.Contains(t, w.Body.String(), `"plan":"month"`)
	assert.Contains(t, w.Body.String(), `"permanent":false`)
}

func TestKickMember(t *testing.T) {
	members := &fakeMembers{rows: map[int64]*membership.Membership{
		42: {UserID: 42, Plan: membership.PlanForever},
	}}
	h := newTestHandler(members)

	r := chi.NewRouter()
	r.Delete("/api/members/{id}", h.KickMember)

	req := httptest.NewRequest(http.MethodDelete, "/api/members/42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []int64{42}, members.cancelled)
}

func TestCreatePromoCodeValidation(t *testing.T) {
	h := newTestHandler(&fakeMembers{rows: map[int64]*membership.Membership{}})

	req := httptest.NewRequest(http.MethodPost, "/api/promocodes",
		strings.NewReader(`{"code":"x","days_duration":0,"max_uses":0}`))
	w := httptest.NewRecorder()
	h.CreatePromoCode(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePromoCode(t *testing.T) {
	h := newTestHandler(&fakeMembers{rows: map[int64]*membership.Membership{}})

	req := httptest.NewRequest(http.MethodPost, "/api/promocodes",
		strings.NewReader(`{"code":"WELCOME10","days_duration":10,"max_uses":100}`))
	w := httptest.NewRecorder()
	h.CreatePromoCode(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"WELCOME10"`)
}
