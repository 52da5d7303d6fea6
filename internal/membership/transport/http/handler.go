package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"channelpass/internal/membership"
	"channelpass/internal/promocode"
	"channelpass/pkg/hash"
	"channelpass/pkg/jwt"
	"channelpass/pkg/middleware"
)

type MemberService interface {
	Status(ctx context.Context, userID int64) (*membership.Membership, error)
	ListMembers(ctx context.Context) ([]*membership.Membership, error)
	Cancel(ctx context.Context, userID int64) error
}

type PromoCodeService interface {
	CreatePromoCode(ctx context.Context, createdBy, code string, daysDuration, maxUses int, expiresAt *time.Time) (*promocode.PromoCode, error)
	GetAllPromoCodes(ctx context.Context) ([]*promocode.PromoCode, error)
}

type Handler struct {
	Members MemberService
	Promo   PromoCodeService

	opsUser         string
	opsPasswordHash string
	jwtSecret       string

	validate *validator.Validate
	log      *logrus.Logger
}

func NewHandler(members MemberService, promo PromoCodeService, opsUser, opsPasswordHash, jwtSecret string, log *logrus.Logger) *Handler {
	return &Handler{
		Members:         members,
		Promo:           promo,
		opsUser:         opsUser,
		opsPasswordHash: opsPasswordHash,
		jwtSecret:       jwtSecret,
		validate:        validator.New(),
		log:             log,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if req.Username != h.opsUser || !hash.CheckPassword(h.opsPasswordHash, req.Password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := jwt.GenerateToken(h.jwtSecret, req.Username, 24*time.Hour)
	if err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{"token": token})
}

type memberResponse struct {
	UserID    int64      `json:"user_id"`
	Plan      string     `json:"plan"`
	ExpiresAt *time.Time `json:"expires_at"`
	Permanent bool       `json:"permanent"`
}

func toMemberResponse(m *membership.Membership) memberResponse {
	return memberResponse{
		UserID:    m.UserID,
		Plan:      string(m.Plan),
		ExpiresAt: m.ExpiresAt,
		Permanent: m.IsPermanent(),
	}
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Members.ListMembers(r.Context())
	if err != nil {
		http.Error(w, "failed to list members", http.StatusInternalServerError)
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, toMemberResponse(m))
	}

	writeJSON(w, resp)
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid member id", http.StatusBadRequest)
		return
	}

	m, err := h.Members.Status(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to get member", http.StatusInternalServerError)
		return
	}
	if m == nil {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}

	writeJSON(w, toMemberResponse(m))
}

// KickMember — ручной вариант /cancel со стороны оператора.
func (h *Handler) KickMember(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid member id", http.StatusBadRequest)
		return
	}

	if err := h.Members.Cancel(r.Context(), userID); err != nil {
		h.log.WithField("user_id", userID).WithError(err).Error("ops kick failed")
		http.Error(w, "failed to kick member", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createPromoRequest struct {
	Code         string     `json:"code" validate:"required,min=3,max=64"`
	DaysDuration int        `json:"days_duration" validate:"required,gt=0"`
	MaxUses      int        `json:"max_uses" validate:"required,gt=0"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

func (h *Handler) CreatePromoCode(w http.ResponseWriter, r *http.Request) {
	var req createPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	createdBy, _ := r.Context().Value(middleware.OpsUserKey).(string)

	pc, err := h.Promo.CreatePromoCode(r.Context(), createdBy, req.Code, req.DaysDuration, req.MaxUses, req.ExpiresAt)
	if err != nil {
		http.Error(w, "failed to create promo code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(pc)
}

func (h *Handler) ListPromoCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.Promo.GetAllPromoCodes(r.Context())
	if err != nil {
		http.Error(w, "failed to list promo codes", http.StatusInternalServerError)
		return
	}

	writeJSON(w, codes)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
