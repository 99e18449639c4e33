// Package me реализует HTTP-обработчик текущего состояния аккаунта:
// уровень доступа и использование месячных квот.
package me

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/creatorhub-kr/entitlement-engine/internal/http/middlewarectx"
	"github.com/creatorhub-kr/entitlement-engine/internal/http/response"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
	quotaservice "github.com/creatorhub-kr/entitlement-engine/internal/services/quota"
)

// Service описывает интерфейс бизнес-логики остатков квот.
type Service interface {
	RemainingQuota(ctx context.Context, accountUID string, now time.Time) (quotaservice.Remaining, error)
}

// Handler обрабатывает HTTP-запросы состояния аккаунта.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Состояние аккаунта
// @Description Возвращает текущий уровень доступа и использование месячных квот.
// @Tags Me
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Состояние аккаунта"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountUID, ok := r.Context().Value(middlewarectx.AccountUID).(string)
	if !ok || accountUID == "" {
		log.Error("account identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	remaining, err := h.service.RemainingQuota(r.Context(), accountUID, time.Now().UTC())
	if err != nil {
		log.Error("failed to get remaining quota", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to get account state"))
		return
	}

	linkLeft := remaining.LinkRequestCeiling - remaining.LinkRequestsUsed
	if linkLeft < 0 {
		linkLeft = 0
	}
	rewardLeft := models.RewardClaimMonthlyCeiling - remaining.RewardClaimsUsed
	if rewardLeft < 0 {
		rewardLeft = 0
	}

	data := map[string]any{
		"tier":                 remaining.Tier.String(),
		"link_request_ceiling": remaining.LinkRequestCeiling,
		"link_requests_used":   remaining.LinkRequestsUsed,
		"link_requests_left":   linkLeft,
		"reward_claim_ceiling": models.RewardClaimMonthlyCeiling,
		"reward_claims_used":   remaining.RewardClaimsUsed,
		"reward_claims_left":   rewardLeft,
	}
	if remaining.TrialExpiresAt != nil {
		data["trial_expires_at"] = remaining.TrialExpiresAt
	}

	log.Info("account state resolved", slog.String("account_uid", accountUID), slog.String("tier", remaining.Tier.String()))
	render.JSON(w, r, response.OKWithData(data))
}
