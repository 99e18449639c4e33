// Package review реализует HTTP-обработчики модерации заявок на риворд.
//
// Доступны только администраторам. Одобрение продлевает активную
// подписку автора заявки; решение по не-pending заявке отклоняется.
package review

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/creatorhub-kr/entitlement-engine/internal/http/response"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

// Service описывает интерфейс бизнес-логики модерации ривордов.
type Service interface {
	ApproveRewardClaim(ctx context.Context, claimID int, now time.Time) error
	RejectRewardClaim(ctx context.Context, claimID int) error
}

// Handler обрабатывает HTTP-запросы модерации заявок.
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

// Approve godoc
// @Summary Одобрить заявку на риворд
// @Description Помечает заявку одобренной и продлевает активную подписку автора на 7 дней.
// @Tags Rewards
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Success 200 {object} map[string]any "Заявка одобрена"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 409 {object} response.ErrorResponse "Заявка уже рассмотрена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /rewards/{id}/approve [post]
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reward.review.approve"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		log.Error("invalid claim id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	if err := h.service.ApproveRewardClaim(r.Context(), id, time.Now().UTC()); err != nil {
		h.writeReviewError(w, r, log, err, "approve")
		return
	}

	log.Info("reward claim approved", slog.Int("claim_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"reward_claim_id": id,
		"status":          models.RewardClaimApproved,
	}))
}

// Reject godoc
// @Summary Отклонить заявку на риворд
// @Description Помечает заявку отклонённой без продления подписки.
// @Tags Rewards
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Success 200 {object} map[string]any "Заявка отклонена"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 409 {object} response.ErrorResponse "Заявка уже рассмотрена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /rewards/{id}/reject [post]
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reward.review.reject"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		log.Error("invalid claim id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	if err := h.service.RejectRewardClaim(r.Context(), id); err != nil {
		h.writeReviewError(w, r, log, err, "reject")
		return
	}

	log.Info("reward claim rejected", slog.Int("claim_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"reward_claim_id": id,
		"status":          models.RewardClaimRejected,
	}))
}

func (h *Handler) writeReviewError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, action string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		log.Error("reward claim not found", sl.Err(err))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("reward claim not found"))
	case errors.Is(err, models.ErrConflict):
		log.Error("reward claim already reviewed", sl.Err(err))
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("reward claim already reviewed"))
	default:
		log.Error("failed to "+action+" reward claim", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to "+action+" reward claim"))
	}
}
