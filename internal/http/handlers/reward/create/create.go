// Package create реализует HTTP-обработчик заявки на риворд.
//
// Заявки доступны только подписчикам. Потолок фиксирован; повторная
// заявка по тому же посту отклоняется с 409 Conflict.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/creatorhub-kr/entitlement-engine/internal/http/middlewarectx"
	"github.com/creatorhub-kr/entitlement-engine/internal/http/response"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

// Service описывает интерфейс бизнес-логики заявок на риворд.
type Service interface {
	ConsumeRewardClaim(ctx context.Context, accountUID, postRef string, now time.Time) (int, error)
}

// Handler обрабатывает HTTP-запросы создания заявки на риворд.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать заявку на риворд
// @Description Списывает одну заявку из фиксированной месячной квоты.
// @Tags Rewards
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.RewardClaimCreate true "Данные заявки"
// @Success 200 {object} map[string]any "Заявка создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Доступно только подписчикам"
// @Failure 409 {object} response.ErrorResponse "Повторная заявка по тому же посту"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Месячный потолок исчерпан"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /rewards [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reward.create"

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

	var req models.RewardClaimCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	id, err := h.service.ConsumeRewardClaim(r.Context(), accountUID, req.PostRef, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSubscriberOnly):
			log.Error("reward claim requires subscriber tier", sl.Err(err))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("reward claims are available to subscribers only"))
		case errors.Is(err, models.ErrQuotaExceeded):
			log.Error("monthly quota exceeded", sl.Err(err))
			w.WriteHeader(http.StatusTooManyRequests)
			render.JSON(w, r, response.Error("monthly reward claim quota exceeded"))
		case errors.Is(err, models.ErrConflict):
			log.Error("duplicate claim for post", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("reward claim for this post already exists"))
		default:
			log.Error("failed to create reward claim", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to create reward claim"))
		}
		return
	}

	log.Info("reward claim created", slog.String("account_uid", accountUID), slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"reward_claim_id": id,
		"status":          models.RewardClaimPending,
	}))
}
