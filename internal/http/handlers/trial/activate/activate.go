// Package activate реализует HTTP-обработчик активации пробного периода.
//
// Пробный период выдаётся один раз и только аккаунтам без истории
// подписок: повторная активация и активация после отмены подписки
// отклоняются с 409 Conflict.
package activate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/creatorhub-kr/entitlement-engine/internal/http/middlewarectx"
	"github.com/creatorhub-kr/entitlement-engine/internal/http/response"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

// Service описывает интерфейс бизнес-логики активации триала.
type Service interface {
	ActivateTrial(ctx context.Context, accountUID string, now time.Time) (time.Time, error)
}

// Handler обрабатывает HTTP-запросы активации пробного периода.
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
// @Summary Активировать пробный период
// @Description Включает пятидневный пробный период. Доступно один раз и только без истории подписок.
// @Tags Trial
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Триал активирован"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Триал уже использован или есть история подписок"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /trial [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.activate"

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

	expiresAt, err := h.service.ActivateTrial(r.Context(), accountUID, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyUsed):
			log.Error("trial already used", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("trial already used"))
		case errors.Is(err, models.ErrHasSubscriptionHistory):
			log.Error("account has subscription history", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("trial is not available after a subscription"))
		default:
			log.Error("failed to activate trial", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to activate trial"))
		}
		return
	}

	log.Info("trial activated", slog.String("account_uid", accountUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"trial_expires_at": expiresAt,
	}))
}
