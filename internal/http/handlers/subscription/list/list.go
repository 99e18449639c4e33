// Package list реализует HTTP-обработчик списка подписок аккаунта.
package list

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
)

// Service описывает интерфейс бизнес-логики списка подписок.
type Service interface {
	ListSubscriptions(ctx context.Context, accountUID string) ([]*models.Subscription, error)
}

// Handler обрабатывает HTTP-запросы списка подписок.
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

// item — подписка с вычисленным признаком действия.
type item struct {
	ID        int                       `json:"id"`
	Plan      models.Plan               `json:"plan"`
	PlanName  string                    `json:"plan_name"`
	Status    models.SubscriptionStatus `json:"status"`
	Price     int                       `json:"price"`
	StartedAt time.Time                 `json:"started_at"`
	ExpiresAt *time.Time                `json:"expires_at"`
	Effective bool                      `json:"effective"`
}

// ServeHTTP godoc
// @Summary Список подписок
// @Description Возвращает все подписки текущего аккаунта с признаком действия.
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Список подписок"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.list"

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

	subs, err := h.service.ListSubscriptions(r.Context(), accountUID)
	if err != nil {
		log.Error("failed to list subscriptions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list subscriptions"))
		return
	}

	now := time.Now().UTC()
	items := make([]item, 0, len(subs))
	for _, sub := range subs {
		items = append(items, item{
			ID:        sub.ID,
			Plan:      sub.Plan,
			PlanName:  sub.Plan.Info().Name,
			Status:    sub.Status,
			Price:     sub.Price,
			StartedAt: sub.StartedAt,
			ExpiresAt: sub.ExpiresAt,
			Effective: sub.IsEffective(now),
		})
	}

	log.Info("subscriptions listed", slog.String("account_uid", accountUID), slog.Int("count", len(items)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscriptions": items,
		"count":         len(items),
	}))
}
