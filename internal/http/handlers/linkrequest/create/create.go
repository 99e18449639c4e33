// Package create реализует HTTP-обработчик заявки на ссылку.
//
// Потолок заявок зависит от текущего уровня доступа и пересчитывается
// при каждом запросе. Превышение месячного потолка возвращает 429.
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

// Service описывает интерфейс бизнес-логики заявок на ссылки.
type Service interface {
	ConsumeLinkRequest(ctx context.Context, accountUID, targetRef string, now time.Time) (int, error)
}

// Handler обрабатывает HTTP-запросы создания заявки на ссылку.
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
// @Summary Создать заявку на ссылку
// @Description Списывает одну заявку из месячной квоты текущего уровня.
// @Tags LinkRequests
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.LinkRequestCreate true "Данные заявки"
// @Success 200 {object} map[string]any "Заявка создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Месячный потолок исчерпан"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /link-requests [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.linkrequest.create"

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

	var req models.LinkRequestCreate
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

	id, err := h.service.ConsumeLinkRequest(r.Context(), accountUID, req.TargetRef, time.Now().UTC())
	if err != nil {
		if errors.Is(err, models.ErrQuotaExceeded) {
			log.Error("monthly quota exceeded", sl.Err(err))
			w.WriteHeader(http.StatusTooManyRequests)
			render.JSON(w, r, response.Error("monthly link request quota exceeded"))
			return
		}
		log.Error("failed to create link request", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to create link request"))
		return
	}

	log.Info("link request created", slog.String("account_uid", accountUID), slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"link_request_id": id,
	}))
}
