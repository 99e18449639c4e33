// Package list реализует HTTP-обработчик списка заявок на ссылки.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/creatorhub-kr/entitlement-engine/internal/http/middlewarectx"
	"github.com/creatorhub-kr/entitlement-engine/internal/http/response"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

const defaultLimit = 20

// Service описывает интерфейс бизнес-логики списка заявок.
type Service interface {
	ListLinkRequests(ctx context.Context, accountUID string, limit, offset int) ([]*models.LinkRequest, error)
}

// Handler обрабатывает HTTP-запросы списка заявок на ссылки.
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
// @Summary Список заявок на ссылки
// @Description Возвращает заявки текущего аккаунта с пагинацией.
// @Tags LinkRequests
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Количество записей (по умолчанию 20)"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]any "Список заявок"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /link-requests [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.linkrequest.list"

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

	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	requests, err := h.service.ListLinkRequests(r.Context(), accountUID, limit, offset)
	if err != nil {
		log.Error("failed to list link requests", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list link requests"))
		return
	}

	log.Info("link requests listed", slog.String("account_uid", accountUID), slog.Int("count", len(requests)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"link_requests": requests,
		"count":         len(requests),
	}))
}
