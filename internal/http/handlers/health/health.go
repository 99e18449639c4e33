// Package health реализует HTTP-обработчик проверки готовности сервиса.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/creatorhub-kr/entitlement-engine/internal/http/response"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
)

// ReadyChecker проверяет готовность зависимостей сервиса.
type ReadyChecker func() error

// Handler обрабатывает HTTP-запросы проверки готовности.
type Handler struct {
	log   *slog.Logger
	check ReadyChecker
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, check ReadyChecker) *Handler {
	return &Handler{
		log:   log,
		check: check,
	}
}

// ServeHTTP godoc
// @Summary Проверка готовности
// @Description Возвращает ok, если база данных доступна.
// @Tags Health
// @Produce  json
// @Success 200 {object} map[string]any "Сервис готов"
// @Failure 503 {object} response.ErrorResponse "База данных недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if h.check != nil {
		if err := h.check(); err != nil {
			h.log.Error("database is not ready", slog.String("op", op), sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("database is not ready"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": "ok",
	}))
}
