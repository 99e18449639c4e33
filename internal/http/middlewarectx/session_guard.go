package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/creatorhub-kr/entitlement-engine/internal/cache"
	"github.com/creatorhub-kr/entitlement-engine/internal/http/response"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
	tierservice "github.com/creatorhub-kr/entitlement-engine/internal/services/tier"
)

// SessionValidator сверяет предъявленный токен сессии с базой.
type SessionValidator interface {
	Validate(ctx context.Context, accountUID, presentedToken string) (*models.Account, error)
}

// TierResolver вычисляет текущий уровень аккаунта.
type TierResolver interface {
	Resolve(ctx context.Context, accountUID string, now time.Time) (tierservice.Resolution, error)
}

// FlagsCache обновляет презентационные флаги сессии.
type FlagsCache interface {
	SetSessionFlags(ctx context.Context, sessionToken string, flags cache.SessionFlags) error
	DropSessionFlags(ctx context.Context, sessionToken string) error
}

// SessionGuardMiddleware сверяет токен сессии из JWT с сохранённым в
// базе и обновляет флаги сессии свежим уровнем доступа.
//
// Вытесненная сессия получает 401, её флаги удаляются из кеша.
// Ошибка обновления флагов не блокирует запрос: флаги — кеш для
// рендеринга, а не источник решений о доступе.
func SessionGuardMiddleware(validator SessionValidator, resolver TierResolver, flags FlagsCache, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.SessionGuardMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			accountUID, ok := r.Context().Value(AccountUID).(string)
			if !ok || accountUID == "" {
				log.Error("account identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			sessionToken, _ := r.Context().Value(SessionToken).(string)

			if _, err := validator.Validate(r.Context(), accountUID, sessionToken); err != nil {
				if errors.Is(err, models.ErrStaleSession) {
					log.Info("stale session rejected", slog.String("account_uid", accountUID))
					if sessionToken != "" {
						if err := flags.DropSessionFlags(r.Context(), sessionToken); err != nil {
							log.Warn("failed to drop stale session flags", sl.Err(err))
						}
					}
					w.WriteHeader(http.StatusUnauthorized)
					render.JSON(w, r, response.Error("session superseded by a newer login"))
					return
				}
				log.Error("failed to validate session", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}

			res, err := resolver.Resolve(r.Context(), accountUID, time.Now().UTC())
			if err != nil {
				// Аккаунт исчез после выпуска токена: прав больше нет.
				if errors.Is(err, models.ErrNotFound) {
					log.Warn("account no longer exists", slog.String("account_uid", accountUID))
					w.WriteHeader(http.StatusUnauthorized)
					render.JSON(w, r, response.Error("unauthorized"))
					return
				}
				log.Error("failed to resolve tier", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}
			if sessionToken != "" {
				err := flags.SetSessionFlags(r.Context(), sessionToken, cache.SessionFlags{
					Tier:       res.Tier.String(),
					Subscriber: res.Subscriber,
					IsTrial:    res.IsTrial,
				})
				if err != nil {
					log.Warn("failed to refresh session flags", sl.Err(err))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
