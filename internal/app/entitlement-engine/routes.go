// Package entitlementengine собирает HTTP-приложение движка:
// хранилище, сервисы, маршруты и graceful shutdown.
package entitlementengine

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/auth/login"
	"github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/auth/logout"
	"github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/auth/register"
	"github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/health"
	linkrequestcreate "github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/linkrequest/create"
	linkrequestlist "github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/linkrequest/list"
	"github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/me"
	paymentconfirm "github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/payment/confirm"
	paymentlist "github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/payment/list"
	rewardcreate "github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/reward/create"
	rewardreview "github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/reward/review"
	subscriptioncancel "github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/subscription/cancel"
	subscriptionlist "github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/subscription/list"
	trialactivate "github.com/creatorhub-kr/entitlement-engine/internal/http/handlers/trial/activate"
	"github.com/creatorhub-kr/entitlement-engine/internal/http/middlewarectx"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/jwt"
	authservice "github.com/creatorhub-kr/entitlement-engine/internal/services/auth"
	entitlementservice "github.com/creatorhub-kr/entitlement-engine/internal/services/entitlement"
	quotaservice "github.com/creatorhub-kr/entitlement-engine/internal/services/quota"
)

// Services объединяет сервисы, которые обслуживают маршруты.
type Services struct {
	Auth       *authservice.AuthService
	Mutator    *entitlementservice.Mutator
	Accountant *quotaservice.Accountant
	Binder     middlewarectx.SessionValidator
	Resolver   middlewarectx.TierResolver
	Flags      middlewarectx.FlagsCache
	ReadyCheck health.ReadyChecker
	JWTMaker   jwt.Maker
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, svc.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, svc.Auth).ServeHTTP)
		r.Get("/health", health.New(logger, svc.ReadyCheck).ServeHTTP)

		// Группа с аутентификацией и проверкой сессии
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.JWTMaker, logger))
			r.Use(middlewarectx.SessionGuardMiddleware(svc.Binder, svc.Resolver, svc.Flags, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/logout", logout.New(logger, svc.Auth).ServeHTTP)
			r.Get("/me", me.New(logger, svc.Accountant).ServeHTTP)

			r.Post("/trial", trialactivate.New(logger, svc.Mutator).ServeHTTP)

			r.Post("/payments/confirm", paymentconfirm.New(logger, svc.Mutator).ServeHTTP)
			r.Get("/payments", paymentlist.New(logger, svc.Mutator).ServeHTTP)

			r.Get("/subscriptions", subscriptionlist.New(logger, svc.Mutator).ServeHTTP)
			r.Post("/subscriptions/{id}/cancel", subscriptioncancel.New(logger, svc.Mutator).ServeHTTP)

			r.Post("/link-requests", linkrequestcreate.New(logger, svc.Accountant).ServeHTTP)
			r.Get("/link-requests", linkrequestlist.New(logger, svc.Accountant).ServeHTTP)

			r.Post("/rewards", rewardcreate.New(logger, svc.Accountant).ServeHTTP)

			// Модерация — только администраторам
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnlyMiddleware(logger))
				review := rewardreview.New(logger, svc.Mutator)
				r.Post("/rewards/{id}/approve", review.Approve)
				r.Post("/rewards/{id}/reject", review.Reject)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
