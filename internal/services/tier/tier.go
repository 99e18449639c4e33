// Package services содержит резолвер уровня доступа.
//
// Уровень никогда не хранится в базе: он вычисляется заново при каждом
// обращении из актуального состояния аккаунта и его подписок. Порядок
// приоритета фиксирован: ADMIN > PREMIUM > SUBSCRIBER > TRIAL > FREE.
package services

import (
	"context"
	"time"

	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

// EntitlementRepository описывает контракт хранилища для резолвера.
type EntitlementRepository interface {
	// GetAccount возвращает аккаунт по UID.
	GetAccount(ctx context.Context, uid string) (*models.Account, error)

	// ListEffectiveSubscriptions возвращает действующие подписки аккаунта.
	ListEffectiveSubscriptions(ctx context.Context, accountUID string, now time.Time) ([]*models.Subscription, error)
}

// Resolution — результат разрешения уровня на конкретный момент времени.
type Resolution struct {
	Tier models.Tier
	// LinkRequestCeiling — месячный потолок заявок на ссылки.
	// Для подписчиков — максимум по всем действующим подпискам.
	LinkRequestCeiling int
	// Subscriber и IsTrial — презентационные флаги для кеша сессии.
	Subscriber bool
	IsTrial    bool
	// TrialExpiresAt заполнен только при активном пробном периоде.
	TrialExpiresAt *time.Time
}

// Resolver вычисляет уровень доступа аккаунта.
type Resolver struct {
	repo EntitlementRepository
}

// NewResolver создает новый экземпляр Resolver.
func NewResolver(repo EntitlementRepository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve вычисляет уровень аккаунта на момент now.
//
// Админ выигрывает у любых подписок. Подписка с премиальным планом
// даёт PREMIUM. Любая другая действующая подписка даёт SUBSCRIBER с
// потолком, равным максимуму потолков действующих планов: более
// дорогой план не может урезать лимиты более дешёвого. Активный
// пробный период даёт TRIAL только при отсутствии подписок.
func (r *Resolver) Resolve(ctx context.Context, accountUID string, now time.Time) (Resolution, error) {
	account, err := r.repo.GetAccount(ctx, accountUID)
	if err != nil {
		return Resolution{}, err
	}

	if account.IsStaff {
		return Resolution{
			Tier:               models.TierAdmin,
			LinkRequestCeiling: models.AdminLinkRequestCeiling,
		}, nil
	}

	subs, err := r.repo.ListEffectiveSubscriptions(ctx, accountUID, now)
	if err != nil {
		return Resolution{}, err
	}

	if len(subs) > 0 {
		res := Resolution{
			Tier:       models.TierSubscriber,
			Subscriber: true,
		}
		for _, sub := range subs {
			if sub.Plan.IsAllInclusive() {
				res.Tier = models.TierPremium
			}
			if ceiling := sub.Plan.Info().LinkRequestCeiling; ceiling > res.LinkRequestCeiling {
				res.LinkRequestCeiling = ceiling
			}
		}
		return res, nil
	}

	if account.IsTrialActive(now) {
		return Resolution{
			Tier:               models.TierTrial,
			LinkRequestCeiling: models.LinkRequestCeilingTrial,
			IsTrial:            true,
			TrialExpiresAt:     account.TrialExpiresAt,
		}, nil
	}

	return Resolution{
		Tier:               models.TierFree,
		LinkRequestCeiling: models.LinkRequestCeilingFree,
	}, nil
}
