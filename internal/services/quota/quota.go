// Package services реализует учёт месячных квот.
//
// Окно квоты — календарный месяц в UTC. Потолок заявок на ссылки
// зависит от текущего уровня аккаунта и вычисляется заново при каждом
// списании; потолок заявок на риворд фиксирован для всех уровней.
// Сама проверка "счёт и вставка" атомарна на уровне хранилища.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/creatorhub-kr/entitlement-engine/internal/lib/monthwindow"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
	tierservice "github.com/creatorhub-kr/entitlement-engine/internal/services/tier"
)

// UsageRepository описывает контракт хранилища для учёта квот.
type UsageRepository interface {
	// CreateLinkRequestWithinQuota атомарно проверяет потолок и создаёт заявку.
	CreateLinkRequestWithinQuota(ctx context.Context, accountUID, targetRef string, since time.Time, ceiling int) (int, error)

	// CreateRewardClaimWithinQuota атомарно проверяет потолок и создаёт заявку.
	CreateRewardClaimWithinQuota(ctx context.Context, accountUID, postRef string, since time.Time, ceiling int) (int, error)

	// CountLinkRequestsSince считает заявки на ссылки с момента since.
	CountLinkRequestsSince(ctx context.Context, accountUID string, since time.Time) (int, error)

	// CountRewardClaimsSince считает заявки на риворд с момента since.
	CountRewardClaimsSince(ctx context.Context, accountUID string, since time.Time) (int, error)

	// ListLinkRequests возвращает заявки аккаунта с пагинацией.
	ListLinkRequests(ctx context.Context, accountUID string, limit, offset int) ([]*models.LinkRequest, error)
}

// TierResolver вычисляет уровень и потолок аккаунта.
type TierResolver interface {
	Resolve(ctx context.Context, accountUID string, now time.Time) (tierservice.Resolution, error)
}

// Accountant отвечает за списание и остатки месячных квот.
type Accountant struct {
	repo     UsageRepository
	resolver TierResolver
	log      *slog.Logger
}

// NewAccountant создает новый экземпляр Accountant.
func NewAccountant(repo UsageRepository, resolver TierResolver, log *slog.Logger) *Accountant {
	return &Accountant{
		repo:     repo,
		resolver: resolver,
		log:      log,
	}
}

// ConsumeLinkRequest списывает одну заявку на ссылку в окне текущего
// месяца. Потолок берётся из свежего разрешения уровня: даунгрейд
// посреди месяца немедленно урезает лимит, даже если ранее было
// израсходовано больше нового потолка.
func (a *Accountant) ConsumeLinkRequest(ctx context.Context, accountUID, targetRef string, now time.Time) (int, error) {
	res, err := a.resolver.Resolve(ctx, accountUID, now)
	if err != nil {
		return 0, err
	}

	id, err := a.repo.CreateLinkRequestWithinQuota(ctx, accountUID, targetRef, monthwindow.StartOfMonth(now), res.LinkRequestCeiling)
	if err != nil {
		return 0, err
	}
	a.log.Info("link request consumed",
		slog.String("account_uid", accountUID),
		slog.String("tier", res.Tier.String()),
		slog.Int("id", id))
	return id, nil
}

// ConsumeRewardClaim списывает одну заявку на риворд в окне текущего
// месяца. Доступно только подписчикам; потолок одинаков для всех
// уровней от SUBSCRIBER и выше.
func (a *Accountant) ConsumeRewardClaim(ctx context.Context, accountUID, postRef string, now time.Time) (int, error) {
	res, err := a.resolver.Resolve(ctx, accountUID, now)
	if err != nil {
		return 0, err
	}
	if res.Tier < models.TierSubscriber {
		return 0, models.ErrSubscriberOnly
	}

	id, err := a.repo.CreateRewardClaimWithinQuota(ctx, accountUID, postRef, monthwindow.StartOfMonth(now), models.RewardClaimMonthlyCeiling)
	if err != nil {
		return 0, err
	}
	a.log.Info("reward claim consumed",
		slog.String("account_uid", accountUID),
		slog.Int("id", id))
	return id, nil
}

// Remaining — остатки квот на момент запроса.
type Remaining struct {
	Tier               models.Tier
	LinkRequestCeiling int
	LinkRequestsUsed   int
	RewardClaimsUsed   int
	// TrialExpiresAt заполнен только при активном пробном периоде.
	TrialExpiresAt *time.Time
}

// RemainingQuota возвращает использование квот в окне текущего месяца.
// Остаток никогда не отрицателен для вызывающего кода: использование
// может превышать потолок после даунгрейда, это нормальное состояние.
func (a *Accountant) RemainingQuota(ctx context.Context, accountUID string, now time.Time) (Remaining, error) {
	res, err := a.resolver.Resolve(ctx, accountUID, now)
	if err != nil {
		return Remaining{}, err
	}

	since := monthwindow.StartOfMonth(now)
	linkUsed, err := a.repo.CountLinkRequestsSince(ctx, accountUID, since)
	if err != nil {
		return Remaining{}, err
	}
	rewardUsed, err := a.repo.CountRewardClaimsSince(ctx, accountUID, since)
	if err != nil {
		return Remaining{}, err
	}

	return Remaining{
		Tier:               res.Tier,
		LinkRequestCeiling: res.LinkRequestCeiling,
		LinkRequestsUsed:   linkUsed,
		RewardClaimsUsed:   rewardUsed,
		TrialExpiresAt:     res.TrialExpiresAt,
	}, nil
}

// ListLinkRequests возвращает заявки аккаунта на ссылки.
func (a *Accountant) ListLinkRequests(ctx context.Context, accountUID string, limit, offset int) ([]*models.LinkRequest, error) {
	return a.repo.ListLinkRequests(ctx, accountUID, limit, offset)
}
