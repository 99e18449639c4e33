// Package services содержит мутатор прав доступа: единственную точку,
// через которую меняется состояние подписок и пробных периодов.
//
// Каждая мутация либо применяется целиком, либо не применяется вовсе:
// атомарность обеспечивают транзакции хранилища. Уведомления о
// мутациях публикуются в очередь после фиксации и не влияют на исход
// самой мутации.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

// Сроки грантов движка.
const (
	// TrialDuration — длительность пробного периода.
	TrialDuration = 5 * 24 * time.Hour
	// PurchaseTerm — срок подписки с периодическим биллингом.
	PurchaseTerm = 30 * 24 * time.Hour
	// ReferralBonus — продление за приглашение нового аккаунта.
	ReferralBonus = 7 * 24 * time.Hour
	// RewardBonus — продление за одобренную заявку на риворд.
	RewardBonus = 7 * 24 * time.Hour
)

// MutationRepository описывает контракт хранилища для мутатора.
type MutationRepository interface {
	// GetAccount возвращает аккаунт по UID.
	GetAccount(ctx context.Context, uid string) (*models.Account, error)

	// ActivateTrial атомарно включает пробный период.
	ActivateTrial(ctx context.Context, uid string, expiresAt time.Time) error

	// CreateSubscriptionWithPayment атомарно создаёт подписку и платёж.
	CreateSubscriptionWithPayment(ctx context.Context, sub models.Subscription, externalRef string, paidAt time.Time) (int, error)

	// CancelSubscription помечает подписку отменённой.
	CancelSubscription(ctx context.Context, subscriptionID int, accountUID string) error

	// ListSubscriptions возвращает все подписки аккаунта.
	ListSubscriptions(ctx context.Context, accountUID string) ([]*models.Subscription, error)

	// ListPayments возвращает историю платежей аккаунта.
	ListPayments(ctx context.Context, accountUID string, limit, offset int) ([]*models.PaymentRecord, error)

	// ExtendMostFutureSubscription продлевает самую позднюю действующую подписку.
	ExtendMostFutureSubscription(ctx context.Context, accountUID string, extendBy time.Duration, now time.Time) (bool, error)

	// ApproveRewardClaimAndExtend атомарно одобряет заявку и применяет
	// риворд-бонус к активной подписке владельца.
	ApproveRewardClaimAndExtend(ctx context.Context, claimID int, extendBy time.Duration, now time.Time) (string, bool, error)

	// GetRewardClaim возвращает заявку на риворд.
	GetRewardClaim(ctx context.Context, claimID int) (*models.RewardClaim, error)

	// SetRewardClaimStatus меняет статус заявки.
	SetRewardClaimStatus(ctx context.Context, claimID int, status models.RewardClaimStatus) error
}

// EventPublisher публикует события движка в очередь уведомлений.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Mutator применяет изменения прав доступа.
type Mutator struct {
	repo      MutationRepository
	publisher EventPublisher
	log       *slog.Logger
}

// NewMutator создает новый экземпляр Mutator.
func NewMutator(repo MutationRepository, publisher EventPublisher, log *slog.Logger) *Mutator {
	return &Mutator{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// ActivateTrial включает пробный период на TrialDuration от now.
// Оба предусловия (триал не использован, истории подписок нет)
// проверяются хранилищем атомарно. Возвращает момент окончания.
func (m *Mutator) ActivateTrial(ctx context.Context, accountUID string, now time.Time) (time.Time, error) {
	expiresAt := now.Add(TrialDuration)
	if err := m.repo.ActivateTrial(ctx, accountUID, expiresAt); err != nil {
		return time.Time{}, err
	}
	m.log.Info("trial activated",
		slog.String("account_uid", accountUID),
		slog.Time("expires_at", expiresAt))
	m.notify(ctx, accountUID, "trial_activated",
		"무료 체험이 시작되었습니다",
		fmt.Sprintf("무료 체험이 %s까지 활성화되었습니다.", expiresAt.Format("2006-01-02")))
	return expiresAt, nil
}

// ConfirmPurchase фиксирует оплату и выдаёт подписку.
//
// Сумма сверяется с каноническим прайсом плана, присланной цене не
// доверяем. externalRef — ключ идемпотентности платёжного шлюза:
// повторная доставка колбэка возвращает models.ErrConflict, подписка
// не задваивается. Пожизненные планы получают nil вместо срока.
func (m *Mutator) ConfirmPurchase(ctx context.Context, accountUID string, req models.ConfirmPurchaseRequest, now time.Time) (*models.Subscription, error) {
	plan, err := models.ParsePlan(req.Plan)
	if err != nil {
		return nil, err
	}
	if req.Amount != plan.Price() {
		return nil, fmt.Errorf("plan %s expects %d, got %d: %w", plan, plan.Price(), req.Amount, models.ErrPriceMismatch)
	}

	var expiresAt *time.Time
	if !plan.IsLifetime() {
		t := now.Add(PurchaseTerm)
		expiresAt = &t
	}
	sub := models.Subscription{
		AccountUID: accountUID,
		Plan:       plan,
		Status:     models.SubscriptionActive,
		Price:      plan.Price(),
		StartedAt:  now,
		ExpiresAt:  expiresAt,
	}

	subID, err := m.repo.CreateSubscriptionWithPayment(ctx, sub, req.ExternalRef, now)
	if err != nil {
		return nil, err
	}
	sub.ID = subID

	m.log.Info("purchase confirmed",
		slog.String("account_uid", accountUID),
		slog.String("plan", string(plan)),
		slog.String("external_ref", req.ExternalRef),
		slog.Int("subscription_id", subID))
	m.notify(ctx, accountUID, "purchase_confirmed",
		"결제가 완료되었습니다",
		fmt.Sprintf("%s 플랜 결제가 확인되었습니다.", plan.Info().Name))
	return &sub, nil
}

// Cancel помечает подписку отменённой. Доступ сохраняется до
// естественного истечения срока, expires_at не меняется.
func (m *Mutator) Cancel(ctx context.Context, accountUID string, subscriptionID int) error {
	if err := m.repo.CancelSubscription(ctx, subscriptionID, accountUID); err != nil {
		return err
	}
	m.log.Info("subscription cancelled",
		slog.String("account_uid", accountUID),
		slog.Int("subscription_id", subscriptionID))
	return nil
}

// ExtendByReferral начисляет реферальный бонус пригласившему аккаунту.
// Продлевается самая поздняя действующая подписка; если продлевать
// нечего, бонус теряется без ошибки.
func (m *Mutator) ExtendByReferral(ctx context.Context, referrerUID string, now time.Time) error {
	extended, err := m.repo.ExtendMostFutureSubscription(ctx, referrerUID, ReferralBonus, now)
	if err != nil {
		return err
	}
	if !extended {
		m.log.Info("referral bonus lost, no effective subscription",
			slog.String("referrer_uid", referrerUID))
		return nil
	}
	m.log.Info("referral bonus granted", slog.String("referrer_uid", referrerUID))
	return nil
}

// ApproveRewardClaim одобряет ожидающую заявку на риворд и продлевает
// активную подписку владельца на RewardBonus. Смена статуса и
// продление фиксируются одной транзакцией хранилища: частично
// одобренной заявки не существует. Повторное одобрение и одобрение
// отклонённой заявки невозможны — models.ErrConflict.
func (m *Mutator) ApproveRewardClaim(ctx context.Context, claimID int, now time.Time) error {
	accountUID, extended, err := m.repo.ApproveRewardClaimAndExtend(ctx, claimID, RewardBonus, now)
	if err != nil {
		return err
	}
	m.log.Info("reward claim approved",
		slog.Int("claim_id", claimID),
		slog.String("account_uid", accountUID),
		slog.Bool("extended", extended))
	m.notify(ctx, accountUID, "reward_approved",
		"리워드 신청이 승인되었습니다",
		"리워드 신청이 승인되어 구독 기간이 7일 연장되었습니다.")
	return nil
}

// RejectRewardClaim отклоняет ожидающую заявку на риворд.
func (m *Mutator) RejectRewardClaim(ctx context.Context, claimID int) error {
	claim, err := m.repo.GetRewardClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if claim.Status != models.RewardClaimPending {
		return fmt.Errorf("claim %d is %s: %w", claimID, claim.Status, models.ErrConflict)
	}
	if err := m.repo.SetRewardClaimStatus(ctx, claimID, models.RewardClaimRejected); err != nil {
		return err
	}
	m.log.Info("reward claim rejected", slog.Int("claim_id", claimID))
	return nil
}

// ListSubscriptions возвращает все подписки аккаунта.
func (m *Mutator) ListSubscriptions(ctx context.Context, accountUID string) ([]*models.Subscription, error) {
	return m.repo.ListSubscriptions(ctx, accountUID)
}

// ListPayments возвращает историю платежей аккаунта.
func (m *Mutator) ListPayments(ctx context.Context, accountUID string, limit, offset int) ([]*models.PaymentRecord, error) {
	return m.repo.ListPayments(ctx, accountUID, limit, offset)
}

// notify публикует событие уведомления. Ошибка публикации логируется
// и не откатывает уже зафиксированную мутацию.
func (m *Mutator) notify(ctx context.Context, accountUID, kind, subject, body string) {
	account, err := m.repo.GetAccount(ctx, accountUID)
	if err != nil {
		m.log.Warn("failed to load account for notification", sl.Err(err))
		return
	}
	event := models.NotificationEvent{
		Kind:     kind,
		Email:    account.Email,
		Nickname: account.Nickname,
		Subject:  subject,
		Body:     body,
		SentAt:   time.Now().UTC(),
	}
	if err := m.publisher.Publish("entitlement", event); err != nil {
		m.log.Warn("failed to publish notification", sl.Err(err))
	}
}
