package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

const subscriptionColumns = `id, account_uid, plan, status, price, started_at, expires_at, created_at`

func scanSubscription(row interface{ Scan(dest ...any) error }) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var expiresAt sql.NullTime
	if err := row.Scan(&sub.ID, &sub.AccountUID, &sub.Plan, &sub.Status,
		&sub.Price, &sub.StartedAt, &expiresAt, &sub.CreatedAt); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		sub.ExpiresAt = &t
	}
	return sub, nil
}

// ListEffectiveSubscriptions возвращает действующие подписки аккаунта:
// статус active и срок либо не задан, либо позже now.
func (s *Storage) ListEffectiveSubscriptions(ctx context.Context, accountUID string, now time.Time) ([]*models.Subscription, error) {
	const op = "storage.ListEffectiveSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE account_uid = $1
			    AND status = 'active'
			    AND (expires_at IS NULL OR expires_at > $2)
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, accountUID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListSubscriptions возвращает все подписки аккаунта, включая
// отменённые и истекшие.
func (s *Storage) ListSubscriptions(ctx context.Context, accountUID string) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE account_uid = $1
			  ORDER BY id DESC`
	rows, err := s.DB.QueryContext(ctx, query, accountUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountSubscriptionHistory считает все когда-либо существовавшие
// подписки аккаунта — исторические, не только действующие.
func (s *Storage) CountSubscriptionHistory(ctx context.Context, accountUID string) (int, error) {
	const op = "storage.CountSubscriptionHistory"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT COUNT(*) FROM subscriptions WHERE account_uid = $1`
	if err := s.DB.QueryRowContext(ctx, query, accountUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// CreateSubscriptionWithPayment атомарно создаёт подписку и строку
// истории платежей по ключу идемпотентности externalRef.
// Повтор ключа (повторная доставка колбэка) нарушает уникальное
// ограничение и откатывает всю транзакцию: частичных грантов не
// остаётся, возвращается models.ErrConflict.
func (s *Storage) CreateSubscriptionWithPayment(ctx context.Context, sub models.Subscription, externalRef string, paidAt time.Time) (int, error) {
	const op = "storage.CreateSubscriptionWithPayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rollback(tx)

	var subID int
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO subscriptions (account_uid, plan, status, price, started_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		sub.AccountUID, sub.Plan, sub.Status, sub.Price, sub.StartedAt, sub.ExpiresAt,
	).Scan(&subID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO payment_history (account_uid, subscription_id, external_ref, amount, plan, status, paid_at)
		 VALUES ($1, $2, $3, $4, $5, 'paid', $6)`,
		sub.AccountUID, subID, externalRef, sub.Price, sub.Plan, paidAt,
	); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, models.ErrConflict)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return subID, nil
}

// ExtendMostFutureSubscription продлевает на extendBy самую позднюю
// действующую подписку аккаунта (реферальный бонус). Если действующей
// подписки с датой окончания нет, бонус теряется и возвращается false.
func (s *Storage) ExtendMostFutureSubscription(ctx context.Context, accountUID string, extendBy time.Duration, now time.Time) (bool, error) {
	const op = "storage.ExtendMostFutureSubscription"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer rollback(tx)

	var subID int
	var expiresAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT id, expires_at
		 FROM subscriptions
		 WHERE account_uid = $1
		   AND status = 'active'
		   AND expires_at > $2
		 ORDER BY expires_at DESC
		 LIMIT 1
		 FOR UPDATE`,
		accountUID, now,
	).Scan(&subID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET expires_at = $1 WHERE id = $2`,
		expiresAt.Add(extendBy), subID,
	); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// extendActiveSubscriptionForRewardTx применяет риворд-бонус к первой
// активной подписке аккаунта внутри уже открытой транзакции. Подписка
// с датой окончания продлевается на extendBy; подписка без даты
// получает свежий срок now+extendBy — исторически сложившееся
// расхождение с реферальным продлением, воспроизводимое намеренно.
// Без активной подписки — false, без изменений.
func extendActiveSubscriptionForRewardTx(ctx context.Context, tx *sql.Tx, accountUID string, extendBy time.Duration, now time.Time) (bool, error) {
	var subID int
	var expiresAt sql.NullTime
	err := tx.QueryRowContext(ctx,
		`SELECT id, expires_at
		 FROM subscriptions
		 WHERE account_uid = $1 AND status = 'active'
		 ORDER BY id
		 LIMIT 1
		 FOR UPDATE`,
		accountUID,
	).Scan(&subID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	newExpires := now.Add(extendBy)
	if expiresAt.Valid {
		newExpires = expiresAt.Time.Add(extendBy)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET expires_at = $1 WHERE id = $2`,
		newExpires, subID,
	); err != nil {
		return false, err
	}
	return true, nil
}

// CancelSubscription помечает подписку отменённой, не трогая expires_at:
// доступ сохраняется до естественного истечения срока.
// Пожизненные подписки (план без биллинга либо expires_at IS NULL)
// не отменяются — models.ErrNotCancellable.
func (s *Storage) CancelSubscription(ctx context.Context, subscriptionID int, accountUID string) error {
	const op = "storage.CancelSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer rollback(tx)

	var plan string
	var expiresAt sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT plan, expires_at FROM subscriptions
		 WHERE id = $1 AND account_uid = $2
		 FOR UPDATE`,
		subscriptionID, accountUID,
	).Scan(&plan, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if models.Plan(plan).IsLifetime() || !expiresAt.Valid {
		return fmt.Errorf("%s: %w", op, models.ErrNotCancellable)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET status = 'cancelled' WHERE id = $1`,
		subscriptionID,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindSubscriptionsExpiringTomorrow находит подписки, истекающие
// завтра (для планировщика уведомлений). Возвращает email владельца
// вместе с подпиской.
func (s *Storage) FindSubscriptionsExpiringTomorrow(ctx context.Context) ([]*models.ExpiringSubscription, error) {
	const op = "storage.FindSubscriptionsExpiringTomorrow"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.account_uid, a.email, a.nickname, s.plan, s.expires_at
			  FROM subscriptions s
			  JOIN accounts a ON a.uid = s.account_uid
			  WHERE s.status = 'active'
			    AND s.expires_at::DATE = CURRENT_DATE + INTERVAL '1 day'`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ExpiringSubscription
	for rows.Next() {
		var e models.ExpiringSubscription
		if err := rows.Scan(&e.SubscriptionID, &e.AccountUID, &e.Email, &e.Nickname, &e.Plan, &e.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
