package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

// CountLinkRequestsSince считает заявки на ссылки аккаунта с момента since.
func (s *Storage) CountLinkRequestsSince(ctx context.Context, accountUID string, since time.Time) (int, error) {
	const op = "storage.CountLinkRequestsSince"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT COUNT(*) FROM link_requests
			  WHERE account_uid = $1 AND created_at >= $2`
	if err := s.DB.QueryRowContext(ctx, query, accountUID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// CreateLinkRequestWithinQuota выполняет проверку-и-вставку заявки в
// одной транзакции. Блокировка строки аккаунта сериализует
// конкурентные заявки одного пользователя (две вкладки браузера):
// без неё обе прошли бы проверку счётчика и потолок был бы превышен.
func (s *Storage) CreateLinkRequestWithinQuota(ctx context.Context, accountUID, targetRef string, since time.Time, ceiling int) (int, error) {
	const op = "storage.CreateLinkRequestWithinQuota"
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

	var uid string
	if err := tx.QueryRowContext(ctx,
		`SELECT uid FROM accounts WHERE uid = $1 FOR UPDATE`, accountUID,
	).Scan(&uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM link_requests WHERE account_uid = $1 AND created_at >= $2`,
		accountUID, since,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if count >= ceiling {
		return 0, fmt.Errorf("%s: %w", op, models.ErrQuotaExceeded)
	}

	var newID int
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO link_requests (account_uid, target_ref) VALUES ($1, $2) RETURNING id`,
		accountUID, targetRef,
	).Scan(&newID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListLinkRequests возвращает заявки аккаунта, новые первыми.
func (s *Storage) ListLinkRequests(ctx context.Context, accountUID string, limit, offset int) ([]*models.LinkRequest, error) {
	const op = "storage.ListLinkRequests"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, account_uid, target_ref, created_at
			  FROM link_requests
			  WHERE account_uid = $1
			  ORDER BY id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, accountUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.LinkRequest
	for rows.Next() {
		var lr models.LinkRequest
		if err := rows.Scan(&lr.ID, &lr.AccountUID, &lr.TargetRef, &lr.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &lr)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountRewardClaimsSince считает заявки на риворд аккаунта с момента since.
func (s *Storage) CountRewardClaimsSince(ctx context.Context, accountUID string, since time.Time) (int, error) {
	const op = "storage.CountRewardClaimsSince"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT COUNT(*) FROM reward_claims
			  WHERE account_uid = $1 AND created_at >= $2`
	if err := s.DB.QueryRowContext(ctx, query, accountUID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// CreateRewardClaimWithinQuota создаёт заявку на риворд в одной
// транзакции с проверкой месячного потолка. Повтор пары
// (аккаунт, пост) ловится уникальным ограничением — models.ErrConflict.
func (s *Storage) CreateRewardClaimWithinQuota(ctx context.Context, accountUID, postRef string, since time.Time, ceiling int) (int, error) {
	const op = "storage.CreateRewardClaimWithinQuota"
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

	var uid string
	if err := tx.QueryRowContext(ctx,
		`SELECT uid FROM accounts WHERE uid = $1 FOR UPDATE`, accountUID,
	).Scan(&uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reward_claims WHERE account_uid = $1 AND created_at >= $2`,
		accountUID, since,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if count >= ceiling {
		return 0, fmt.Errorf("%s: %w", op, models.ErrQuotaExceeded)
	}

	var newID int
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO reward_claims (account_uid, post_ref, status)
		 VALUES ($1, $2, 'pending') RETURNING id`,
		accountUID, postRef,
	).Scan(&newID); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, models.ErrConflict)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetRewardClaim возвращает заявку на риворд по ID.
func (s *Storage) GetRewardClaim(ctx context.Context, claimID int) (*models.RewardClaim, error) {
	const op = "storage.GetRewardClaim"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, account_uid, post_ref, status, created_at
			  FROM reward_claims WHERE id = $1`
	var rc models.RewardClaim
	if err := s.DB.QueryRowContext(ctx, query, claimID).Scan(
		&rc.ID, &rc.AccountUID, &rc.PostRef, &rc.Status, &rc.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &rc, nil
}

// SetRewardClaimStatus переводит ожидающую заявку в новый статус.
// Заявка, уже выведенная из pending, не меняется — models.ErrConflict:
// условие в UPDATE сериализует конкурентные решения по одной заявке.
func (s *Storage) SetRewardClaimStatus(ctx context.Context, claimID int, status models.RewardClaimStatus) error {
	const op = "storage.SetRewardClaimStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE reward_claims SET status = $1 WHERE id = $2 AND status = $3`
	res, err := s.DB.ExecContext(ctx, query, status, claimID, models.RewardClaimPending)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists bool
		if scanErr := s.DB.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM reward_claims WHERE id = $1)`, claimID,
		).Scan(&exists); scanErr != nil {
			return fmt.Errorf("%s: %w", op, scanErr)
		}
		if !exists {
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, models.ErrConflict)
	}
	return nil
}

// ApproveRewardClaimAndExtend атомарно одобряет ожидающую заявку и
// продлевает активную подписку владельца в одной транзакции: либо
// фиксируются оба изменения, либо ни одного. Условие status = 'pending'
// в UPDATE сериализует конкурентные одобрения — выигрывает ровно одно,
// проигравшие получают models.ErrConflict без повторного продления.
// Возвращает владельца заявки и признак фактического продления.
func (s *Storage) ApproveRewardClaimAndExtend(ctx context.Context, claimID int, extendBy time.Duration, now time.Time) (string, bool, error) {
	const op = "storage.ApproveRewardClaimAndExtend"
	select {
	case <-ctx.Done():
		return "", false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	defer rollback(tx)

	var accountUID string
	err = tx.QueryRowContext(ctx,
		`UPDATE reward_claims SET status = $1 WHERE id = $2 AND status = $3 RETURNING account_uid`,
		models.RewardClaimApproved, claimID, models.RewardClaimPending,
	).Scan(&accountUID)
	if errors.Is(err, sql.ErrNoRows) {
		var status models.RewardClaimStatus
		if scanErr := tx.QueryRowContext(ctx,
			`SELECT status FROM reward_claims WHERE id = $1`, claimID,
		).Scan(&status); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return "", false, fmt.Errorf("%s: %w", op, models.ErrNotFound)
			}
			return "", false, fmt.Errorf("%s: %w", op, scanErr)
		}
		return "", false, fmt.Errorf("%s: claim %d is %s: %w", op, claimID, status, models.ErrConflict)
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	extended, err := extendActiveSubscriptionForRewardTx(ctx, tx, accountUID, extendBy, now)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return accountUID, extended, nil
}
