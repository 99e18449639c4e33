package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

// FindPaymentByExternalRef возвращает платёж по ключу идемпотентности.
func (s *Storage) FindPaymentByExternalRef(ctx context.Context, externalRef string) (*models.PaymentRecord, error) {
	const op = "storage.FindPaymentByExternalRef"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, account_uid, subscription_id, external_ref, amount, plan, status, paid_at, created_at
			  FROM payment_history
			  WHERE external_ref = $1`
	var p models.PaymentRecord
	var subID sql.NullInt64
	var paidAt sql.NullTime
	if err := s.DB.QueryRowContext(ctx, query, externalRef).Scan(
		&p.ID, &p.AccountUID, &subID, &p.ExternalRef, &p.Amount, &p.Plan, &p.Status, &paidAt, &p.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if subID.Valid {
		p.SubscriptionID = int(subID.Int64)
	}
	if paidAt.Valid {
		p.PaidAt = paidAt.Time
	}
	return &p, nil
}

// ListPayments возвращает историю платежей аккаунта, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, accountUID string, limit, offset int) ([]*models.PaymentRecord, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, account_uid, subscription_id, external_ref, amount, plan, status, paid_at, created_at
			  FROM payment_history
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

	var result []*models.PaymentRecord
	for rows.Next() {
		var p models.PaymentRecord
		var subID sql.NullInt64
		var paidAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.AccountUID, &subID, &p.ExternalRef,
			&p.Amount, &p.Plan, &p.Status, &paidAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if subID.Valid {
			p.SubscriptionID = int(subID.Int64)
		}
		if paidAt.Valid {
			p.PaidAt = paidAt.Time
		}
		result = append(result, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
