package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

const accountColumns = `uid, email, password_hash, nickname, phone, kakao_id,
			      referral_code, referred_by, trial_used, trial_expires_at,
			      login_fail_count, locked_until, session_token, is_staff, created_at`

func scanAccount(row interface{ Scan(dest ...any) error }) (*models.Account, error) {
	a := &models.Account{}
	var referralCode, referredBy, sessionToken sql.NullString
	var trialExpires, lockedUntil sql.NullTime
	if err := row.Scan(&a.UID, &a.Email, &a.PasswordHash, &a.Nickname, &a.Phone, &a.KakaoID,
		&referralCode, &referredBy, &a.TrialUsed, &trialExpires,
		&a.LoginFailCount, &lockedUntil, &sessionToken, &a.IsStaff, &a.CreatedAt); err != nil {
		return nil, err
	}
	if referralCode.Valid {
		a.ReferralCode = referralCode.String
	}
	if referredBy.Valid {
		a.ReferredBy = &referredBy.String
	}
	if sessionToken.Valid {
		a.SessionToken = &sessionToken.String
	}
	if trialExpires.Valid {
		t := trialExpires.Time
		a.TrialExpiresAt = &t
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		a.LockedUntil = &t
	}
	return a, nil
}

// RegisterAccount сохраняет новый аккаунт и возвращает его UID.
// Дубликат email приводит к models.ErrConflict.
func (s *Storage) RegisterAccount(ctx context.Context, account models.Account) (string, error) {
	const op = "storage.RegisterAccount"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO accounts (email, password_hash, nickname, phone, kakao_id,
			      referral_code, referred_by, trial_used, trial_expires_at)
			  VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		account.Email, account.PasswordHash, account.Nickname, account.Phone, account.KakaoID,
		account.ReferralCode, account.ReferredBy, account.TrialUsed, account.TrialExpiresAt,
	).Scan(&newUID); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, models.ErrConflict)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetAccount возвращает аккаунт по UID.
func (s *Storage) GetAccount(ctx context.Context, uid string) (*models.Account, error) {
	const op = "storage.GetAccount"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE uid = $1`
	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// GetAccountByEmail возвращает аккаунт по email.
func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.GetAccountByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// GetAccountByReferralCode возвращает аккаунт-владельца реферального кода.
func (s *Storage) GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	const op = "storage.GetAccountByReferralCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE referral_code = $1`
	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// SetReferralCode присваивает аккаунту собственный реферальный код.
// Коллизия кода возвращает models.ErrConflict — вызывающий генерирует новый.
func (s *Storage) SetReferralCode(ctx context.Context, uid, code string) error {
	const op = "storage.SetReferralCode"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts SET referral_code = $1 WHERE uid = $2`
	if _, err := s.DB.ExecContext(ctx, query, code, uid); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, models.ErrConflict)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RotateSessionToken атомарно перезаписывает токен сессии аккаунта.
// Одиночный UPDATE даёт семантику "последний победил": конкурентные
// логины оставляют действительным ровно один токен.
func (s *Storage) RotateSessionToken(ctx context.Context, uid, token string) error {
	const op = "storage.RotateSessionToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts SET session_token = $1 WHERE uid = $2`
	res, err := s.DB.ExecContext(ctx, query, token, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ClearSessionToken сбрасывает токен сессии (логаут).
func (s *Storage) ClearSessionToken(ctx context.Context, uid string) error {
	const op = "storage.ClearSessionToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts SET session_token = NULL WHERE uid = $1`
	if _, err := s.DB.ExecContext(ctx, query, uid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RecordLoginFailure инкрементирует счётчик неудачных входов под
// блокировкой строки; на пятой подряд неудаче выставляет locked_until.
// Возвращает новое значение счётчика и момент окончания блокировки.
func (s *Storage) RecordLoginFailure(ctx context.Context, uid string, lockAfter int, lockFor time.Duration, now time.Time) (int, *time.Time, error) {
	const op = "storage.RecordLoginFailure"
	select {
	case <-ctx.Done():
		return 0, nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rollback(tx)

	var failCount int
	if err := tx.QueryRowContext(ctx,
		`SELECT login_fail_count FROM accounts WHERE uid = $1 FOR UPDATE`, uid,
	).Scan(&failCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}

	failCount++
	var lockedUntil *time.Time
	if failCount >= lockAfter {
		t := now.Add(lockFor)
		lockedUntil = &t
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET login_fail_count = $1, locked_until = $2 WHERE uid = $3`,
		failCount, lockedUntil, uid,
	); err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}
	return failCount, lockedUntil, nil
}

// ResetLoginFailures обнуляет счётчик и снимает блокировку.
// Вызывается при успешном входе и при первой попытке после
// истечения блокировки.
func (s *Storage) ResetLoginFailures(ctx context.Context, uid string) error {
	const op = "storage.ResetLoginFailures"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts SET login_fail_count = 0, locked_until = NULL WHERE uid = $1`
	if _, err := s.DB.ExecContext(ctx, query, uid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ActivateTrial атомарно включает пробный период.
// Проверки обоих предусловий выполняются в той же транзакции под
// блокировкой строки аккаунта: trial_used и история подписок
// (любых, не только действующих — защита от "отменил и взял триал").
func (s *Storage) ActivateTrial(ctx context.Context, uid string, expiresAt time.Time) error {
	const op = "storage.ActivateTrial"
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

	var trialUsed bool
	if err := tx.QueryRowContext(ctx,
		`SELECT trial_used FROM accounts WHERE uid = $1 FOR UPDATE`, uid,
	).Scan(&trialUsed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if trialUsed {
		return fmt.Errorf("%s: %w", op, models.ErrAlreadyUsed)
	}

	var historyCount int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE account_uid = $1`, uid,
	).Scan(&historyCount); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if historyCount > 0 {
		return fmt.Errorf("%s: %w", op, models.ErrHasSubscriptionHistory)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET trial_used = TRUE, trial_expires_at = $1 WHERE uid = $2`,
		expiresAt, uid,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindTrialsExpiringToday находит аккаунты с истекающим сегодня
// пробным периодом (для планировщика уведомлений).
func (s *Storage) FindTrialsExpiringToday(ctx context.Context) ([]*models.Account, error) {
	const op = "storage.FindTrialsExpiringToday"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + `
			  FROM accounts
			  WHERE trial_expires_at::DATE = CURRENT_DATE`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
