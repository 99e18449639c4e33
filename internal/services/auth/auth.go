// Package services содержит логику регистрации и входа.
//
// Вход выдаёт JWT, несущий uid, роль и привязанный токен сессии.
// Серия неудачных попыток блокирует вход: счётчик ведётся в базе
// атомарно, поэтому параллельные неудачи не теряются.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creatorhub-kr/entitlement-engine/internal/lib/jwt"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/password"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

// Параметры блокировки входа.
const (
	LoginLockAfter = 5
	LoginLockFor   = 30 * time.Minute
)

// Длина собственного реферального кода аккаунта.
const referralCodeLen = 6

// referralCodeRetries ограничивает перебор при коллизии кода.
const referralCodeRetries = 5

// AuthRepository описывает контракт хранилища для аутентификации.
type AuthRepository interface {
	// RegisterAccount сохраняет новый аккаунт и возвращает его UID.
	RegisterAccount(ctx context.Context, account models.Account) (string, error)

	// GetAccountByEmail возвращает аккаунт по email.
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)

	// GetAccountByReferralCode возвращает владельца реферального кода.
	GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error)

	// SetReferralCode присваивает аккаунту собственный код.
	SetReferralCode(ctx context.Context, uid, code string) error

	// RecordLoginFailure атомарно учитывает неудачную попытку входа.
	RecordLoginFailure(ctx context.Context, uid string, lockAfter int, lockFor time.Duration, now time.Time) (int, *time.Time, error)

	// ResetLoginFailures обнуляет счётчик и снимает блокировку.
	ResetLoginFailures(ctx context.Context, uid string) error
}

// SessionBinder управляет токеном сессии аккаунта.
type SessionBinder interface {
	// Bind выпускает свежий токен сессии.
	Bind(ctx context.Context, accountUID string) (string, error)

	// Invalidate завершает сессию аккаунта.
	Invalidate(ctx context.Context, accountUID string) error
}

// ReferralExtender начисляет реферальный бонус пригласившему.
type ReferralExtender interface {
	ExtendByReferral(ctx context.Context, referrerUID string, now time.Time) error
}

// AuthService отвечает за регистрацию, вход и выход.
type AuthService struct {
	repo     AuthRepository
	binder   SessionBinder
	referral ReferralExtender
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(repo AuthRepository, binder SessionBinder, referral ReferralExtender, jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		binder:   binder,
		referral: referral,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Register создаёт аккаунт с хэшированием пароля.
//
// Неизвестный реферальный код не срывает регистрацию: аккаунт
// создаётся без реферальной связи. При действительном коде
// пригласивший получает бонус сразу после создания аккаунта.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest, now time.Time) (string, error) {
	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return "", err
	}

	var referrerUID *string
	if req.ReferralCode != "" {
		referrer, err := s.repo.GetAccountByReferralCode(ctx, req.ReferralCode)
		switch {
		case errors.Is(err, models.ErrNotFound):
			s.log.Warn("unknown referral code ignored", slog.String("code", req.ReferralCode))
		case err != nil:
			return "", err
		default:
			referrerUID = &referrer.UID
		}
	}

	account := models.Account{
		Email:        req.Email,
		PasswordHash: hashed,
		Nickname:     req.Nickname,
		Phone:        req.Phone,
		ReferredBy:   referrerUID,
	}
	uid, err := s.repo.RegisterAccount(ctx, account)
	if err != nil {
		return "", err
	}

	if err := s.assignReferralCode(ctx, uid); err != nil {
		s.log.Warn("failed to assign referral code", sl.Err(err))
	}

	if referrerUID != nil {
		if err := s.referral.ExtendByReferral(ctx, *referrerUID, now); err != nil {
			s.log.Warn("failed to grant referral bonus", sl.Err(err))
		}
	}

	s.log.Info("account registered", slog.String("account_uid", uid))
	return uid, nil
}

// Login проверяет пару email/пароль и выдаёт JWT.
//
// Заблокированный аккаунт отклоняется до проверки пароля. Неверный
// пароль учитывается атомарно; пятая подряд неудача блокирует вход на
// LoginLockFor. Успешный вход перепривязывает сессию: прежний токен
// перестаёт действовать.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string, now time.Time) (string, *models.Account, error) {
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil, models.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if account.IsLocked(now) {
		return "", nil, fmt.Errorf("locked until %s: %w", account.LockedUntil.Format(time.RFC3339), models.ErrAccountLocked)
	}
	if account.LockedUntil != nil {
		// Истёкшая блокировка: счётчик начинается заново
		if err := s.repo.ResetLoginFailures(ctx, account.UID); err != nil {
			return "", nil, err
		}
	}

	if err := password.CompareHash(account.PasswordHash, rawPassword); err != nil {
		count, lockedUntil, err := s.repo.RecordLoginFailure(ctx, account.UID, LoginLockAfter, LoginLockFor, now)
		if err != nil {
			return "", nil, err
		}
		s.log.Info("login failure recorded",
			slog.String("account_uid", account.UID),
			slog.Int("fail_count", count))
		if lockedUntil != nil {
			return "", nil, models.ErrAccountLocked
		}
		return "", nil, models.ErrInvalidCredentials
	}

	if err := s.repo.ResetLoginFailures(ctx, account.UID); err != nil {
		return "", nil, err
	}

	sessionToken, err := s.binder.Bind(ctx, account.UID)
	if err != nil {
		return "", nil, err
	}

	role := "user"
	if account.IsStaff {
		role = "admin"
	}
	token, err := s.jwtMaker.GenerateToken(account.UID, role, sessionToken)
	if err != nil {
		return "", nil, err
	}

	s.log.Info("login succeeded", slog.String("account_uid", account.UID))
	return token, account, nil
}

// Logout завершает сессию аккаунта.
func (s *AuthService) Logout(ctx context.Context, accountUID string) error {
	return s.binder.Invalidate(ctx, accountUID)
}

// assignReferralCode присваивает аккаунту уникальный код, повторяя
// генерацию при коллизии.
func (s *AuthService) assignReferralCode(ctx context.Context, uid string) error {
	const op = "auth.assignReferralCode"

	for range referralCodeRetries {
		code, err := newReferralCode()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		err = s.repo.SetReferralCode(ctx, uid, code)
		if err == nil {
			return nil
		}
		if !errors.Is(err, models.ErrConflict) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, models.ErrConflict)
}

// Алфавит без визуально неоднозначных символов.
const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newReferralCode() (string, error) {
	buf := make([]byte, referralCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referralAlphabet[int(b)%len(referralAlphabet)]
	}
	return string(buf), nil
}
