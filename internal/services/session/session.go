// Package services реализует привязку единственной активной сессии.
//
// Аккаунт имеет не более одного действительного токена сессии. Логин
// перезаписывает токен по принципу "последний победил": все ранее
// выданные JWT продолжают проходить проверку подписи, но отклоняются
// здесь при сравнении с токеном из базы.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sessiontoken"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/sl"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

// AccountRepository описывает контракт хранилища для привязки сессий.
type AccountRepository interface {
	// GetAccount возвращает аккаунт по UID.
	GetAccount(ctx context.Context, uid string) (*models.Account, error)

	// RotateSessionToken перезаписывает токен сессии аккаунта.
	RotateSessionToken(ctx context.Context, uid, token string) error

	// ClearSessionToken сбрасывает токен сессии.
	ClearSessionToken(ctx context.Context, uid string) error
}

// FlagsCache инвалидирует презентационные флаги отозванных сессий.
type FlagsCache interface {
	DropSessionFlags(ctx context.Context, sessionToken string) error
}

// Binder управляет жизненным циклом токена сессии.
type Binder struct {
	repo  AccountRepository
	cache FlagsCache
	log   *slog.Logger
}

// NewBinder создает новый экземпляр Binder.
func NewBinder(repo AccountRepository, cache FlagsCache, log *slog.Logger) *Binder {
	return &Binder{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Bind выпускает свежий токен сессии и привязывает его к аккаунту.
// Прежний токен, если был, перестаёт действовать.
func (b *Binder) Bind(ctx context.Context, accountUID string) (string, error) {
	const op = "session.Bind"

	account, err := b.repo.GetAccount(ctx, accountUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := sessiontoken.New()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := b.repo.RotateSessionToken(ctx, accountUID, token); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if old := account.SessionToken; old != nil {
		if err := b.cache.DropSessionFlags(ctx, *old); err != nil {
			b.log.Warn("failed to drop flags of replaced session", sl.Err(err))
		}
	}
	return token, nil
}

// Validate сверяет предъявленный токен с сохранённым в базе.
//
// Администраторы освобождены от привязки: их запросы проходят даже
// с токеном, вытесненным более поздним логином. Для всех остальных
// несовпадение возвращает models.ErrStaleSession, и вызывающий обязан
// сбросить свою сессию.
func (b *Binder) Validate(ctx context.Context, accountUID, presentedToken string) (*models.Account, error) {
	const op = "session.Validate"

	account, err := b.repo.GetAccount(ctx, accountUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if account.IsStaff {
		return account, nil
	}
	if account.SessionToken == nil || *account.SessionToken != presentedToken {
		return nil, fmt.Errorf("%s: %w", op, models.ErrStaleSession)
	}
	return account, nil
}

// Invalidate завершает сессию аккаунта: сбрасывает токен в базе и
// удаляет презентационные флаги из кеша.
func (b *Binder) Invalidate(ctx context.Context, accountUID string) error {
	const op = "session.Invalidate"

	account, err := b.repo.GetAccount(ctx, accountUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := b.repo.ClearSessionToken(ctx, accountUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if account.SessionToken != nil {
		if err := b.cache.DropSessionFlags(ctx, *account.SessionToken); err != nil {
			b.log.Warn("failed to drop session flags", sl.Err(err))
		}
	}
	return nil
}
