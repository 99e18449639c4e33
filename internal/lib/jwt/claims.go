// Package jwt реализует генерацию и парсинг JWT токенов движка.
//
// Токен переносит идентичность аккаунта между запросами: uid, роль и
// привязанный непрозрачный токен сессии. Сам JWT ничего не решает о
// достоверности сессии — привязку проверяет session binder, сравнивая
// claim SessionToken с сохранённым в базе значением.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims описывает пользовательские данные, хранящиеся в JWT.
type CustomClaims struct {
	AccountUID           string `json:"account_uid"`   // Идентификатор аккаунта
	Role                 string `json:"role"`          // "admin" или "user"
	SessionToken         string `json:"session_token"` // Привязанный токен сессии
	jwt.RegisteredClaims        // Стандартные claims (ExpiresAt, IssuedAt и пр.)
}

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateToken создает токен с uid аккаунта, ролью и токеном сессии.
	GenerateToken(accountUID, role, sessionToken string) (string, error)
	// ParseToken возвращает *CustomClaims, если токен корректен.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker на секретном ключе HS256 и TTL токена.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker создаёт новый MakerImpl.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
