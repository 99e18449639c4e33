package models

import "time"

// Account представляет учётную запись пользователя.
// SessionToken хранит единственный активный токен сессии: новый логин
// перезаписывает его и делает все прочие сессии недействительными.
type Account struct {
	UID            string     // Уникальный идентификатор (uuid)
	Email          string     // Электронная почта (уникальная)
	PasswordHash   string     // bcrypt-хэш пароля
	Nickname       string     // Отображаемое имя
	Phone          string     // Телефон для уведомлений
	KakaoID        string     // Идентификатор внешнего входа, пустой для парольных аккаунтов
	ReferralCode   string     // Собственный реферальный код аккаунта
	ReferredBy     *string    // UID пригласившего аккаунта
	TrialUsed      bool       // Пробный период использован (однонаправленный флаг)
	TrialExpiresAt *time.Time // Окончание пробного периода
	LoginFailCount int        // Счётчик подряд неудачных входов
	LockedUntil    *time.Time // Блокировка входа до указанного момента
	SessionToken   *string    // Текущий токен сессии
	IsStaff        bool       // Признак администратора
	CreatedAt      time.Time
}

// IsTrialActive сообщает, действует ли пробный период на момент now.
func (a *Account) IsTrialActive(now time.Time) bool {
	return a.TrialExpiresAt != nil && a.TrialExpiresAt.After(now)
}

// IsLocked сообщает, заблокирован ли вход на момент now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
