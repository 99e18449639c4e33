package models

import "errors"

// Канонические ошибки движка. Все они восстановимы на границе
// вызывающего кода: обработчик переводит их в пользовательское
// сообщение и HTTP-статус, процесс никогда не падает.
var (
	// ErrNotFound — аккаунт или подписка не существует.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUsed — пробный период уже был использован.
	ErrAlreadyUsed = errors.New("trial already used")
	// ErrHasSubscriptionHistory — у аккаунта когда-либо существовала
	// подписка; пробный период заблокирован (защита от схемы
	// "отменил — снова взял триал").
	ErrHasSubscriptionHistory = errors.New("account has subscription history")
	// ErrConflict — повтор ключа идемпотентности или дубль заявки на риворд.
	ErrConflict = errors.New("conflict")
	// ErrQuotaExceeded — месячный потолок действия исчерпан.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrSubscriberOnly — действие доступно только подписчикам.
	ErrSubscriberOnly = errors.New("subscriber tier required")
	// ErrNotCancellable — попытка отменить пожизненную подписку.
	ErrNotCancellable = errors.New("subscription is not cancellable")
	// ErrStaleSession — предъявленный токен сессии не совпадает с
	// сохранённым. Единственная ошибка с обязательным побочным
	// эффектом: вызывающий обязан сбросить свою сессию.
	ErrStaleSession = errors.New("stale session")
	// ErrAccountLocked — вход заблокирован после серии неудачных попыток.
	ErrAccountLocked = errors.New("account is locked")
	// ErrInvalidCredentials — неверная пара email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPriceMismatch — оплаченная сумма не равна канонической цене плана.
	ErrPriceMismatch = errors.New("paid amount does not match plan price")
)
