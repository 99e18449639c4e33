package models

import (
	"time"

	"github.com/creatorhub-kr/entitlement-engine/internal/lib/monthwindow"
)

// SubscriptionStatus — закрытое перечисление статусов подписки.
type SubscriptionStatus string

const (
	// SubscriptionActive — подписка оплачена и не отменена.
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionCancelled — подписка отменена; доступ сохраняется
	// до естественного истечения ExpiresAt.
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription представляет одну оплаченную подписку аккаунта.
// У аккаунта может накапливаться несколько записей; действующими
// считаются только те, что проходят IsEffective.
// ExpiresAt == nil означает бессрочную подписку (пожизненные планы).
type Subscription struct {
	ID         int
	AccountUID string
	Plan       Plan
	Status     SubscriptionStatus
	Price      int
	StartedAt  time.Time
	ExpiresAt  *time.Time
	CreatedAt  time.Time
}

// IsEffective сообщает, даёт ли подписка доступ на момент now:
// статус active и срок либо не задан, либо ещё не истёк.
func (s *Subscription) IsEffective(now time.Time) bool {
	return s.Status == SubscriptionActive && !monthwindow.Expired(now, s.ExpiresAt)
}
