package models

import "time"

// ExpiringSubscription — данные для уведомления об истекающей подписке.
type ExpiringSubscription struct {
	SubscriptionID int       `json:"subscription_id"`
	AccountUID     string    `json:"account_uid"`
	Email          string    `json:"email"`
	Nickname       string    `json:"nickname"`
	Plan           Plan      `json:"plan"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// NotificationEvent — событие движка, публикуемое в очередь уведомлений.
type NotificationEvent struct {
	Kind     string    `json:"kind"` // welcome, purchase_confirmed, trial_activated, reward_approved, expiring
	Email    string    `json:"email"`
	Nickname string    `json:"nickname"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}
