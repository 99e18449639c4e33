package models

import "time"

// PaymentRecord — запись истории платежей.
// ExternalRef — ключ идемпотентности: ссылка платёжного шлюза,
// уникальная на уровне базы. Повторная доставка колбэка с тем же
// ExternalRef не создаёт новых записей.
type PaymentRecord struct {
	ID             int
	AccountUID     string
	SubscriptionID int
	ExternalRef    string
	Amount         int
	Plan           Plan
	Status         string
	PaidAt         time.Time
	CreatedAt      time.Time
}
