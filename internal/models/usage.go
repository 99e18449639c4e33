package models

import "time"

// UsageKind различает виды учитываемых действий.
type UsageKind string

const (
	// UsageLinkRequest — заявка на ссылку; потолок зависит от уровня.
	UsageLinkRequest UsageKind = "link_request"
	// UsageRewardClaim — заявка на риворд за подтверждение дохода;
	// фиксированный потолок для всех уровней.
	UsageRewardClaim UsageKind = "reward_claim"
)

// LinkRequest — запись об одной заявке на ссылку.
// Записи никогда не изменяются и не удаляются: они нужны только
// для подсчёта в пределах календарного месяца.
type LinkRequest struct {
	ID         int
	AccountUID string
	TargetRef  string // Ссылка или идентификатор запрошенного ресурса
	CreatedAt  time.Time
}

// RewardClaimStatus — статус заявки на риворд.
type RewardClaimStatus string

const (
	RewardClaimPending  RewardClaimStatus = "pending"
	RewardClaimApproved RewardClaimStatus = "approved"
	RewardClaimRejected RewardClaimStatus = "rejected"
)

// RewardClaim — заявка на риворд по конкретному посту.
// Пара (AccountUID, PostRef) уникальна: повторная заявка по тому же
// посту невозможна.
type RewardClaim struct {
	ID         int
	AccountUID string
	PostRef    string
	Status     RewardClaimStatus
	CreatedAt  time.Time
}
