package models

// Tier — производный уровень доступа аккаунта. Никогда не сохраняется
// в базу: вычисляется заново при каждом разрешении.
type Tier int

// Уровни в порядке возрастания приоритета. Сравнение через > допустимо.
const (
	TierFree Tier = iota
	TierTrial
	TierSubscriber
	TierPremium
	TierAdmin
)

// Месячные потолки заявок на ссылки для уровней без подписки.
// Для подписчиков потолок берётся из каталога планов (максимум по
// всем действующим подпискам).
const (
	LinkRequestCeilingFree  = 1
	LinkRequestCeilingTrial = 3

	// AdminLinkRequestCeiling — сентинел "практически без ограничений".
	AdminLinkRequestCeiling = 1_000_000
)

// RewardClaimMonthlyCeiling — месячный лимит заявок на риворд.
// Антиабьюз-ограничение, одинаковое для всех уровней.
const RewardClaimMonthlyCeiling = 3

func (t Tier) String() string {
	switch t {
	case TierAdmin:
		return "ADMIN"
	case TierPremium:
		return "PREMIUM"
	case TierSubscriber:
		return "SUBSCRIBER"
	case TierTrial:
		return "TRIAL"
	default:
		return "FREE"
	}
}
