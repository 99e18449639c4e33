package models

// RegisterRequest используется для приёма данных регистрации из
// JSON-запроса до конвертации в Account.
type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`          // Электронная почта
	Password     string `json:"password" validate:"required,min=8"`       // Пароль (>=8 символов)
	Nickname     string `json:"nickname" validate:"required"`             // Отображаемое имя
	Phone        string `json:"phone" validate:"omitempty,numeric"`       // Телефон, только цифры
	ReferralCode string `json:"referral_code" validate:"omitempty,len=6"` // Код пригласившего
}

// LoginRequest — данные входа.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ConfirmPurchaseRequest — подтверждение уже проведённого платежа.
// Передаётся платёжной прослойкой после верификации у шлюза.
type ConfirmPurchaseRequest struct {
	Plan        string `json:"plan" validate:"required"`
	Amount      int    `json:"amount" validate:"required,gt=0"`
	ExternalRef string `json:"external_ref" validate:"required"` // Ключ идемпотентности
}

// CancelSubscriptionRequest — отмена подписки по её ID.
type CancelSubscriptionRequest struct {
	SubscriptionID int `json:"subscription_id" validate:"required,gt=0"`
}

// LinkRequestCreate — заявка на ссылку.
type LinkRequestCreate struct {
	TargetRef string `json:"target_ref" validate:"required"`
}

// RewardClaimCreate — заявка на риворд по посту.
type RewardClaimCreate struct {
	PostRef string `json:"post_ref" validate:"required"`
}
