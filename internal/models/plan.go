// Package models содержит доменные типы движка подписок:
// закрытые перечисления планов и уровней доступа, записи аккаунтов,
// подписок и использования, а также канонические ошибки бизнес-логики.
package models

import "fmt"

// Plan — закрытое перечисление тарифных планов.
// Строковое значение совпадает с тем, что хранится в базе и приходит
// от платёжного шлюза.
type Plan string

// Допустимые планы.
const (
	PlanGallery             Plan = "gallery"
	PlanAllInOne            Plan = "allinone"
	PlanProfitguardLite     Plan = "profitguard_lite"
	PlanProfitguardPro      Plan = "profitguard_pro"
	PlanProfitguardLifetime Plan = "profitguard_lifetime"
)

// PlanInfo описывает канонические параметры плана: цену в вонах,
// признак периодического биллинга (false — пожизненный план)
// и месячный потолок заявок на ссылки.
type PlanInfo struct {
	Name               string
	Price              int
	Billing            bool
	LinkRequestCeiling int
}

// planCatalog — единственный источник параметров планов.
// Планы с Billing=false не имеют даты окончания и не подлежат отмене.
var planCatalog = map[Plan]PlanInfo{
	PlanGallery:             {Name: "영상 갤러리", Price: 39000, Billing: true, LinkRequestCeiling: 10},
	PlanAllInOne:            {Name: "올인원 패키지", Price: 59000, Billing: true, LinkRequestCeiling: 20},
	PlanProfitguardLite:     {Name: "프로핏가드 라이트", Price: 19000, Billing: true, LinkRequestCeiling: 5},
	PlanProfitguardPro:      {Name: "프로핏가드 PRO", Price: 39000, Billing: true, LinkRequestCeiling: 10},
	PlanProfitguardLifetime: {Name: "프로핏가드 평생", Price: 200000, Billing: false, LinkRequestCeiling: 20},
}

// ParsePlan проверяет строку на принадлежность к каталогу планов.
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if _, ok := planCatalog[p]; !ok {
		return "", fmt.Errorf("unknown plan %q: %w", s, ErrNotFound)
	}
	return p, nil
}

// Info возвращает параметры плана. Для неизвестного плана — нулевое значение.
func (p Plan) Info() PlanInfo {
	return planCatalog[p]
}

// Price возвращает каноническую цену плана.
func (p Plan) Price() int {
	return planCatalog[p].Price
}

// IsLifetime сообщает, является ли план пожизненным (без даты окончания).
func (p Plan) IsLifetime() bool {
	info, ok := planCatalog[p]
	return ok && !info.Billing
}

// IsAllInclusive сообщает, относится ли план к премиальному набору:
// такие планы дают уровень PREMIUM независимо от остальных подписок.
func (p Plan) IsAllInclusive() bool {
	return p == PlanAllInOne || p == PlanProfitguardLifetime
}
