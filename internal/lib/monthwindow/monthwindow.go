// Package monthwindow содержит чистые функции работы с квотным окном.
//
// Окно квоты — календарный месяц в UTC: [первое мгновение текущего
// месяца, now]. Это осознанный выбор дизайна, а не скользящие 30 дней:
// квота сбрасывается первого числа, в том числе посреди живой сессии.
package monthwindow

import "time"

// StartOfMonth возвращает первое мгновение календарного месяца,
// которому принадлежит now, в UTC.
func StartOfMonth(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Expired сообщает, истёк ли срок expiresAt на момент now.
// nil означает бессрочность и никогда не истекает.
func Expired(now time.Time, expiresAt *time.Time) bool {
	if expiresAt == nil {
		return false
	}
	return !expiresAt.After(now)
}
