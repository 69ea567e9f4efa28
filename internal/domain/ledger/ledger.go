// Package ledger решает, сколько баллов начислить автору обращения при смене статуса.
// Пакет не выполняет ввода-вывода: вызывающая сторона обязана прочитать текущее
// состояние и записать результат в одной транзакции.
package ledger

import "github.com/ignatzorin/cityfix-backend/internal/domain/valueobject"

const (
	// ValidationBonus начисляется один раз, когда администратор берёт обращение в работу.
	ValidationBonus = 10
	// SolveBonus начисляется за решённое обращение.
	SolveBonus = 20
	// AwardCap ограничивает суммарные баллы, которые может принести одно обращение.
	AwardCap = 30
)

// DecideAward возвращает прирост баллов для перехода previous -> requested.
//
// Правила в порядке приоритета:
//  1. обращение без автора баллов не приносит;
//  2. pending -> in-progress при нулевом начислении даёт ValidationBonus;
//  3. переход в solved, пока лимит не исчерпан, даёт SolveBonus;
//  4. иначе 0.
//
// Прирост всегда усекается до AwardCap-currentAwarded, поэтому суммарное
// начисление не превышает лимит.
func DecideAward(previous, requested valueobject.IssueStatus, currentAwarded int, hasOwner bool) int {
	if !hasOwner {
		return 0
	}

	delta := 0
	switch {
	case previous == valueobject.IssueStatusPending &&
		requested == valueobject.IssueStatusInProgress &&
		currentAwarded == 0:
		delta = ValidationBonus
	case requested == valueobject.IssueStatusSolved && currentAwarded < AwardCap:
		delta = SolveBonus
	}

	if remaining := AwardCap - currentAwarded; delta > remaining {
		delta = remaining
	}
	if delta < 0 {
		return 0
	}
	return delta
}
