// Package terms реализует политику сроков оплаты по категории клиента.
package terms

// Table задаёт соответствие категории клиента сроку оплаты в днях.
// Передаётся явно, а не читается из глобального состояния, чтобы правила
// можно было детерминированно тестировать и расширять.
type Table map[string]int

// DefaultTable возвращает действующую таблицу категорий.
func DefaultTable() Table {
	return Table{
		"Nuevo":        0,
		"Ocasional":    7,
		"Fiel":         15,
		"Cumplidor":    30,
		"VIP":          45,
		"No Cumplidor": 0,
	}
}

// Days возвращает срок оплаты для категории. Неизвестная категория означает
// оплату сразу, а не ошибку.
func (t Table) Days(tier string) int {
	return t[tier]
}

// Resolver хранит срок оплаты одной сессии оформления. Автоматическое
// разрешение по категории перезаписывает предыдущее автоматическое значение,
// но никогда не трогает значение, введённое пользователем вручную.
type Resolver struct {
	table  Table
	days   int
	manual bool
}

// NewResolver создаёт резолвер сроков оплаты с указанной таблицей.
func NewResolver(table Table) *Resolver {
	return &Resolver{table: table}
}

// Resolve выполняет автоматическое разрешение срока по категории клиента
// и возвращает действующий срок.
func (r *Resolver) Resolve(tier string) int {
	if r.manual {
		return r.days
	}

	r.days = r.table.Days(tier)
	return r.days
}

// SetManual фиксирует срок, введённый вручную. Ручное значение действует
// до конца сессии.
func (r *Resolver) SetManual(days int) int {
	r.days = days
	r.manual = true
	return r.days
}

// Days возвращает действующий срок оплаты.
func (r *Resolver) Days() int {
	return r.days
}
