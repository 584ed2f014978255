// Package validation содержит функции нормализации входных данных.
package validation

import (
	"strconv"
	"strings"
)

// ParseQuantity приводит введённое пользователем количество к неотрицательному
// целому. Нечисловой или отрицательный ввод нормализуется к нулю, а не
// отклоняется: поле ввода должно оставаться отзывчивым во время набора.
func ParseQuantity(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	qty, err := strconv.Atoi(raw)
	if err != nil || qty < 0 {
		return 0
	}

	return qty
}
