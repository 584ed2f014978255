// Package costing реализует расчёт себестоимости букета и рекомендованной цены.
package costing

import (
	"github.com/shopspring/decimal"

	"github.com/floristika/insumos-system/internal/model"
)

// DefaultMarginMultiplier — множитель наценки по умолчанию.
var DefaultMarginMultiplier = decimal.NewFromFloat(1.5)

// Recompute строит раскладку себестоимости по текущему выбору. Чистая функция:
// ничего не мутирует и безопасна для вызова на каждое нажатие клавиши.
// Неразрешённые слоты исключаются из сумм, а не считаются нулевыми.
func Recompute(cfg *model.ProductConfiguration, sel *model.Selection, containers []model.ContainerOption) model.CostBreakdown {
	flowerCost := decimal.Zero

	for i := range cfg.ColorSlots {
		slot := &cfg.ColorSlots[i]

		choice, ok := sel.Slots[slot.ID]
		if !ok {
			continue
		}

		opt, ok := slot.Option(choice.SKU)
		if !ok {
			continue
		}

		line := opt.UnitCost.Mul(decimal.NewFromInt(int64(choice.Quantity)))
		flowerCost = flowerCost.Add(line)
	}

	containerCost := decimal.Zero
	if sel.Container != nil {
		for _, c := range containers {
			if c.SKU == sel.Container.SKU {
				containerCost = c.UnitCost.Mul(decimal.NewFromInt(int64(sel.Container.Quantity)))
				break
			}
		}
	}

	return model.CostBreakdown{
		FlowerCost:    flowerCost,
		ContainerCost: containerCost,
		TotalCost:     flowerCost.Add(containerCost),
	}
}

// SuggestSalePrice возвращает рекомендованную цену продажи: себестоимость,
// умноженная на множитель наценки и округлённая вверх до целого. Только вверх:
// округление к ближайшему или вниз нарушило бы нижнюю границу маржи.
// Рекомендация не навязывается — поле цены остаётся свободно редактируемым.
func SuggestSalePrice(totalCost decimal.Decimal, multiplier decimal.Decimal) decimal.Decimal {
	return totalCost.Mul(multiplier).Ceil()
}

// Margin описывает маржу по заказу. Percent равен nil при нулевой
// себестоимости: "не применимо", а не ноль или деление на ноль.
type Margin struct {
	Amount  decimal.Decimal
	Percent *decimal.Decimal
}

// ComputeMargin вычисляет маржу между ценой продажи и себестоимостью.
func ComputeMargin(salePrice, totalCost decimal.Decimal) Margin {
	m := Margin{Amount: salePrice.Sub(totalCost)}

	if totalCost.IsPositive() {
		pct := m.Amount.Div(totalCost)
		m.Percent = &pct
	}

	return m
}
