// Package model содержит доменные сущности сервиса флористики.
package model

import (
	"github.com/shopspring/decimal"
)

// ProductConfiguration описывает рецепт составного букета: цветовые слоты
// и требование к ёмкости. Неизменяема в течение одной сессии редактирования.
type ProductConfiguration struct {
	ProductID           int64
	Name                string
	ColorSlots          []ColorSlot
	HasContainer        bool
	ContainerKindFilter string
}

// Slot возвращает слот по идентификатору.
func (c *ProductConfiguration) Slot(slotID int64) (*ColorSlot, bool) {
	for i := range c.ColorSlots {
		if c.ColorSlots[i].ID == slotID {
			return &c.ColorSlots[i], true
		}
	}
	return nil, false
}

// ColorSlot описывает обязательный цветовой слот рецепта.
type ColorSlot struct {
	ID           int64
	ColorName    string
	SuggestedQty int
	Options      []FlowerOption
}

// Option возвращает допустимый для слота цветок по SKU.
func (s *ColorSlot) Option(sku string) (*FlowerOption, bool) {
	for i := range s.Options {
		if s.Options[i].SKU == sku {
			return &s.Options[i], true
		}
	}
	return nil, false
}

// DefaultOption возвращает цветок, помеченный как выбор по умолчанию.
func (s *ColorSlot) DefaultOption() (*FlowerOption, bool) {
	for i := range s.Options {
		if s.Options[i].IsDefault {
			return &s.Options[i], true
		}
	}
	return nil, false
}

// FlowerOption описывает цветочный SKU, допустимый для слота.
// Счётчики склада — снимок на момент создания сессии.
type FlowerOption struct {
	SKU         string
	DisplayName string
	UnitCost    decimal.Decimal
	StockTotal  int
	StockInUse  int
	IsDefault   bool
}

// StockAvailable возвращает доступный остаток; никогда не отрицателен.
func (f FlowerOption) StockAvailable() int {
	avail := f.StockTotal - f.StockInUse
	if avail < 0 {
		return 0
	}
	return avail
}

// ContainerOption описывает ёмкость (кашпо, вазу и т.п.), доступную для букета.
type ContainerOption struct {
	SKU            string
	Kind           string
	Material       string
	UnitCost       decimal.Decimal
	StockAvailable int
}

// SlotChoice описывает выбор цветка для одного слота.
type SlotChoice struct {
	SKU      string
	Quantity int
}

// ContainerChoice описывает выбранную ёмкость. Количество всегда равно 1.
type ContainerChoice struct {
	SKU      string
	Quantity int
}

// Selection — изменяемое состояние черновика заказа: выбор цветка по слотам
// и необязательная ёмкость. Слот без записи в Slots считается неразрешённым
// и не участвует в себестоимости.
type Selection struct {
	Slots     map[int64]SlotChoice
	Container *ContainerChoice
}

// NewSelection создаёт пустой выбор.
func NewSelection() *Selection {
	return &Selection{Slots: make(map[int64]SlotChoice)}
}

// CostBreakdown — производная раскладка себестоимости. Никогда не хранится
// отдельно от Selection, пересчитывается при каждой мутации.
type CostBreakdown struct {
	FlowerCost    decimal.Decimal
	ContainerCost decimal.Decimal
	TotalCost     decimal.Decimal
}

// FlowerLine описывает одну позицию цветка в плоской форме для внешней
// системы оформления заказов.
type FlowerLine struct {
	SKU       string          `json:"sku"`
	ColorName string          `json:"color_name"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	LineCost  decimal.Decimal `json:"line_cost"`
}

// ContainerLine описывает позицию ёмкости в плоской форме.
type ContainerLine struct {
	SKU      string          `json:"sku"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	LineCost decimal.Decimal `json:"line_cost"`
}

// Submission — итоговая плоская форма выбора, передаваемая внешней системе
// оформления заказов.
type Submission struct {
	FlowerLines   []FlowerLine   `json:"flower_lines"`
	ContainerLine *ContainerLine `json:"container_line,omitempty"`
}

// SlotState описывает текущее состояние одного слота для отображения.
type SlotState struct {
	SlotID          int64
	ColorName       string
	SKU             string
	Quantity        int
	Resolved        bool
	StockSufficient bool
}

// Quote — производное представление сессии после очередной мутации:
// состояние слотов, раскладка себестоимости и рекомендованная цена.
type Quote struct {
	SessionID      string
	ProductID      int64
	Slots          []SlotState
	ContainerSKU   string
	Cost           CostBreakdown
	SuggestedPrice decimal.Decimal
}
