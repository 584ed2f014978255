// Package allocation реализует подбор цветочных SKU по слотам рецепта букета.
package allocation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/floristika/insumos-system/internal/model"
	"github.com/floristika/insumos-system/internal/validation"
)

// ErrInvalidSelection возвращается, если слот или SKU не входит в конфигурацию
// продукта. Всегда ошибка рассинхронизации UI, а не пользовательского ввода.
var ErrInvalidSelection = errors.New("invalid selection")

// containerFilterPrefix — служебный префикс фильтра ёмкостей в каталоге
// ("Con Maceta" означает подбор по вхождению "Maceta").
const containerFilterPrefix = "Con "

// Initialize создаёт выбор по умолчанию: для каждого слота с цветком,
// помеченным как дефолтный, выбирается этот цветок с рекомендуемым
// количеством. Слоты без дефолта остаются неразрешёнными, ёмкость не выбирается.
func Initialize(cfg *model.ProductConfiguration) *model.Selection {
	sel := model.NewSelection()

	for i := range cfg.ColorSlots {
		slot := &cfg.ColorSlots[i]
		if def, ok := slot.DefaultOption(); ok {
			sel.Slots[slot.ID] = model.SlotChoice{
				SKU:      def.SKU,
				Quantity: slot.SuggestedQty,
			}
		}
	}

	return sel
}

// ChooseFlower выбирает цветок для слота. Количество сбрасывается к
// рекомендуемому для слота: смена цветка не сохраняет прежнюю ручную правку.
func ChooseFlower(cfg *model.ProductConfiguration, sel *model.Selection, slotID int64, sku string) error {
	slot, ok := cfg.Slot(slotID)
	if !ok {
		return fmt.Errorf("%w: unknown slot %d", ErrInvalidSelection, slotID)
	}

	if _, ok := slot.Option(sku); !ok {
		return fmt.Errorf("%w: sku %q is not eligible for slot %d", ErrInvalidSelection, sku, slotID)
	}

	sel.Slots[slotID] = model.SlotChoice{
		SKU:      sku,
		Quantity: slot.SuggestedQty,
	}

	return nil
}

// SetQuantity задаёт количество для разрешённого слота. Сырой ввод
// нормализуется к неотрицательному целому; ноль сохраняет запись слота,
// чтобы пользователь мог восстановить её, не выбирая цветок заново.
func SetQuantity(cfg *model.ProductConfiguration, sel *model.Selection, slotID int64, raw string) error {
	if _, ok := cfg.Slot(slotID); !ok {
		return fmt.Errorf("%w: unknown slot %d", ErrInvalidSelection, slotID)
	}

	choice, ok := sel.Slots[slotID]
	if !ok {
		return fmt.Errorf("%w: slot %d has no chosen flower", ErrInvalidSelection, slotID)
	}

	choice.Quantity = validation.ParseQuantity(raw)
	sel.Slots[slotID] = choice

	return nil
}

// ChooseContainer выбирает ёмкость для букета. Для продукта без требования
// ёмкости вызов ничего не делает: защита от устаревшего состояния UI.
func ChooseContainer(cfg *model.ProductConfiguration, sel *model.Selection, sku string) {
	if !cfg.HasContainer {
		return
	}

	sel.Container = &model.ContainerChoice{SKU: sku, Quantity: 1}
}

// StockSufficient сообщает, хватает ли доступного остатка для выбранного
// в слоте количества. Только предупреждение: выбор никогда не блокируется,
// окончательную проверку делает внешняя система при оформлении заказа.
func StockSufficient(cfg *model.ProductConfiguration, sel *model.Selection, slotID int64) bool {
	slot, ok := cfg.Slot(slotID)
	if !ok {
		return true
	}

	choice, ok := sel.Slots[slotID]
	if !ok {
		return true
	}

	opt, ok := slot.Option(choice.SKU)
	if !ok {
		return true
	}

	return opt.StockAvailable() >= choice.Quantity
}

// EligibleContainers фильтрует ёмкости по виду, требуемому продуктом.
// У фильтра каталога отбрасывается ведущий токен "Con ", остаток сравнивается
// простым вхождением подстроки: фильтр "Con Maceta" пропускает ёмкости,
// в Kind которых встречается "Maceta".
func EligibleContainers(cfg *model.ProductConfiguration, all []model.ContainerOption) []model.ContainerOption {
	if !cfg.HasContainer {
		return nil
	}

	needle := strings.TrimPrefix(cfg.ContainerKindFilter, containerFilterPrefix)
	if needle == "" {
		return all
	}

	var eligible []model.ContainerOption
	for _, c := range all {
		if strings.Contains(c.Kind, needle) {
			eligible = append(eligible, c)
		}
	}

	return eligible
}
