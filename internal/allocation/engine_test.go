package allocation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/floristika/insumos-system/internal/model"
)

func testConfig() *model.ProductConfiguration {
	return &model.ProductConfiguration{
		ProductID:           1,
		Name:                "Ramo Primavera",
		HasContainer:        true,
		ContainerKindFilter: "Con Maceta",
		ColorSlots: []model.ColorSlot{
			{
				ID:           10,
				ColorName:    "Rosas Rojas",
				SuggestedQty: 12,
				Options: []model.FlowerOption{
					{SKU: "rose-red", DisplayName: "Rosa Roja", UnitCost: decimal.NewFromInt(500), StockTotal: 100, StockInUse: 20, IsDefault: true},
					{SKU: "rose-pink", DisplayName: "Rosa Rosada", UnitCost: decimal.NewFromInt(450), StockTotal: 10, StockInUse: 8},
				},
			},
			{
				ID:           11,
				ColorName:    "Lirios",
				SuggestedQty: 3,
				Options: []model.FlowerOption{
					{SKU: "lily-white", DisplayName: "Lirio Blanco", UnitCost: decimal.NewFromInt(1200), StockTotal: 5, StockInUse: 5},
				},
			},
		},
	}
}

func TestInitialize_DefaultsPerSlot(t *testing.T) {
	cfg := testConfig()

	sel := Initialize(cfg)

	choice, ok := sel.Slots[10]
	if !ok {
		t.Fatalf("slot 10 must be resolved to its default flower")
	}
	if choice.SKU != "rose-red" {
		t.Fatalf("slot 10 sku = %q, want rose-red", choice.SKU)
	}
	if choice.Quantity != 12 {
		t.Fatalf("slot 10 quantity = %d, want suggested 12", choice.Quantity)
	}

	if _, ok := sel.Slots[11]; ok {
		t.Fatalf("slot 11 has no default and must stay unresolved")
	}

	if sel.Container != nil {
		t.Fatalf("no container must be pre-selected")
	}
}

func TestChooseFlower_ResetsQuantity(t *testing.T) {
	cfg := testConfig()
	sel := Initialize(cfg)

	if err := SetQuantity(cfg, sel, 10, "20"); err != nil {
		t.Fatalf("SetQuantity error: %v", err)
	}

	if err := ChooseFlower(cfg, sel, 10, "rose-pink"); err != nil {
		t.Fatalf("ChooseFlower error: %v", err)
	}

	choice := sel.Slots[10]
	if choice.SKU != "rose-pink" {
		t.Fatalf("sku = %q, want rose-pink", choice.SKU)
	}
	if choice.Quantity != 12 {
		t.Fatalf("quantity = %d, want suggested 12 after flower change", choice.Quantity)
	}
}

func TestChooseFlower_InvalidSelection(t *testing.T) {
	cfg := testConfig()
	sel := Initialize(cfg)

	if err := ChooseFlower(cfg, sel, 99, "rose-red"); !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("unknown slot: err = %v, want ErrInvalidSelection", err)
	}

	if err := ChooseFlower(cfg, sel, 10, "orchid-blue"); !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("ineligible sku: err = %v, want ErrInvalidSelection", err)
	}
}

func TestSetQuantity_Normalization(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		raw  string
		want int
	}{
		{"7", 7},
		{"-5", 0},
		{"abc", 0},
		{"0", 0},
	}

	for _, tt := range tests {
		sel := Initialize(cfg)
		if err := SetQuantity(cfg, sel, 10, tt.raw); err != nil {
			t.Fatalf("SetQuantity(%q) error: %v", tt.raw, err)
		}
		if got := sel.Slots[10].Quantity; got != tt.want {
			t.Fatalf("quantity after %q = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestSetQuantity_ZeroKeepsSlotResolved(t *testing.T) {
	cfg := testConfig()
	sel := Initialize(cfg)

	if err := SetQuantity(cfg, sel, 10, "0"); err != nil {
		t.Fatalf("SetQuantity error: %v", err)
	}

	choice, ok := sel.Slots[10]
	if !ok {
		t.Fatalf("slot entry must be retained at quantity 0")
	}
	if choice.SKU != "rose-red" {
		t.Fatalf("sku = %q, want rose-red", choice.SKU)
	}
}

func TestSetQuantity_UnresolvedSlot(t *testing.T) {
	cfg := testConfig()
	sel := Initialize(cfg)

	if err := SetQuantity(cfg, sel, 11, "5"); !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("err = %v, want ErrInvalidSelection for unresolved slot", err)
	}
}

func TestChooseContainer_NoRequirementIsNoop(t *testing.T) {
	cfg := testConfig()
	cfg.HasContainer = false
	sel := Initialize(cfg)

	ChooseContainer(cfg, sel, "maceta-std")

	if sel.Container != nil {
		t.Fatalf("container choice must be a no-op without container requirement")
	}
}

func TestChooseContainer_SetsSingleUnit(t *testing.T) {
	cfg := testConfig()
	sel := Initialize(cfg)

	ChooseContainer(cfg, sel, "maceta-std")

	if sel.Container == nil {
		t.Fatalf("container must be chosen")
	}
	if sel.Container.SKU != "maceta-std" || sel.Container.Quantity != 1 {
		t.Fatalf("container = %+v, want maceta-std x1", sel.Container)
	}
}

func TestStockSufficient(t *testing.T) {
	cfg := testConfig()
	sel := Initialize(cfg)

	// rose-red: 100 - 20 = 80 available, chosen 12.
	if !StockSufficient(cfg, sel, 10) {
		t.Fatalf("slot 10 must be sufficient")
	}

	// rose-pink: 10 - 8 = 2 available, suggested 12.
	if err := ChooseFlower(cfg, sel, 10, "rose-pink"); err != nil {
		t.Fatalf("ChooseFlower error: %v", err)
	}
	if StockSufficient(cfg, sel, 10) {
		t.Fatalf("slot 10 must be insufficient after switching to rose-pink")
	}

	// Insufficiency is advisory: the choice itself stays.
	if sel.Slots[10].SKU != "rose-pink" {
		t.Fatalf("insufficient stock must not block the selection")
	}

	// Unresolved slot is not flagged.
	if !StockSufficient(cfg, sel, 11) {
		t.Fatalf("unresolved slot must not be flagged insufficient")
	}
}

func TestEligibleContainers_PrefixStripping(t *testing.T) {
	cfg := testConfig()

	all := []model.ContainerOption{
		{SKU: "maceta-std", Kind: "Maceta Grande", Material: "barro"},
		{SKU: "florero-basic", Kind: "Florero", Material: "vidrio"},
		{SKU: "maceta-mini", Kind: "Mini Maceta", Material: "plastico"},
	}

	got := EligibleContainers(cfg, all)
	if len(got) != 2 {
		t.Fatalf("eligible containers = %d, want 2", len(got))
	}
	for _, c := range got {
		if c.SKU == "florero-basic" {
			t.Fatalf("Florero must be excluded by filter %q", cfg.ContainerKindFilter)
		}
	}
}

func TestEligibleContainers_NoRequirement(t *testing.T) {
	cfg := testConfig()
	cfg.HasContainer = false

	got := EligibleContainers(cfg, []model.ContainerOption{{SKU: "maceta-std", Kind: "Maceta"}})
	if got != nil {
		t.Fatalf("product without container requirement must offer no containers, got %v", got)
	}
}
