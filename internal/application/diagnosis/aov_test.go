package diagnosis

import (
	"math"
	"testing"

	"retail-insight/internal/domain/diagnosis"
	"retail-insight/internal/domain/orders"
)

func aovComparison() diagnosis.Comparison {
	return diagnosis.Comparison{
		Current:  diagnosis.Period{Index: 0, Label: "2025-08-08", Start: d(8), End: d(8)},
		Baseline: diagnosis.Period{Index: 1, Label: "2025-08-01", Start: d(1), End: d(1)},
	}
}

func TestAOVAttribution_Decomposition(t *testing.T) {
	// 基期：每單 2 件、件單價 10；當期：每單 3 件、件單價 12
	table := []orders.Order{
		{OrderID: "b-1", Date: d(1), Quantity: 2, Revenue: 20},
		{OrderID: "c-1", Date: d(8), Quantity: 3, Revenue: 36},
	}

	dec, ok := AOVAttribution(table, aovComparison())
	if !ok {
		t.Fatal("expected decomposition to succeed")
	}
	if dec.BaselineAOV != 20 || dec.CurrentAOV != 36 {
		t.Errorf("AOV: expected 20 -> 36, got %v -> %v", dec.BaselineAOV, dec.CurrentAOV)
	}
	if dec.QuantityEffect != 10 { // (3−2)×10
		t.Errorf("QuantityEffect: expected 10, got %v", dec.QuantityEffect)
	}
	if dec.PriceEffect != 4 { // (12−10)×2
		t.Errorf("PriceEffect: expected 4, got %v", dec.PriceEffect)
	}
	if dec.InteractionEffect != 2 { // (3−2)×(12−10)
		t.Errorf("InteractionEffect: expected 2, got %v", dec.InteractionEffect)
	}
	if sum := dec.QuantityEffect + dec.PriceEffect + dec.InteractionEffect; sum != dec.Delta {
		t.Errorf("effects must sum to delta exactly: %v != %v", sum, dec.Delta)
	}
}

func TestAOVAttribution_SumEqualsDeltaWithUglyNumbers(t *testing.T) {
	table := []orders.Order{
		{OrderID: "b-1", Date: d(1), Quantity: 3, Revenue: 31.37},
		{OrderID: "b-2", Date: d(1), Quantity: 4, Revenue: 55.01},
		{OrderID: "c-1", Date: d(8), Quantity: 2, Revenue: 27.93},
		{OrderID: "c-2", Date: d(8), Quantity: 7, Revenue: 66.66},
	}

	dec, ok := AOVAttribution(table, aovComparison())
	if !ok {
		t.Fatal("expected decomposition to succeed")
	}
	sum := dec.QuantityEffect + dec.PriceEffect + dec.InteractionEffect
	if math.Abs(sum-dec.Delta) > 1e-9 {
		t.Errorf("effects must sum to delta: %v != %v", sum, dec.Delta)
	}
}

func TestAOVAttribution_MissingPeriodIsNotAnError(t *testing.T) {
	table := []orders.Order{
		{OrderID: "c-1", Date: d(8), Quantity: 3, Revenue: 36},
	}

	if _, ok := AOVAttribution(table, aovComparison()); ok {
		t.Error("expected ok=false when baseline period has no orders")
	}
}

func TestAOVAttribution_AveragesAcrossOrders(t *testing.T) {
	// 基期兩單：共 6 件、營收 60 → q0=3、p0=10
	table := []orders.Order{
		{OrderID: "b-1", Date: d(1), Quantity: 2, Revenue: 20},
		{OrderID: "b-2", Date: d(1), Quantity: 4, Revenue: 40},
		{OrderID: "c-1", Date: d(8), Quantity: 3, Revenue: 36},
	}

	dec, ok := AOVAttribution(table, aovComparison())
	if !ok {
		t.Fatal("expected decomposition to succeed")
	}
	if dec.BaselineItemsPerOrder != 3 {
		t.Errorf("BaselineItemsPerOrder: expected 3, got %v", dec.BaselineItemsPerOrder)
	}
	if dec.BaselineAvgItemPrice != 10 {
		t.Errorf("BaselineAvgItemPrice: expected 10, got %v", dec.BaselineAvgItemPrice)
	}
	if dec.BaselineAOV != 30 {
		t.Errorf("BaselineAOV: expected 30, got %v", dec.BaselineAOV)
	}
}
