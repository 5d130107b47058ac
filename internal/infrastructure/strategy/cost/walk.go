package cost

import (
	"fmt"
	"sort"

	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

func validateQuantity(costCtx strategy.CostContext) error {
	if !costCtx.Quantity.IsPositive() {
		return fmt.Errorf("%w: cost quantity must be positive, got %s", shared.ErrInvalidInput, costCtx.Quantity)
	}
	return nil
}

// walkLayers prices quantity against layers sorted by less, taking
// min(layer, still needed) from each
func walkLayers(
	method strategy.CostMethod,
	quantity decimal.Decimal,
	layers []strategy.CostLayer,
	less func(a, b strategy.CostLayer) bool,
) strategy.CostResult {
	sorted := make([]strategy.CostLayer, 0, len(layers))
	for _, l := range layers {
		if l.Quantity.IsPositive() {
			sorted = append(sorted, l)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	remainingQty := quantity
	totalCost := decimal.Zero
	lines := make([]strategy.CostLine, 0)

	for _, layer := range sorted {
		if !remainingQty.IsPositive() {
			break
		}
		usedQty := decimal.Min(remainingQty, layer.Quantity)
		lineCost := usedQty.Mul(layer.UnitCost)
		lines = append(lines, strategy.CostLine{
			BatchID:   layer.BatchID,
			Quantity:  usedQty,
			UnitCost:  layer.UnitCost,
			TotalCost: lineCost,
		})
		totalCost = totalCost.Add(lineCost)
		remainingQty = remainingQty.Sub(usedQty)
	}

	usedQty := quantity.Sub(remainingQty)
	unitCost := decimal.Zero
	if usedQty.IsPositive() {
		unitCost = totalCost.Div(usedQty)
	}

	return strategy.CostResult{
		Method:      method,
		Lines:       lines,
		TotalCost:   totalCost,
		UnitCost:    unitCost,
		UncostedQty: remainingQty,
	}
}

// flatCost prices the whole quantity at one unit cost, not tied to a lot
func flatCost(method strategy.CostMethod, quantity, unitCost decimal.Decimal) strategy.CostResult {
	total := quantity.Mul(unitCost)
	return strategy.CostResult{
		Method: method,
		Lines: []strategy.CostLine{{
			Quantity:  quantity,
			UnitCost:  unitCost,
			TotalCost: total,
		}},
		TotalCost:   total,
		UnitCost:    unitCost,
		UncostedQty: decimal.Zero,
	}
}
