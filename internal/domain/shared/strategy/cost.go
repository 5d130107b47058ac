package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostMethod represents the inventory costing method
type CostMethod string

const (
	CostMethodFIFO              CostMethod = "fifo"
	CostMethodLIFO              CostMethod = "lifo"
	CostMethodFEFO              CostMethod = "fefo"
	CostMethodWeightedAverage   CostMethod = "weighted_average"
	CostMethodLastPurchasePrice CostMethod = "last_purchase_price"
)

// String returns the string representation of the cost method
func (m CostMethod) String() string {
	return string(m)
}

// CostLayer is a costed quantity on hand, usually one lot
type CostLayer struct {
	BatchID        uuid.UUID
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	ReceivedDate   time.Time
	ExpirationDate time.Time
}

// CostContext provides context for cost calculation
type CostContext struct {
	Quantity decimal.Decimal
	// AverageCost and LatestCost feed the non-layer methods
	AverageCost decimal.Decimal
	LatestCost  decimal.Decimal
}

// CostLine is one priced slice of the requested quantity.
// BatchID is uuid.Nil when the line is not tied to a lot.
type CostLine struct {
	BatchID   uuid.UUID
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	TotalCost decimal.Decimal
}

// CostResult contains the result of cost calculation
type CostResult struct {
	Method    CostMethod
	Lines     []CostLine
	TotalCost decimal.Decimal
	UnitCost  decimal.Decimal
	// UncostedQty is the part of the request no layer could cover
	UncostedQty decimal.Decimal
}

// CostCalculationStrategy defines the interface for inventory cost calculation
type CostCalculationStrategy interface {
	Strategy
	// Method returns the costing method used by this strategy
	Method() CostMethod
	// CalculateCost prices a quantity against the given layers
	CalculateCost(ctx context.Context, costCtx CostContext, layers []CostLayer) (CostResult, error)
}

// WeightedAverageCost returns Σ(unitCost×qty)/Σqty over layers, zero when empty
func WeightedAverageCost(layers []CostLayer) decimal.Decimal {
	totalQty := decimal.Zero
	totalCost := decimal.Zero
	for _, l := range layers {
		if !l.Quantity.IsPositive() {
			continue
		}
		totalQty = totalQty.Add(l.Quantity)
		totalCost = totalCost.Add(l.Quantity.Mul(l.UnitCost))
	}
	if totalQty.IsZero() {
		return decimal.Zero
	}
	return totalCost.Div(totalQty)
}
