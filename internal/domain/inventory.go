package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValuationMethod selects how inventory cost is carried.
type ValuationMethod string

const (
	ValuationFIFO            ValuationMethod = "FIFO"
	ValuationWeightedAverage ValuationMethod = "WEIGHTED_AVERAGE"
)

// MovementType is the direction of a stock movement.
type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

// StockMovement is a receipt or issue of inventory.
type StockMovement struct {
	Type     MovementType
	Quantity int64
	UnitCost decimal.Decimal
	Date     time.Time
}

// InventoryItem is a stock-keeping unit with its movement history, oldest first.
type InventoryItem struct {
	ID        string
	SKU       string
	Name      string
	Category  string
	Method    ValuationMethod
	Movements []StockMovement
}

// Valuation is the carried value of an inventory item.
type Valuation struct {
	QuantityOnHand int64
	AverageCost    decimal.Decimal
	TotalValue     decimal.Decimal
}

type costLayer struct {
	qty  int64
	cost decimal.Decimal
}

// Value carries the item at FIFO layers or at weighted average cost.
// Issues beyond the stock on hand drain the layers and are otherwise ignored.
func (i *InventoryItem) Value() Valuation {
	if i.Method == ValuationWeightedAverage {
		return i.weightedAverage()
	}
	return i.fifo()
}

func (i *InventoryItem) fifo() Valuation {
	var layers []costLayer
	for _, m := range i.Movements {
		switch m.Type {
		case MovementIn:
			layers = append(layers, costLayer{qty: m.Quantity, cost: m.UnitCost})
		case MovementOut:
			remaining := m.Quantity
			for remaining > 0 && len(layers) > 0 {
				used := min(layers[0].qty, remaining)
				layers[0].qty -= used
				remaining -= used
				if layers[0].qty == 0 {
					layers = layers[1:]
				}
			}
		}
	}

	var qty int64
	total := decimal.Zero
	for _, l := range layers {
		qty += l.qty
		total = total.Add(l.cost.Mul(decimal.NewFromInt(l.qty)))
	}
	return newValuation(qty, total)
}

func (i *InventoryItem) weightedAverage() Valuation {
	var inQty, onHand int64
	inCost := decimal.Zero
	for _, m := range i.Movements {
		switch m.Type {
		case MovementIn:
			inQty += m.Quantity
			onHand += m.Quantity
			inCost = inCost.Add(m.UnitCost.Mul(decimal.NewFromInt(m.Quantity)))
		case MovementOut:
			onHand -= m.Quantity
		}
	}
	if onHand < 0 {
		onHand = 0
	}
	if inQty == 0 {
		return newValuation(onHand, decimal.Zero)
	}
	avg := inCost.Div(decimal.NewFromInt(inQty))
	return Valuation{
		QuantityOnHand: onHand,
		AverageCost:    avg.Round(4),
		TotalValue:     avg.Mul(decimal.NewFromInt(onHand)).Round(2),
	}
}

func newValuation(qty int64, total decimal.Decimal) Valuation {
	avg := decimal.Zero
	if qty > 0 {
		avg = total.Div(decimal.NewFromInt(qty)).Round(4)
	}
	return Valuation{QuantityOnHand: qty, AverageCost: avg, TotalValue: total.Round(2)}
}
