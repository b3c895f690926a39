package services

import (
	"github.com/shopspring/decimal"

	"commerce-backend/models"
)

func decimalFromInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

type Totals struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	TaxAmount    decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
}

// Pricer computes order totals from item snapshots. Pure, no I/O.
type Pricer interface {
	Price(items []models.OrderItem, shipping models.Address) Totals
}

// TaxPolicy is the seam for jurisdiction-aware tax calculation. The default
// returns zero.
type TaxPolicy interface {
	Tax(subtotal decimal.Decimal, shipping models.Address) decimal.Decimal
}

type ZeroTax struct{}

func (ZeroTax) Tax(decimal.Decimal, models.Address) decimal.Decimal {
	return decimal.Zero
}

// StandardPricer: flat shipping fee waived above a subtotal threshold.
type StandardPricer struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	Taxes                 TaxPolicy
}

func NewStandardPricer() *StandardPricer {
	return &StandardPricer{
		FreeShippingThreshold: decimal.NewFromInt(100),
		FlatShippingFee:       decimal.NewFromInt(15),
		Taxes:                 ZeroTax{},
	}
}

func (p *StandardPricer) Price(items []models.OrderItem, shipping models.Address) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimalFromInt(item.Quantity)))
	}

	shippingCost := p.FlatShippingFee
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shippingCost = decimal.Zero
	}

	tax := p.Taxes.Tax(subtotal, shipping)
	discount := decimal.Zero

	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shippingCost,
		TaxAmount:    tax,
		Discount:     discount,
		Total:        subtotal.Add(shippingCost).Add(tax).Sub(discount),
	}
}
