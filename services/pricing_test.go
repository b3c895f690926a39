package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"commerce-backend/models"
)

func items(pairs ...[2]int64) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, models.OrderItem{
			UnitPrice: decimal.NewFromInt(p[0]),
			Quantity:  int(p[1]),
		})
	}
	return out
}

func TestStandardPricerFreeShippingAtThreshold(t *testing.T) {
	p := NewStandardPricer()

	totals := p.Price(items([2]int64{50, 2}), models.Address{})

	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(100)), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.ShippingCost.IsZero(), "shipping %s", totals.ShippingCost)
	assert.True(t, totals.TaxAmount.IsZero())
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(100)), "total %s", totals.Total)
}

func TestStandardPricerFlatFeeBelowThreshold(t *testing.T) {
	p := NewStandardPricer()

	totals := p.Price(items([2]int64{20, 2}), models.Address{})

	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(40)))
	assert.True(t, totals.ShippingCost.Equal(decimal.NewFromInt(15)))
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(55)), "total %s", totals.Total)
}

type flatTax struct{ rate decimal.Decimal }

func (f flatTax) Tax(subtotal decimal.Decimal, _ models.Address) decimal.Decimal {
	return subtotal.Mul(f.rate).Round(2)
}

func TestStandardPricerTaxPolicySeam(t *testing.T) {
	p := NewStandardPricer()
	p.Taxes = flatTax{rate: decimal.NewFromFloat(0.1)}

	totals := p.Price(items([2]int64{50, 2}), models.Address{})

	assert.True(t, totals.TaxAmount.Equal(decimal.NewFromInt(10)), "tax %s", totals.TaxAmount)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(110)), "total %s", totals.Total)
}

func TestTotalsReconcile(t *testing.T) {
	p := NewStandardPricer()

	totals := p.Price(items([2]int64{33, 1}, [2]int64{7, 3}), models.Address{})

	want := totals.Subtotal.Add(totals.ShippingCost).Add(totals.TaxAmount).Sub(totals.Discount)
	assert.True(t, totals.Total.Equal(want))
}
