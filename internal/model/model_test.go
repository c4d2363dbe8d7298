package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestOrder_PendingBalance(t *testing.T) {
	o := Order{TotalPrice: d("100000"), AdvancePaid: d("40000")}

	assert.True(t, o.PendingBalance().Equal(d("60000")))
	assert.False(t, o.IsFullyPaid())

	o.AdvancePaid = d("100000")
	assert.True(t, o.PendingBalance().IsZero())
	assert.True(t, o.IsFullyPaid())
}

func TestOrder_IsOverdue(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	o := Order{Status: OrderStatusInProcess, PromisedDeliveryAt: now.Add(-time.Hour)}
	assert.True(t, o.IsOverdue(now))

	o.Status = OrderStatusDelivered
	assert.False(t, o.IsOverdue(now))

	o.Status = OrderStatusReceived
	o.PromisedDeliveryAt = now.Add(time.Hour)
	assert.False(t, o.IsOverdue(now))
}

func TestProduct_DerivedFields(t *testing.T) {
	p := Product{
		CurrentQuantity: d("10"),
		MinStock:        d("5"),
		PurchasePrice:   d("2000"),
		SalePrice:       d("3000"),
	}

	assert.False(t, p.NeedsRestock())
	assert.True(t, p.InventoryValue().Equal(d("20000")))
	assert.True(t, p.UnitMargin().Equal(d("1000")))
	assert.True(t, p.MarginPercent().Equal(d("50")))

	p.CurrentQuantity = d("5")
	assert.True(t, p.NeedsRestock())

	p.PurchasePrice = decimal.Zero
	assert.True(t, p.MarginPercent().IsZero())
}

func TestSale_Recalculate(t *testing.T) {
	s := Sale{Subtotal: d("50000"), Discount: d("5000")}
	s.Recalculate()
	assert.True(t, s.Total.Equal(d("45000")))

	s.Discount = d("60000")
	s.Recalculate()
	assert.True(t, s.Total.IsZero())
}

func TestEnumValidators(t *testing.T) {
	assert.True(t, IsValidPaymentMethod(PaymentMethodCash, false))
	assert.False(t, IsValidPaymentMethod(PaymentMethodCredit, false))
	assert.True(t, IsValidPaymentMethod(PaymentMethodCredit, true))
	assert.False(t, IsValidPaymentMethod("cheque", true))

	assert.True(t, IsValidClientCategory(ClientCategoryWholesale))
	assert.False(t, IsValidClientCategory("vip"))

	assert.True(t, IsValidEmbroideryType(EmbroideryCombined))
	assert.False(t, IsValidEmbroideryType("laser"))

	assert.True(t, IsValidMovementType(MovementReturn))
	assert.False(t, IsValidMovementType("transfer"))
}
