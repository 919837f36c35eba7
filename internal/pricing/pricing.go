package pricing

import (
	"math"

	"github.com/driveaway/driveaway/internal/models"
)

const (
	// TaxRate is the flat tax applied to the items subtotal.
	TaxRate = 0.15
	// ShippingCost is the flat delivery charge per order.
	ShippingCost = 50.0
)

// OrderPrices is the derived price breakdown for a product order.
type OrderPrices struct {
	ItemsPrice    float64
	TaxPrice      float64
	ShippingPrice float64
	TotalPrice    float64
}

// CalculateOrderPrices derives the order totals from priced item lines:
// items subtotal, 15% tax on it, flat shipping, and the grand total. All
// figures are rounded to two decimals.
func CalculateOrderPrices(items []models.OrderItem) OrderPrices {
	var itemsPrice float64
	for _, item := range items {
		itemsPrice += item.Price * float64(item.Quantity)
	}

	taxPrice := round2(TaxRate * itemsPrice)
	itemsPrice = round2(itemsPrice)
	totalPrice := round2(itemsPrice + taxPrice + ShippingCost)

	return OrderPrices{
		ItemsPrice:    itemsPrice,
		TaxPrice:      taxPrice,
		ShippingPrice: ShippingCost,
		TotalPrice:    totalPrice,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
