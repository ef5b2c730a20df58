package view

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountBadge(t *testing.T) {
	assert.Equal(t, "(0 items)", CountBadge(0))
	assert.Equal(t, "(1 item)", CountBadge(1))
	assert.Equal(t, "(2 items)", CountBadge(2))
}

func TestFormatMoney(t *testing.T) {
	p := NewProjector()
	assert.Equal(t, "₹1,500", p.FormatMoney(decimal.NewFromInt(1500)))
	assert.Equal(t, "₹0", p.FormatMoney(decimal.Zero))
	assert.Equal(t, "₹1,234,567", p.FormatMoney(decimal.NewFromInt(1234567)))
	assert.Equal(t, "₹199.99", p.FormatMoney(decimal.RequireFromString("199.99")))
	assert.Equal(t, "₹2,999.50", p.FormatMoney(decimal.RequireFromString("2999.5")))
	assert.Equal(t, "₹10.00", p.FormatMoney(decimal.RequireFromString("9.999")))
	assert.Equal(t, "₹90,071,992,547,409.93", p.FormatMoney(decimal.RequireFromString("90071992547409.93")))
	assert.Equal(t, "₹123,456,789,012,345.67", p.FormatMoney(decimal.RequireFromString("123456789012345.67")))
	assert.Equal(t, "-₹0.50", p.FormatMoney(decimal.RequireFromString("-0.5")))

	assert.Equal(t, "$12", NewProjector(WithCurrencySymbol("$")).FormatMoney(decimal.NewFromInt(12)))
}

func TestDiscountPercent(t *testing.T) {
	assert.Equal(t, 20, DiscountPercent(decimal.NewFromInt(1200), decimal.NewFromInt(1500)))
	assert.Equal(t, 33, DiscountPercent(decimal.NewFromInt(2), decimal.NewFromInt(3)))
	assert.Equal(t, 50, DiscountPercent(decimal.RequireFromString("0.5"), decimal.NewFromInt(1)))
	assert.Equal(t, 0, DiscountPercent(decimal.NewFromInt(10), decimal.Zero))
}

func TestProjectCart(t *testing.T) {
	items := []lineitem.LineItem{
		{
			ProductID:         "P1",
			Size:              "M",
			Name:              "Runner",
			Quantity:          2,
			UnitPrice:         decimal.NewFromInt(1200),
			OriginalUnitPrice: decimal.NewNullDecimal(decimal.NewFromInt(1500)),
		},
		{
			ProductID: "P2",
			Name:      "Socks",
			Quantity:  1,
			UnitPrice: decimal.NewFromInt(300),
		},
	}

	v := NewProjector().Project(lineitem.KindCart, items)

	assert.Equal(t, 3, v.TotalItems)
	assert.True(t, v.TotalValue.Equal(decimal.NewFromInt(2700)))
	assert.Equal(t, "₹2,700", v.TotalFormatted)
	assert.Equal(t, "(3 items)", v.CountBadge)
	assert.False(t, v.Empty)
	assert.True(t, v.CheckoutEnabled)

	require.Len(t, v.Rows, 2)
	first := v.Rows[0]
	assert.Equal(t, "P1", first.ProductID)
	assert.Equal(t, "₹2,400", first.LineTotalFormatted)
	assert.Equal(t, "₹1,500", first.OriginalPriceFormatted)
	assert.Equal(t, 20, first.DiscountPercent)
	assert.Equal(t, "20% off", first.DiscountLabel)

	second := v.Rows[1]
	assert.Empty(t, second.DiscountLabel)
	assert.Empty(t, second.OriginalPriceFormatted)
}

func TestProjectEmpty(t *testing.T) {
	v := NewProjector().ProjectStore(lineitem.New(lineitem.KindWishlist))
	assert.True(t, v.Empty)
	assert.False(t, v.CheckoutEnabled)
	assert.Equal(t, "(0 items)", v.CountBadge)
	assert.Equal(t, "₹0", v.TotalFormatted)
	assert.NotNil(t, v.Rows)
	assert.Equal(t, lineitem.KindWishlist, v.Kind)
}

func TestPriceAboveOriginalHasNoLabel(t *testing.T) {
	items := []lineitem.LineItem{{
		ProductID:         "P1",
		Quantity:          1,
		UnitPrice:         decimal.NewFromInt(200),
		OriginalUnitPrice: decimal.NewNullDecimal(decimal.NewFromInt(100)),
	}}
	row := NewProjector().Project(lineitem.KindCart, items).Rows[0]
	assert.Equal(t, 0, row.DiscountPercent)
	assert.Empty(t, row.DiscountLabel)
	assert.Equal(t, "₹100", row.OriginalPriceFormatted)
}

func TestRendererFunc(t *testing.T) {
	var got View
	r := RendererFunc(func(_ context.Context, v View) { got = v })
	r.Render(context.Background(), View{CountBadge: "(1 item)"})
	assert.Equal(t, "(1 item)", got.CountBadge)
	NopRenderer.Render(context.Background(), got)
}
