package view

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const defaultCurrencySymbol = "₹"

var hundred = decimal.NewFromInt(100)

// Row is the display form of one line item.
type Row struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Name      string `json:"name"`
	Brand     string `json:"brand,omitempty"`
	ImageRef  string `json:"image,omitempty"`

	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	UnitPriceFormatted string          `json:"unit_price_formatted"`
	LineTotal          decimal.Decimal `json:"line_total"`
	LineTotalFormatted string          `json:"line_total_formatted"`

	OriginalPriceFormatted string `json:"original_price_formatted,omitempty"`
	DiscountPercent        int    `json:"discount_percent,omitempty"`
	DiscountLabel          string `json:"discount_label,omitempty"`
}

// View is everything a renderer needs to draw a cart or wishlist.
type View struct {
	Kind            lineitem.Kind   `json:"kind"`
	Rows            []Row           `json:"rows"`
	TotalItems      int             `json:"total_items"`
	TotalValue      decimal.Decimal `json:"total_value"`
	TotalFormatted  string          `json:"total_formatted"`
	CountBadge      string          `json:"count_badge"`
	Empty           bool            `json:"empty"`
	CheckoutEnabled bool            `json:"checkout_enabled"`
}

// Renderer draws a projected view.
type Renderer interface {
	Render(ctx context.Context, v View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, v View)

func (f RendererFunc) Render(ctx context.Context, v View) { f(ctx, v) }

// NopRenderer ignores every view.
var NopRenderer Renderer = RendererFunc(func(context.Context, View) {})

// Projector turns line items into views. It holds no state beyond formatting
// settings and is safe for concurrent use.
type Projector struct {
	printer *message.Printer
	symbol  string
}

type Option func(*Projector)

// WithLanguage selects the locale used for digit grouping.
func WithLanguage(tag language.Tag) Option {
	return func(p *Projector) {
		p.printer = message.NewPrinter(tag)
	}
}

func WithCurrencySymbol(symbol string) Option {
	return func(p *Projector) {
		p.symbol = symbol
	}
}

func NewProjector(opts ...Option) *Projector {
	p := &Projector{
		printer: message.NewPrinter(language.English),
		symbol:  defaultCurrencySymbol,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project builds the view for items in their given order.
func (p *Projector) Project(kind lineitem.Kind, items []lineitem.LineItem) View {
	v := View{
		Kind:       kind,
		Rows:       make([]Row, 0, len(items)),
		TotalValue: decimal.Zero,
	}
	for _, item := range items {
		v.Rows = append(v.Rows, p.row(item))
		v.TotalItems += item.Quantity
		v.TotalValue = v.TotalValue.Add(item.LineTotal())
	}
	v.TotalFormatted = p.FormatMoney(v.TotalValue)
	v.CountBadge = CountBadge(v.TotalItems)
	v.Empty = len(items) == 0
	v.CheckoutEnabled = !v.Empty
	return v
}

// ProjectStore snapshots a store and projects it.
func (p *Projector) ProjectStore(s *lineitem.Store) View {
	return p.Project(s.Kind(), s.Items())
}

func (p *Projector) row(item lineitem.LineItem) Row {
	total := item.LineTotal()
	r := Row{
		ProductID:          item.ProductID,
		Size:               item.Size,
		Color:              item.Color,
		Name:               item.Name,
		Brand:              item.Brand,
		ImageRef:           item.ImageRef,
		Quantity:           item.Quantity,
		UnitPrice:          item.UnitPrice,
		UnitPriceFormatted: p.FormatMoney(item.UnitPrice),
		LineTotal:          total,
		LineTotalFormatted: p.FormatMoney(total),
	}
	if item.HasDiscount() {
		orig := item.OriginalUnitPrice.Decimal
		r.OriginalPriceFormatted = p.FormatMoney(orig)
		if pct := DiscountPercent(item.UnitPrice, orig); pct > 0 {
			r.DiscountPercent = pct
			r.DiscountLabel = fmt.Sprintf("%d%% off", pct)
		}
	}
	return r
}

// FormatMoney renders an amount with the currency symbol and digit grouping.
// Whole amounts carry no decimals; anything else is shown with two.
func (p *Projector) FormatMoney(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	if amount.IsInteger() {
		return sign + p.symbol + p.printer.Sprintf("%d", amount.Abs().IntPart())
	}
	rounded := amount.Abs().Round(2)
	whole := rounded.Truncate(0)
	cents := rounded.Sub(whole).Mul(hundred).IntPart()
	return sign + p.symbol + p.printer.Sprintf("%d", whole.IntPart()) + fmt.Sprintf(".%02d", cents)
}

// CountBadge renders the item counter next to a cart or wishlist heading.
func CountBadge(n int) string {
	if n == 1 {
		return "(1 item)"
	}
	return fmt.Sprintf("(%d items)", n)
}

// DiscountPercent is round((1 - unit/original) * 100). It returns 0 when the
// original price is not positive.
func DiscountPercent(unit, original decimal.Decimal) int {
	if !original.IsPositive() {
		return 0
	}
	pct := decimal.NewFromInt(1).Sub(unit.Div(original)).Mul(hundred)
	return int(pct.Round(0).IntPart())
}
