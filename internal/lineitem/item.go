package lineitem

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies which collection a store backs.
type Kind string

const (
	KindCart     Kind = "cart"
	KindWishlist Kind = "wishlist"
)

// IsValid reports whether the kind is one the storefront knows about.
func (k Kind) IsValid() bool {
	switch k {
	case KindCart, KindWishlist:
		return true
	}
	return false
}

// Key is the identity of a line item: the product plus its variant selection.
type Key struct {
	ProductID string
	Size      string
	Color     string
}

// NewKey trims the parts so keys built from query strings and stored records compare equal.
func NewKey(productID, size, color string) Key {
	return Key{
		ProductID: strings.TrimSpace(productID),
		Size:      strings.TrimSpace(size),
		Color:     strings.TrimSpace(color),
	}
}

func (k Key) IsZero() bool {
	return k.ProductID == ""
}

func (k Key) String() string {
	return k.ProductID + "/" + k.Size + "/" + k.Color
}

// LineItem is one row of a cart or wishlist.
type LineItem struct {
	ProductID string
	Size      string
	Color     string

	Name     string
	Brand    string
	ImageRef string

	Quantity          int
	UnitPrice         decimal.Decimal
	OriginalUnitPrice decimal.NullDecimal

	AddedAt time.Time
}

func (i LineItem) Key() Key {
	return NewKey(i.ProductID, i.Size, i.Color)
}

// LineTotal is unit price times quantity.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// HasDiscount reports whether an original price above zero is known.
func (i LineItem) HasDiscount() bool {
	return i.OriginalUnitPrice.Valid && i.OriginalUnitPrice.Decimal.IsPositive()
}
