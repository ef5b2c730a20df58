package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
)

// keyFlags address one variant of a product.
type keyFlags struct {
	Size  string
	Color string
}

func (k *keyFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&k.Size, "size", "", "variant size")
	cmd.Flags().StringVar(&k.Color, "color", "", "variant color")
}

func (k *keyFlags) key(productID string) lineitem.Key {
	return lineitem.NewKey(productID, k.Size, k.Color)
}

// itemFlags describe a product to add.
type itemFlags struct {
	keyFlags
	Name          string
	Brand         string
	Image         string
	Price         string
	OriginalPrice string
}

func (f *itemFlags) bind(cmd *cobra.Command) {
	f.keyFlags.bind(cmd)
	cmd.Flags().StringVar(&f.Name, "name", "", "display name")
	cmd.Flags().StringVar(&f.Brand, "brand", "", "brand")
	cmd.Flags().StringVar(&f.Image, "image", "", "image reference")
	cmd.Flags().StringVar(&f.Price, "price", "0", "unit price")
	cmd.Flags().StringVar(&f.OriginalPrice, "original-price", "", "price before discount")
}

func (f *itemFlags) item(productID string) (lineitem.LineItem, error) {
	price, err := decimal.NewFromString(f.Price)
	if err != nil {
		return lineitem.LineItem{}, fmt.Errorf("invalid --price %q: %w", f.Price, err)
	}
	item := lineitem.LineItem{
		ProductID: productID,
		Size:      f.Size,
		Color:     f.Color,
		Name:      f.Name,
		Brand:     f.Brand,
		ImageRef:  f.Image,
		UnitPrice: price,
	}
	if item.Name == "" {
		item.Name = productID
	}
	if f.OriginalPrice != "" {
		orig, err := decimal.NewFromString(f.OriginalPrice)
		if err != nil {
			return lineitem.LineItem{}, fmt.Errorf("invalid --original-price %q: %w", f.OriginalPrice, err)
		}
		item.OriginalUnitPrice = decimal.NewNullDecimal(orig)
	}
	return item, nil
}
