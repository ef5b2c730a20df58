package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	maxIDLen   = 128
	maxTextLen = 256
	maxRefLen  = 2048
)

type keyPayload struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (p keyPayload) toKey() lineitem.Key {
	return lineitem.NewKey(
		validators.SanitizeString(p.ProductID, maxIDLen),
		validators.SanitizeString(p.Size, maxIDLen),
		validators.SanitizeString(p.Color, maxIDLen),
	)
}

type itemPayload struct {
	keyPayload
	Name          string           `json:"name" validate:"required"`
	Brand         string           `json:"brand"`
	Image         string           `json:"image"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
}

func (p itemPayload) toItem() (lineitem.LineItem, error) {
	if p.Price.IsNegative() {
		return lineitem.LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"price": "must not be negative"})
	}
	key := p.toKey()
	item := lineitem.LineItem{
		ProductID: key.ProductID,
		Size:      key.Size,
		Color:     key.Color,
		Name:      validators.SanitizeString(p.Name, maxTextLen),
		Brand:     validators.SanitizeString(p.Brand, maxTextLen),
		ImageRef:  validators.SanitizeString(p.Image, maxRefLen),
		UnitPrice: p.Price,
	}
	if p.OriginalPrice != nil {
		item.OriginalUnitPrice = decimal.NewNullDecimal(*p.OriginalPrice)
	}
	return item, nil
}

type addToCartRequest struct {
	itemPayload
	Quantity int `json:"quantity"`
}

type quantityRequest struct {
	keyPayload
	Delta    *int `json:"delta" validate:"required_without=Quantity,excluded_with=Quantity"`
	Quantity *int `json:"quantity" validate:"required_without=Delta"`
}

// keyFromQuery reads a line item key from product_id, size and color.
func keyFromQuery(r *http.Request) (lineitem.Key, error) {
	productID, err := validators.RequiredQueryString(r, "product_id", maxIDLen)
	if err != nil {
		return lineitem.Key{}, err
	}
	return lineitem.NewKey(
		productID,
		validators.QueryString(r, "size", maxIDLen),
		validators.QueryString(r, "color", maxIDLen),
	), nil
}
