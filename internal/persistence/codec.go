package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var recordValidator = validator.New()

// Record is the stored form of a line item. Field names match the browser
// storefront's storage so existing device data stays readable.
type Record struct {
	ProductID     string           `json:"productId" validate:"required"`
	Size          string           `json:"size,omitempty"`
	Color         string           `json:"color,omitempty"`
	Name          string           `json:"name,omitempty"`
	Brand         string           `json:"brand,omitempty"`
	Image         string           `json:"image,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Quantity      int              `json:"quantity" validate:"gte=1"`
	AddedAt       time.Time        `json:"addedAt"`
}

// UnmarshalJSON accepts the legacy `id` field in place of `productId`.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	var raw struct {
		alias
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record(raw.alias)
	if r.ProductID == "" {
		r.ProductID = raw.ID
	}
	return nil
}

func (r Record) validate() error {
	if err := recordValidator.Struct(r); err != nil {
		return err
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("negative price for %s", r.ProductID)
	}
	if r.OriginalPrice != nil && r.OriginalPrice.IsNegative() {
		return fmt.Errorf("negative original price for %s", r.ProductID)
	}
	return nil
}

func toRecord(item lineitem.LineItem) Record {
	rec := Record{
		ProductID: item.ProductID,
		Size:      item.Size,
		Color:     item.Color,
		Name:      item.Name,
		Brand:     item.Brand,
		Image:     item.ImageRef,
		Price:     item.UnitPrice,
		Quantity:  item.Quantity,
		AddedAt:   item.AddedAt.UTC(),
	}
	if item.OriginalUnitPrice.Valid {
		orig := item.OriginalUnitPrice.Decimal
		rec.OriginalPrice = &orig
	}
	return rec
}

func (r Record) toItem() lineitem.LineItem {
	item := lineitem.LineItem{
		ProductID: r.ProductID,
		Size:      r.Size,
		Color:     r.Color,
		Name:      r.Name,
		Brand:     r.Brand,
		ImageRef:  r.Image,
		Quantity:  r.Quantity,
		UnitPrice: r.Price,
		AddedAt:   r.AddedAt,
	}
	if r.OriginalPrice != nil {
		item.OriginalUnitPrice = decimal.NewNullDecimal(*r.OriginalPrice)
	}
	return item
}

// ToRecords converts items to their stored form.
func ToRecords(items []lineitem.LineItem) []Record {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		out = append(out, toRecord(item))
	}
	return out
}

// FromRecords validates records and converts them back to items. Any invalid
// record rejects the whole collection.
func FromRecords(records []Record) ([]lineitem.LineItem, error) {
	out := make([]lineitem.LineItem, 0, len(records))
	for i, rec := range records {
		if err := rec.validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDeserialization, err, fmt.Sprintf("record %d", i))
		}
		out = append(out, rec.toItem())
	}
	return out, nil
}

// Encode serializes items as a JSON array of records.
func Encode(items []lineitem.LineItem) ([]byte, error) {
	data, err := json.Marshal(ToRecords(items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode line items")
	}
	return data, nil
}

// Decode parses a JSON array of records. Empty input decodes to no items.
func Decode(data []byte) ([]lineitem.LineItem, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []lineitem.LineItem{}, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDeserialization, err, "decode line items")
	}
	return FromRecords(records)
}
