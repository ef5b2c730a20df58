package models

import "time"

// CartDocument is one user's cart or wishlist, stored as a JSON array of
// line item records.
type CartDocument struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Kind      string    `gorm:"column:kind;primaryKey"`
	Items     string    `gorm:"column:items;type:jsonb;not null;default:'[]'"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (CartDocument) TableName() string {
	return "cart_documents"
}
