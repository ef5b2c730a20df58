package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	"github.com/angelmondragon/storefront-backend/internal/persistence"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type dbClient interface {
	DB() *gorm.DB
}

// Store is a DocumentStore over the cart_documents table.
type Store struct {
	db dbClient
}

// NewStore wires the document store to a GORM client.
func NewStore(db dbClient) (*Store, error) {
	if db == nil || db.DB() == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database client required")
	}
	return &Store{db: db}, nil
}

func (s *Store) ReadDocument(ctx context.Context, kind lineitem.Kind, userID string) (persistence.Document, error) {
	var row models.CartDocument
	err := s.db.DB().WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, string(kind)).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return persistence.Document{}, fmt.Errorf("%s/%s: %w", kind, userID, persistence.ErrDocumentNotFound)
	}
	if err != nil {
		return persistence.Document{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart document")
	}

	var records []persistence.Record
	if err := json.Unmarshal([]byte(row.Items), &records); err != nil {
		return persistence.Document{}, pkgerrors.Wrap(pkgerrors.CodeDeserialization, err, "decode cart document")
	}
	return persistence.Document{
		UserID:    row.UserID,
		Kind:      lineitem.Kind(row.Kind),
		Items:     records,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// WriteDocument upserts the document keyed by user and kind.
func (s *Store) WriteDocument(ctx context.Context, doc persistence.Document) error {
	items := doc.Items
	if items == nil {
		items = []persistence.Record{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart document")
	}

	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	row := models.CartDocument{
		UserID:    doc.UserID,
		Kind:      string(doc.Kind),
		Items:     string(payload),
		UpdatedAt: updatedAt,
	}
	err = s.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write cart document")
	}
	return nil
}

// Delete removes a user's document. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, kind lineitem.Kind, userID string) error {
	err := s.db.DB().WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, string(kind)).
		Delete(&models.CartDocument{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart document")
	}
	return nil
}
