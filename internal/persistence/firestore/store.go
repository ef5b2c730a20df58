package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	gcfirestore "cloud.google.com/go/firestore"
	"github.com/angelmondragon/storefront-backend/internal/lineitem"
	"github.com/angelmondragon/storefront-backend/internal/persistence"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Document fields.
const (
	fieldUserID    = "userId"
	fieldItems     = "items"
	fieldUpdatedAt = "updatedAt"
)

// documents is the slice of the Firestore client the store needs.
type documents interface {
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	Set(ctx context.Context, collection, id string, data map[string]any) error
}

// Store is a DocumentStore with one Firestore document per user. Carts and
// wishlists live in separate collections and the document id is the user id.
type Store struct {
	docs        documents
	collections map[lineitem.Kind]string
}

// NewStore wires the store to a Firestore client.
func NewStore(client *gcfirestore.Client, cfg config.FirestoreConfig) (*Store, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "firestore client required")
	}
	return newStore(&clientDocuments{client: client}, cfg), nil
}

func newStore(docs documents, cfg config.FirestoreConfig) *Store {
	carts := strings.TrimSpace(cfg.CartsCollection)
	if carts == "" {
		carts = "carts"
	}
	wishlists := strings.TrimSpace(cfg.WishlistsCollection)
	if wishlists == "" {
		wishlists = "wishlists"
	}
	return &Store{
		docs: docs,
		collections: map[lineitem.Kind]string{
			lineitem.KindCart:     carts,
			lineitem.KindWishlist: wishlists,
		},
	}
}

func (s *Store) collection(kind lineitem.Kind) (string, error) {
	name, ok := s.collections[kind]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown collection kind %q", kind))
	}
	return name, nil
}

func (s *Store) ReadDocument(ctx context.Context, kind lineitem.Kind, userID string) (persistence.Document, error) {
	col, err := s.collection(kind)
	if err != nil {
		return persistence.Document{}, err
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return persistence.Document{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is empty")
	}

	data, err := s.docs.Get(ctx, col, uid)
	if err != nil {
		return persistence.Document{}, mapError(err, "read")
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return persistence.Document{}, pkgerrors.Wrap(pkgerrors.CodeDeserialization, err, "decode firestore document")
	}
	// the document id is the source of truth for the owner
	doc.UserID = uid
	doc.Kind = kind
	return doc, nil
}

// WriteDocument overwrites the whole document.
func (s *Store) WriteDocument(ctx context.Context, doc persistence.Document) error {
	col, err := s.collection(doc.Kind)
	if err != nil {
		return err
	}
	uid := strings.TrimSpace(doc.UserID)
	if uid == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is empty")
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	if err := s.docs.Set(ctx, col, uid, encodeDocument(uid, doc)); err != nil {
		return mapError(err, "write")
	}
	return nil
}

func mapError(err error, op string) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("firestore %s: %w", op, persistence.ErrDocumentNotFound)
	case codes.PermissionDenied, codes.Unauthenticated:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "firestore "+op)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "firestore "+op)
	}
}

func encodeDocument(uid string, doc persistence.Document) map[string]any {
	items := make([]any, 0, len(doc.Items))
	for _, r := range doc.Items {
		m := map[string]any{
			"productId": r.ProductID,
			"size":      r.Size,
			"color":     r.Color,
			"name":      r.Name,
			"brand":     r.Brand,
			"image":     r.Image,
			"price":     r.Price.String(),
			"quantity":  int64(r.Quantity),
		}
		if r.OriginalPrice != nil {
			m["originalPrice"] = r.OriginalPrice.String()
		}
		if !r.AddedAt.IsZero() {
			m["addedAt"] = r.AddedAt.UTC()
		}
		items = append(items, m)
	}
	return map[string]any{
		fieldUserID:    uid,
		fieldItems:     items,
		fieldUpdatedAt: doc.UpdatedAt.UTC(),
	}
}

// decodeDocument parses snapshot data by hand so older documents with
// numeric prices or an "id" product field still load.
func decodeDocument(data map[string]any) (persistence.Document, error) {
	var doc persistence.Document
	if data == nil {
		return doc, nil
	}
	if ts, ok := data[fieldUpdatedAt].(time.Time); ok {
		doc.UpdatedAt = ts
	}

	raw, ok := data[fieldItems]
	if !ok || raw == nil {
		doc.Items = []persistence.Record{}
		return doc, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return doc, fmt.Errorf("items: unexpected type %T", raw)
	}

	doc.Items = make([]persistence.Record, 0, len(list))
	for i, v := range list {
		m, ok := v.(map[string]any)
		if !ok {
			return doc, fmt.Errorf("items[%d]: unexpected type %T", i, v)
		}
		rec, err := decodeRecord(m)
		if err != nil {
			return doc, fmt.Errorf("items[%d]: %w", i, err)
		}
		doc.Items = append(doc.Items, rec)
	}
	return doc, nil
}

func decodeRecord(m map[string]any) (persistence.Record, error) {
	rec := persistence.Record{
		ProductID: stringField(m, "productId"),
		Size:      stringField(m, "size"),
		Color:     stringField(m, "color"),
		Name:      stringField(m, "name"),
		Brand:     stringField(m, "brand"),
		Image:     stringField(m, "image"),
	}
	if rec.ProductID == "" {
		rec.ProductID = stringField(m, "id")
	}

	price, ok, err := decimalField(m, "price")
	if err != nil {
		return rec, err
	}
	if ok {
		rec.Price = price
	}
	orig, ok, err := decimalField(m, "originalPrice")
	if err != nil {
		return rec, err
	}
	if ok {
		rec.OriginalPrice = &orig
	}

	switch q := m["quantity"].(type) {
	case int64:
		rec.Quantity = int(q)
	case float64:
		rec.Quantity = int(q)
	case nil:
		rec.Quantity = 1
	default:
		return rec, fmt.Errorf("quantity: unexpected type %T", q)
	}

	if ts, ok := m["addedAt"].(time.Time); ok {
		rec.AddedAt = ts
	}
	return rec, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func decimalField(m map[string]any, key string) (decimal.Decimal, bool, error) {
	switch v := m[key].(type) {
	case nil:
		return decimal.Decimal{}, false, nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, false, fmt.Errorf("%s: %w", key, err)
		}
		return d, true, nil
	case int64:
		return decimal.NewFromInt(v), true, nil
	case float64:
		return decimal.NewFromFloat(v), true, nil
	default:
		return decimal.Decimal{}, false, fmt.Errorf("%s: unexpected type %T", key, v)
	}
}

type clientDocuments struct {
	client *gcfirestore.Client
}

func (c *clientDocuments) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	snap, err := c.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil || !snap.Exists() {
		return nil, status.Error(codes.NotFound, "document does not exist")
	}
	return snap.Data(), nil
}

func (c *clientDocuments) Set(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := c.client.Collection(collection).Doc(id).Set(ctx, data)
	return err
}

var _ persistence.DocumentStore = (*Store)(nil)
