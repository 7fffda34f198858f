// internal/assistant/knowledge/mongo.go

package knowledge

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/models"
)

// MongoCatalog reads products, response templates and common phrases from
// their Mongo collections. Every query is filtered by user_id.
type MongoCatalog struct {
	products  *mongo.Collection
	templates *mongo.Collection
	phrases   *mongo.Collection
	logger    logger.Logger
}

func NewMongoCatalog(products, templates, phrases *mongo.Collection, log logger.Logger) *MongoCatalog {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &MongoCatalog{
		products:  products,
		templates: templates,
		phrases:   phrases,
		logger:    log.With(map[string]interface{}{"repository": "mongo_catalog"}),
	}
}

func (m *MongoCatalog) ListProducts(ctx context.Context, userID string) ([]models.Product, error) {
	cur, err := m.products.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return m.decodeProducts(ctx, cur)
}

// SearchProducts runs a $text query ordered by text score.
func (m *MongoCatalog) SearchProducts(ctx context.Context, userID, text string, limit int) ([]models.Product, error) {
	opts := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := m.products.Find(ctx, bson.M{
		"user_id": userID,
		"$text":   bson.M{"$search": text},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("text search products: %w", err)
	}
	return m.decodeProducts(ctx, cur)
}

// decodeProducts validates each raw document and skips the invalid ones.
func (m *MongoCatalog) decodeProducts(ctx context.Context, cur *mongo.Cursor) ([]models.Product, error) {
	defer cur.Close(ctx)

	var out []models.Product
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			m.logger.Warn("skipping undecodable product document", map[string]interface{}{"error": err.Error()})
			continue
		}
		delete(raw, "score")
		if err := ValidateProduct(raw); err != nil {
			m.logger.Warn("skipping invalid product document", map[string]interface{}{
				"productId": fmt.Sprint(raw["_id"]),
				"error":     err.Error(),
			})
			continue
		}

		var p models.Product
		data, err := bson.Marshal(raw)
		if err == nil {
			err = bson.Unmarshal(data, &p)
		}
		if err != nil {
			m.logger.Warn("skipping product with unexpected field types", map[string]interface{}{
				"productId": fmt.Sprint(raw["_id"]),
				"error":     err.Error(),
			})
			continue
		}
		out = append(out, p)
	}
	if err := cur.Err(); err != nil {
		return out, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func (m *MongoCatalog) ListTemplates(ctx context.Context, userID string) ([]models.ResponseTemplate, error) {
	if m.templates == nil {
		return nil, nil
	}
	cur, err := m.templates.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("find templates: %w", err)
	}
	var out []models.ResponseTemplate
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	return out, nil
}

func (m *MongoCatalog) ListPhrases(ctx context.Context, userID string) ([]models.CommonPhrase, error) {
	if m.phrases == nil {
		return nil, nil
	}
	cur, err := m.phrases.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("find phrases: %w", err)
	}
	var out []models.CommonPhrase
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode phrases: %w", err)
	}
	return out, nil
}

// UpsertProduct writes p keyed by its id and tenant.
func (m *MongoCatalog) UpsertProduct(ctx context.Context, p models.Product) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	_, err := m.products.UpdateOne(ctx,
		bson.M{"_id": p.ID, "user_id": p.UserID},
		bson.M{"$set": p},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}
	return nil
}

// DeleteProduct reports whether a document was removed.
func (m *MongoCatalog) DeleteProduct(ctx context.Context, userID, productID string) (bool, error) {
	res, err := m.products.DeleteOne(ctx, bson.M{"_id": productID, "user_id": userID})
	if err != nil {
		return false, fmt.Errorf("delete product %s: %w", productID, err)
	}
	return res.DeletedCount > 0, nil
}

// Tenants lists the distinct tenants that own products.
func (m *MongoCatalog) Tenants(ctx context.Context) ([]string, error) {
	values, err := m.products.Distinct(ctx, "user_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct tenants: %w", err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
