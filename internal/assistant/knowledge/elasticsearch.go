// internal/assistant/knowledge/elasticsearch.go

package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"widget-assistant/internal/models"
)

// DefaultProductIndex is used when no index name is configured.
const DefaultProductIndex = "widget-products"

// ProductIndexMapping is the mapping the reindex tool creates.
const ProductIndexMapping = `{
  "mappings": {
    "properties": {
      "user_id":     {"type": "keyword"},
      "name":        {"type": "text"},
      "description": {"type": "text"},
      "category":    {"type": "keyword"},
      "subcategory": {"type": "keyword"},
      "brand":       {"type": "keyword"},
      "features":    {"type": "text"}
    }
  }
}`

// ElasticIndex is the product full-text index.
type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticIndex(client *elasticsearch.Client, index string) *ElasticIndex {
	if index == "" {
		index = DefaultProductIndex
	}
	return &ElasticIndex{client: client, index: index}
}

type indexedProduct struct {
	UserID      string   `json:"user_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// SearchProductIDs returns ids of the tenant's products ranked by relevance.
func (e *ElasticIndex) SearchProductIDs(ctx context.Context, userID, text string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	query := map[string]interface{}{
		"size":    limit,
		"_source": false,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":     text,
						"fields":    []string{"name^3", "brand^2", "features", "description"},
						"fuzziness": "AUTO",
					},
				},
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"user_id": userID}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", e.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", e.index, res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]string, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// IndexProduct writes or replaces p in the index.
func (e *ElasticIndex) IndexProduct(ctx context.Context, p models.Product) error {
	doc, err := json.Marshal(indexedProduct{
		UserID:      p.UserID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Brand:       p.Brand,
		Features:    p.Features,
	})
	if err != nil {
		return err
	}
	res, err := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(doc),
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("index product %s: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index product %s: %s", p.ID, res.Status())
	}
	return nil
}

// DeleteProduct removes a product; a missing document is not an error.
func (e *ElasticIndex) DeleteProduct(ctx context.Context, productID string) error {
	res, err := esapi.DeleteRequest{Index: e.index, DocumentID: productID}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", productID, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete product %s: %s", productID, res.Status())
	}
	return nil
}
