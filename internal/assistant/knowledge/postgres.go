// internal/assistant/knowledge/postgres.go

package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"widget-assistant/internal/models"
)

const defaultQALimit = 10

// PostgresQA reads tenant Q&A items and widget FAQs.
type PostgresQA struct {
	db *sql.DB
}

func NewPostgresQA(db *sql.DB) *PostgresQA {
	return &PostgresQA{db: db}
}

// FindQAItems matches the keyword against question, answer and the
// keyword array.
func (r *PostgresQA) FindQAItems(ctx context.Context, userID, keyword string, limit int) ([]models.QAItem, error) {
	if limit <= 0 {
		limit = defaultQALimit
	}
	pattern := likePattern(keyword)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, question, answer, keywords, category, updated_at
		FROM qa_items
		WHERE user_id = $1
		  AND (question ILIKE $2 OR answer ILIKE $2 OR $3 = ANY(keywords))
		ORDER BY updated_at DESC
		LIMIT $4`, userID, pattern, strings.ToLower(strings.TrimSpace(keyword)), limit)
	if err != nil {
		return nil, fmt.Errorf("query qa_items: %w", err)
	}
	defer rows.Close()

	var items []models.QAItem
	for rows.Next() {
		var it models.QAItem
		var category sql.NullString
		if err := rows.Scan(&it.ID, &it.UserID, &it.Question, &it.Answer,
			pq.Array(&it.Keywords), &category, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan qa_item: %w", err)
		}
		it.Category = category.String
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresQA) FindWidgetFAQs(ctx context.Context, userID, keyword string, limit int) ([]models.WidgetFAQ, error) {
	if limit <= 0 {
		limit = defaultQALimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, question, answer, sort_order, is_active
		FROM widget_faqs
		WHERE user_id = $1 AND is_active = TRUE
		  AND (question ILIKE $2 OR answer ILIKE $2)
		ORDER BY sort_order ASC
		LIMIT $3`, userID, likePattern(keyword), limit)
	if err != nil {
		return nil, fmt.Errorf("query widget_faqs: %w", err)
	}
	defer rows.Close()

	var faqs []models.WidgetFAQ
	for rows.Next() {
		var f models.WidgetFAQ
		if err := rows.Scan(&f.ID, &f.UserID, &f.Question, &f.Answer, &f.SortOrder, &f.IsActive); err != nil {
			return nil, fmt.Errorf("scan widget_faq: %w", err)
		}
		faqs = append(faqs, f)
	}
	return faqs, rows.Err()
}

// likePattern escapes LIKE wildcards in the keyword.
func likePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(keyword)) + "%"
}
