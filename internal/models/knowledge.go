// internal/models/knowledge.go
package models

import "time"

// QAItem is a tenant-authored question/answer pair.
type QAItem struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Question  string    `json:"question" db:"question"`
	Answer    string    `json:"answer" db:"answer"`
	Keywords  []string  `json:"keywords,omitempty" db:"keywords"`
	Category  string    `json:"category,omitempty" db:"category"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// WidgetFAQ is a FAQ entry shown by the widget itself.
type WidgetFAQ struct {
	ID        string `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	Question  string `json:"question" db:"question"`
	Answer    string `json:"answer" db:"answer"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
	IsActive  bool   `json:"is_active" db:"is_active"`
}

// ResponseTemplate overrides a built-in localized reply for one tenant.
// Key is an intent name or a named fallback such as "clarify".
type ResponseTemplate struct {
	ID       string `bson:"_id,omitempty" json:"id"`
	UserID   string `bson:"user_id" json:"user_id"`
	Key      string `bson:"key" json:"key"`
	Language string `bson:"language" json:"language"`
	Text     string `bson:"text" json:"text"`
}

// CommonPhrase is a canned answer triggered by any of its patterns.
type CommonPhrase struct {
	ID       string   `bson:"_id,omitempty" json:"id"`
	UserID   string   `bson:"user_id" json:"user_id"`
	Patterns []string `bson:"patterns" json:"patterns"`
	Language string   `bson:"language" json:"language"`
	Answer   string   `bson:"answer" json:"answer"`
}
