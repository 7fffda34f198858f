// internal/assistant/orchestrator/escalation.go

package orchestrator

import (
	"context"
	"time"

	"widget-assistant/internal/assistant/intent"
)

// Escalation reasons.
const (
	ReasonHumanAgent  = "human_agent"
	ReasonOrderStatus = "order_status"
)

// EscalationNotice asks the shop's staff to take over a conversation.
type EscalationNotice struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Reason         string    `json:"reason"`
	Query          string    `json:"query"`
	OrderNumber    string    `json:"order_number,omitempty"`
	Email          string    `json:"email,omitempty"`
	Language       string    `json:"language"`
	RecentQueries  []string  `json:"recent_queries"`
	CreatedAt      time.Time `json:"created_at"`
}

// Escalator delivers escalation notices.
type Escalator interface {
	Escalate(ctx context.Context, n EscalationNotice) error
}

// escalate reports whether the notice was delivered.
func (o *Orchestrator) escalate(ctx context.Context, t *turn, reason string) bool {
	if o.escalator == nil {
		return false
	}
	e := t.analysis.Entities
	n := EscalationNotice{
		ConversationID: t.conv.ConversationID,
		UserID:         t.userID,
		Reason:         reason,
		Query:          t.req.Query,
		OrderNumber:    e.OrderNumber,
		Email:          e.Email,
		Language:       t.langCode,
		RecentQueries:  t.conv.RecentQueries(5),
		CreatedAt:      time.Now().UTC(),
	}
	if err := o.escalator.Escalate(ctx, n); err != nil {
		o.logger.Error("escalation failed", map[string]interface{}{
			"conversationId": n.ConversationID,
			"reason":         reason,
			"error":          err.Error(),
		})
		return false
	}
	o.logger.Info("conversation escalated", map[string]interface{}{
		"conversationId": n.ConversationID,
		"reason":         reason,
	})
	return true
}

func wantsHuman(e intent.Entities) bool {
	for _, r := range e.ServiceRequests {
		if r == ReasonHumanAgent {
			return true
		}
	}
	return false
}
