package updatecontext

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"widget-assistant/internal/assistant/conversation"
	apperrors "widget-assistant/internal/common/errors"
	"widget-assistant/internal/common/logger"
)

func createMockJob(variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:           7,
		Type:          TaskType,
		CustomHeaders: "{}",
		Retries:       3,
		Variables:     string(variablesJSON),
	}}
}

func newStore(t *testing.T) *conversation.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return conversation.NewStore(client, time.Hour)
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(nil, nil, logger.NewNoOpLogger())
	assert.Error(t, err)

	_, err = NewHandler(&Config{Timeout: time.Second}, newStore(t), logger.NewNoOpLogger())
	assert.EqualError(t, err, "invalid configuration for update-context: max_jobs_active must be positive")

	h, err := NewHandler(nil, newStore(t), logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), h.config)
}

func TestHandler_ParseInput(t *testing.T) {
	h, err := NewHandler(nil, newStore(t), logger.NewTestLogger(t))
	require.NoError(t, err)

	in, err := h.parseInput(createMockJob(map[string]interface{}{
		"conversationId": "conv-1",
		"userId":         "shop-1",
		"query":          "kolo do 20000",
		"intent":         "product_recommendation",
		"entities":       map[string]interface{}{"category": "kolo"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "kolo", in.Entities["category"])

	_, err = h.parseInput(createMockJob(map[string]interface{}{
		"userId":   "shop-1",
		"query":    "kolo",
		"entities": []interface{}{"kolo"},
	}))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
}

func TestHandler_Execute_AccumulatesAcrossTurns(t *testing.T) {
	h, err := NewHandler(nil, newStore(t), logger.NewTestLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	out, err := h.Execute(ctx, &Input{
		ConversationID: "conv-1",
		UserID:         "shop-1",
		Query:          "Hledám horské kolo",
		Intent:         "product_recommendation",
		Entities:       map[string]interface{}{"category": "kolo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "kolo", out.Category)
	assert.False(t, out.BudgetRange.IsSet())

	out, err = h.Execute(ctx, &Input{
		ConversationID: "conv-1",
		UserID:         "shop-1",
		Query:          "do 20000 Kč",
		Intent:         "product_recommendation",
		Entities:       map[string]interface{}{"price_range": map[string]interface{}{"max": 20000}},
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", out.ConversationID)
	assert.Equal(t, "kolo", out.Category)
	require.NotNil(t, out.BudgetRange.Max)
	assert.Equal(t, 20000.0, *out.BudgetRange.Max)
	assert.NotEmpty(t, out.FilterQuery)
}

func TestHandler_Execute_StoreError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectGet(conversation.Key("conv-1")).SetErr(fmt.Errorf("connection reset"))

	h, err := NewHandler(nil, conversation.NewStore(client, time.Hour), logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), &Input{ConversationID: "conv-1", UserID: "shop-1", Query: "ahoj"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeContextStoreFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}
