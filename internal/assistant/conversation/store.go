// internal/assistant/conversation/store.go

package conversation

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"widget-assistant/internal/common/errors"
)

const keyPrefix = "assistant:context:"

// ErrTenantMismatch is returned when a stored conversation belongs to
// another tenant.
var ErrTenantMismatch = stderrors.New("conversation belongs to another tenant")

// Store keeps contexts in Redis between turns.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
	opts   []Option
}

// NewStore returns a store whose entries expire ttl after the last save.
// A zero ttl keeps entries forever. opts are applied to every loaded context.
func NewStore(client redis.Cmdable, ttl time.Duration, opts ...Option) *Store {
	return &Store{client: client, ttl: ttl, opts: opts}
}

func Key(conversationID string) string {
	return keyPrefix + conversationID
}

// Load returns the stored context, or a new empty one when none exists.
func (s *Store) Load(ctx context.Context, conversationID, userID string) (*Context, error) {
	if conversationID == "" {
		return New("", userID, s.opts...), nil
	}

	data, err := s.client.Get(ctx, Key(conversationID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return New(conversationID, userID, s.opts...), nil
	}
	if err != nil {
		return nil, errors.NewContextStoreFailedError(conversationID, err)
	}

	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.NewContextStoreFailedError(conversationID, err)
	}
	if userID != "" && c.UserID != "" && c.UserID != userID {
		return nil, errors.NewContextStoreFailedError(conversationID, ErrTenantMismatch)
	}
	if c.UserID == "" {
		c.UserID = userID
	}
	c.Apply(s.opts...)
	c.ensure()
	return &c, nil
}

func (s *Store) Save(ctx context.Context, c *Context) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.NewContextStoreFailedError(c.ConversationID, err)
	}
	if err := s.client.Set(ctx, Key(c.ConversationID), data, s.ttl).Err(); err != nil {
		return errors.NewContextStoreFailedError(c.ConversationID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, Key(conversationID)).Err(); err != nil {
		return errors.NewContextStoreFailedError(conversationID, err)
	}
	return nil
}
