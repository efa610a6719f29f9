// Package redis implements ports.TransitionSink on Redis. Each transition is
// stored once under a (conversation, sequence) key; a per-conversation sorted
// set keeps the read-back order.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/warrenhq/warren/pkg/domain"
)

// Sink implements ports.TransitionSink using Redis.
type Sink struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Sink)

// WithTTL sets the expiration for stored transitions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Sink) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Sink) {
		s.prefix = prefix
	}
}

// New creates a Redis sink with its own client.
func New(address, password string, db int, opts ...Option) *Sink {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis sink from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Sink {
	s := &Sink{
		client: client,
		prefix: "warren:",
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) key(t domain.Transition) string {
	return s.prefix + "transition:" + t.Key()
}

func (s *Sink) indexKey(conversationID string) string {
	return s.prefix + "conversation:" + conversationID
}

// Record stores the transition. SETNX makes a replay of an already-stored
// sequence number a no-op, so at-least-once delivery never duplicates rows.
func (s *Sink) Record(ctx context.Context, t domain.Transition) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}

	stored, err := s.client.SetNX(ctx, s.key(t), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	if !stored {
		return nil
	}

	err = s.client.ZAdd(ctx, s.indexKey(t.ConversationID), backend.Z{
		Score:  float64(t.SequenceNumber),
		Member: t.Key(),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to index transition: %w", err)
	}
	if s.ttl > 0 {
		s.client.Expire(ctx, s.indexKey(t.ConversationID), s.ttl)
	}
	return nil
}

// Transitions reads a conversation's transitions back in sequence order.
func (s *Sink) Transitions(ctx context.Context, conversationID string) ([]domain.Transition, error) {
	keys, err := s.client.ZRange(ctx, s.indexKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	if len(keys) == 0 {
		return []domain.Transition{}, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + "transition:" + k
	}
	vals, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read transitions: %w", err)
	}

	out := make([]domain.Transition, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Index entry outlived its value (TTL expiry race); skip it.
			continue
		}
		var t domain.Transition
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transition: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Close closes the redis client.
func (s *Sink) Close() error {
	return s.client.Close()
}
