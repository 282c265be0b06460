// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/goalwriter/pkg/types"
)

const (
	documentKeyFmt  = "goalwriter:document:%s"
	fieldGoal       = "goalStructure"
	fieldEditorText = "editorText"
)

// RedisStore keeps each document in a hash with one field per top-level
// document field, so a partial save is a partial HSET.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects lazily to the server in cfg.
func NewRedisStore(cfg types.PersistenceConfig) *RedisStore {
	return &RedisStore{rdb: redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})}
}

// Client exposes the underlying client.
func (s *RedisStore) Client() *redis.Client { return s.rdb }

// Load returns the user's document, or nil when the hash does not exist.
func (s *RedisStore) Load(ctx context.Context, userID string) (*types.Document, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	fields, err := s.rdb.HGetAll(ctx, fmt.Sprintf(documentKeyFmt, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("loading document for %s: %w", userID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	doc := types.NewDocument()
	doc.EditorText = fields[fieldEditorText]
	if raw := fields[fieldGoal]; raw != "" {
		g, err := decodeGoalStructure([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("loading document for %s: %w", userID, err)
		}
		doc.GoalStructure = g
	}
	return doc, nil
}

// Save writes the non-nil patch fields.
func (s *RedisStore) Save(ctx context.Context, userID string, patch types.DocumentPatch) error {
	if userID == "" {
		return ErrNoUser
	}
	if patch.IsEmpty() {
		return nil
	}
	values := make(map[string]any, 2)
	if patch.GoalStructure != nil {
		data, err := json.Marshal(patch.GoalStructure)
		if err != nil {
			return fmt.Errorf("encoding goal structure: %w", err)
		}
		values[fieldGoal] = string(data)
	}
	if patch.EditorText != nil {
		values[fieldEditorText] = *patch.EditorText
	}
	if err := s.rdb.HSet(ctx, fmt.Sprintf(documentKeyFmt, userID), values).Err(); err != nil {
		return fmt.Errorf("saving document for %s: %w", userID, err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
