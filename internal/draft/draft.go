// Package draft persists the operator's in-progress general-information
// values in the local key-value store.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"hypda/entry/internal/kv"
)

const Key = "generalInfoData"

const (
	FieldEnvName     = "env_name"
	FieldReviewLevel = "review_level"
)

type FieldRow struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// Draft is ordered; insertion order is display order.
type Draft []FieldRow

func (d Draft) Clone() Draft {
	if d == nil {
		return nil
	}
	out := make(Draft, len(d))
	copy(out, d)
	return out
}

// DefaultDraft is the seed used when nothing usable is persisted.
func DefaultDraft() Draft {
	return Draft{
		{Field: FieldEnvName, Value: "", Description: "the hydrogeological environment"},
		{Field: FieldReviewLevel, Value: "", Description: "the levels of reviews endured by the measurements"},
	}
}

type Store struct {
	kv kv.Store
}

func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

// Get never fails: anything other than a persisted JSON array yields the
// default seed.
func (s *Store) Get(ctx context.Context) Draft {
	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		log.Printf("draft: read %s failed, using defaults: %v", Key, err)
		return DefaultDraft()
	}
	if !ok {
		return DefaultDraft()
	}
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		log.Printf("draft: stored %s is not valid JSON, using defaults: %v", Key, err)
		return DefaultDraft()
	}
	if d == nil {
		return DefaultDraft()
	}
	return d
}

// Set overwrites the whole persisted draft.
func (s *Store) Set(ctx context.Context, d Draft) error {
	if d == nil {
		d = Draft{}
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.kv.Set(ctx, Key, string(data)); err != nil {
		return fmt.Errorf("persist draft: %w", err)
	}
	return nil
}
