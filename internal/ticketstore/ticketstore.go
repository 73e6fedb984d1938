// Package ticketstore implements component H: a TTL'd, gzip'd prompt
// envelope store keyed by query id, backing the resumable WHY stream.
package ticketstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"reelix/internal/kvstore"
	"reelix/internal/model"
)

func key(queryID string) string {
	return "reelix:ticket:" + queryID
}

// Store is the ticket store.
type Store struct {
	kv          *kvstore.Store
	slidingTTL  time.Duration
	absoluteTTL time.Duration
}

// New builds a ticket store over the shared kv backend.
func New(kv *kvstore.Store, slidingTTL, absoluteTTL time.Duration) *Store {
	return &Store{kv: kv, slidingTTL: slidingTTL, absoluteTTL: absoluteTTL}
}

// PromptHash canonicalizes an envelope's model/params/calls into a stable
// SHA-256 hex digest, which Put stamps onto the stored envelope.
func PromptHash(env model.PromptsEnvelope) string {
	canon := struct {
		Model  string              `json:"model"`
		Params map[string]any      `json:"params"`
		Calls  []model.PromptCall  `json:"calls"`
	}{Model: env.Model, Params: env.Params, Calls: env.Calls}
	raw, _ := json.Marshal(canon)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Put stores a ticket, stamping CreatedAt and the computed PromptHash.
func (s *Store) Put(ctx context.Context, queryID string, t *model.Ticket) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Prompts.PromptHash = PromptHash(t.Prompts)
	return s.kv.Put(ctx, key(queryID), t, s.slidingTTL)
}

// Get returns the ticket, or nil on miss, decode failure, or absolute-TTL
// expiry (deleting the key in the latter two cases). Refreshes the sliding
// TTL on hit.
func (s *Store) Get(ctx context.Context, queryID string) (*model.Ticket, error) {
	var t model.Ticket
	ok, err := s.kv.Get(ctx, key(queryID), &t, true, s.slidingTTL)
	if err != nil || !ok {
		return nil, err
	}
	if s.absoluteTTL > 0 && time.Since(t.CreatedAt) > s.absoluteTTL {
		_ = s.kv.Delete(ctx, key(queryID))
		return nil, nil
	}
	return &t, nil
}

// Delete removes the ticket.
func (s *Store) Delete(ctx context.Context, queryID string) error {
	return s.kv.Delete(ctx, key(queryID))
}

// Touch refreshes the sliding TTL without reading the value.
func (s *Store) Touch(ctx context.Context, queryID string) bool {
	return s.kv.Touch(ctx, key(queryID), s.slidingTTL)
}

// Update performs a read-modify-write, not atomic across processes.
// Transient backend errors are swallowed and reported via the bool return.
func (s *Store) Update(ctx context.Context, queryID string, mutate func(*model.Ticket)) bool {
	t, err := s.Get(ctx, queryID)
	if err != nil || t == nil {
		return false
	}
	mutate(t)
	return s.Put(ctx, queryID, t) == nil
}
