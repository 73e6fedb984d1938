// Package sessionstore implements component G: durable per-session memory
// with sliding/absolute TTLs and read-modify-write delta application.
package sessionstore

import (
	"context"
	"time"

	"reelix/internal/kvstore"
	"reelix/internal/model"
)

func key(sessionID string) string {
	return "reelix:agent:session:" + sessionID
}

// Store is the session memory store.
type Store struct {
	kv          *kvstore.Store
	slidingTTL  time.Duration
	absoluteTTL time.Duration
}

// New builds a session store over the shared kv backend.
func New(kv *kvstore.Store, slidingTTL, absoluteTTL time.Duration) *Store {
	return &Store{kv: kv, slidingTTL: slidingTTL, absoluteTTL: absoluteTTL}
}

// Get returns the decoded session state, or nil if absent, corrupt, or past
// the absolute TTL cap. Refreshes the sliding TTL on hit when touch is true.
func (s *Store) Get(ctx context.Context, sessionID string, touch bool) (*model.SessionState, error) {
	var state model.SessionState
	ok, err := s.kv.Get(ctx, key(sessionID), &state, touch, s.slidingTTL)
	if err != nil || !ok {
		return nil, err
	}
	if s.absoluteTTL > 0 && time.Since(state.CreatedAt) > s.absoluteTTL {
		_ = s.kv.Delete(ctx, key(sessionID))
		return nil, nil
	}
	return &state, nil
}

// Put overwrites the stored state, stamping CreatedAt if absent and always
// refreshing UpdatedAt.
func (s *Store) Put(ctx context.Context, sessionID string, state *model.SessionState) error {
	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now
	return s.kv.Put(ctx, key(sessionID), state, s.slidingTTL)
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.kv.Delete(ctx, key(sessionID))
}

// Update performs a read-modify-write: decode, run mutate, re-encode, write
// with TTL. Transient backend errors are swallowed; returns false when the
// update did not apply so callers never fail a user request over memory.
func (s *Store) Update(ctx context.Context, sessionID string, mutate func(*model.SessionState)) bool {
	state, err := s.Get(ctx, sessionID, false)
	if err != nil {
		return false
	}
	if state == nil {
		state = &model.SessionState{}
	}
	mutate(state)
	if err := s.Put(ctx, sessionID, state); err != nil {
		return false
	}
	return true
}

// Delta is the set of per-turn mutations the orchestrator applies to
// session memory.
type Delta struct {
	UserID       string
	TurnKind     string
	RecentFeedback  string
	LastUserMessage string
	Constraints  map[string]any
	Prefs        map[string]any
	LastSpec     *model.RecQuerySpec
	SlotMap      map[string]model.SlotEntry
	NewSeenIDs   []int64
}

// ApplyDelta implements apply_delta_to_payload: ownership reset, turn_kind
// scoped clearing, recursive constraints/prefs merge (year_range always
// replaced as a unit), overwrite of scalar/last_spec/slot_map fields, and
// append-dedupe-cap for seen_media_ids.
func ApplyDelta(state *model.SessionState, d Delta) {
	if state.UserID != "" && state.UserID != d.UserID {
		*state = model.SessionState{}
	}
	state.UserID = d.UserID

	if d.TurnKind == string(model.TurnKindNew) {
		state.LastSpec = nil
		state.SlotMap = nil
		state.SeenMediaIDs = nil
	}

	state.Summary.TurnKind = d.TurnKind
	state.Summary.RecentFeedback = d.RecentFeedback
	state.Summary.LastUserMessage = d.LastUserMessage

	state.Summary.Constraints = mergeMaps(state.Summary.Constraints, d.Constraints)
	state.Summary.Prefs = mergeMaps(state.Summary.Prefs, d.Prefs)

	if d.LastSpec != nil {
		state.LastSpec = d.LastSpec
	}
	if d.SlotMap != nil {
		state.SlotMap = d.SlotMap
	}

	if len(d.NewSeenIDs) > 0 {
		state.SeenMediaIDs = appendDedupeCap(state.SeenMediaIDs, d.NewSeenIDs, model.SeenMediaIDsCap)
	}
}

// mergeMaps recursively merges src into dst (dicts merge, lists union
// stable, scalars overwrite), except the "year_range" key which is always
// replaced as a unit rather than merged.
func mergeMaps(dst, src map[string]any) map[string]any {
	if src == nil {
		return dst
	}
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		if k == "year_range" {
			dst[k] = v
			continue
		}
		existing, ok := dst[k]
		if !ok {
			dst[k] = v
			continue
		}
		switch sv := v.(type) {
		case map[string]any:
			if ev, ok := existing.(map[string]any); ok {
				dst[k] = mergeMaps(ev, sv)
			} else {
				dst[k] = sv
			}
		case []any:
			if ev, ok := existing.([]any); ok {
				dst[k] = unionStable(ev, sv)
			} else {
				dst[k] = sv
			}
		default:
			dst[k] = v
		}
	}
	return dst
}

func unionStable(a, b []any) []any {
	seen := make(map[any]struct{}, len(a)+len(b))
	out := make([]any, 0, len(a)+len(b))
	for _, v := range a {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func appendDedupeCap(existing, fresh []int64, max int) []int64 {
	seen := make(map[int64]struct{}, len(existing)+len(fresh))
	out := make([]int64, 0, len(existing)+len(fresh))
	for _, id := range existing {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range fresh {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}
