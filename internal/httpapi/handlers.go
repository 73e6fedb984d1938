package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"reelix/internal/curator"
	"reelix/internal/errs"
	"reelix/internal/eventlog"
	"reelix/internal/model"
	"reelix/internal/observability"
	"reelix/internal/orchestrator"
	"reelix/internal/sessionstore"
	"reelix/internal/sse"
	"reelix/internal/whystream"
)

const defaultHeartbeatEvery = 5 * time.Second

func callerUserID(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "error_id": uuid.NewString()})
}

// exploreRequest is the /discovery/explore request body.
type exploreRequest struct {
	MediaType    string         `json:"media_type"`
	QueryText    string         `json:"query_text"`
	SessionID    string         `json:"session_id"`
	QueryID      string         `json:"query_id"`
	DeviceInfo   map[string]any `json:"device_info,omitempty"`
	History      []string       `json:"history,omitempty"`
	QueryFilters map[string]any `json:"query_filters,omitempty"`
}

type recsItem struct {
	MediaID     int64   `json:"media_id"`
	Title       string  `json:"title"`
	ReleaseYear int     `json:"release_year"`
	Overview    string  `json:"overview"`
	Score       float64 `json:"score"`
}

func toRecsItems(candidates []model.Candidate, traces []model.ScoreTrace) []recsItem {
	scoreByID := make(map[int64]float64, len(traces))
	for _, t := range traces {
		scoreByID[t.MediaID] = t.FinalScore
	}
	out := make([]recsItem, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, recsItem{
			MediaID:     c.MediaID,
			Title:       c.Payload.Title,
			ReleaseYear: c.Payload.ReleaseYear,
			Overview:    c.Payload.Overview,
			Score:       scoreByID[c.MediaID],
		})
	}
	return out
}

func (s *Service) tasteContext(ctx context.Context, userID string) model.UserTasteContext {
	if s.Taste == nil {
		return model.UserTasteContext{}
	}
	taste, err := s.Taste.GetUserTasteContext(ctx, userID)
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("taste_context_unavailable")
		return model.UserTasteContext{}
	}
	return taste
}

// handleExplore implements POST /discovery/explore: started -> opening ->
// (heartbeats) -> recs -> (optional next_steps) -> done, or started -> chat
// -> done for chat turns.
func (s *Service) handleExplore(w http.ResponseWriter, r *http.Request) {
	userID := callerUserID(r)
	if userID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	var req exploreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx := r.Context()
	writer := sse.NewWriter(w)
	_ = writer.Send(sse.EventStarted, map[string]string{"query_id": req.QueryID})

	priorState, err := s.Sessions.Get(ctx, req.SessionID, true)
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("session_load_failed")
		priorState = nil
	}

	decision, err := s.Orchestrator.Decide(ctx, req.QueryText, priorState)
	if err != nil {
		s.emitError(ctx, writer, err)
		return
	}

	if decision.TurnMode == model.TurnModeChat {
		_ = writer.Send(sse.EventChat, map[string]string{"message": decision.ChatMessage})
		s.submit(func(bgCtx context.Context) {
			s.persistChatTurn(bgCtx, req.SessionID, userID, req.QueryText)
		})
		_ = writer.Send(sse.EventDone, map[string]bool{"ok": true})
		return
	}

	_ = writer.Send(sse.EventOpening, map[string]string{"text": decision.OpeningSummary})

	taste := s.tasteContext(ctx, userID)
	var seen []int64
	if priorState != nil {
		seen = priorState.SeenMediaIDs
	}

	type runResult struct {
		candidates []model.Candidate
		traces     []model.ScoreTrace
		err        error
	}
	resultCh := make(chan runResult, 1)
	go func() {
		out, err := s.Runner.Run(ctx, decision.Spec, taste, seen, decision.TurnKind, time.Now())
		if err != nil {
			resultCh <- runResult{err: err}
			return
		}

		tiers := make(map[int64]curator.Tier, len(out.Candidates))
		if s.Curator != nil && len(out.Candidates) > 0 {
			scores, err := s.Curator.Evaluate(ctx, decision.Spec, out.Candidates)
			if err != nil {
				resultCh <- runResult{err: err}
				return
			}
			for id, sc := range scores {
				tiers[id] = curator.Classify(sc)
			}
		}
		limit := decision.Spec.NumRecs
		if limit <= 0 {
			limit = s.DefaultNumRecs
		}
		if limit <= 0 {
			limit = 8
		}
		final := curator.Select(out.Candidates, tiers, limit)
		resultCh <- runResult{candidates: final, traces: out.Traces}
	}()

	heartbeat := s.HeartbeatEvery
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatEvery
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	var res runResult
waitLoop:
	for {
		select {
		case res = <-resultCh:
			break waitLoop
		case <-ticker.C:
			_ = writer.Heartbeat()
		case <-ctx.Done():
			return // client disconnected: skip memory write, no further events
		}
	}

	if res.err != nil {
		s.emitError(ctx, writer, res.err)
		return
	}

	env := whystream.BuildEnvelope(s.WhyModel, decision.Spec, res.candidates)
	ticket := &model.Ticket{UserID: userID, Prompts: env}
	if err := s.Tickets.Put(ctx, req.QueryID, ticket); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("ticket_store_failed")
	}

	_ = writer.Send(sse.EventRecs, map[string]any{
		"items":      toRecsItems(res.candidates, res.traces),
		"stream_url": "/discovery/explore/why?query_id=" + req.QueryID,
	})
	s.Events.Publish(ctx, eventlog.Event{
		Kind: "recs_emitted", Key: req.SessionID, SessionID: req.SessionID, UserID: userID,
		Fields: map[string]any{"query_id": req.QueryID, "count": len(res.candidates)},
	})

	newSeen := make([]int64, 0, len(res.candidates))
	for _, c := range res.candidates {
		newSeen = append(newSeen, c.MediaID)
	}
	s.submit(func(bgCtx context.Context) {
		s.persistRecsTurn(bgCtx, req.SessionID, userID, req.QueryText, decision, newSeen)
	})

	if s.Reflection != nil {
		prevStrategy := ""
		if priorState != nil {
			prevStrategy = priorState.Summary.LastReflectionStrategy
		}
		if suggestion, ok := s.Reflection.Reflect(ctx, decision.Spec, res.candidates, nil, prevStrategy); ok {
			_ = writer.Send(sse.EventNextSteps, suggestion)
			s.submit(func(bgCtx context.Context) {
				s.Sessions.Update(bgCtx, req.SessionID, func(st *model.SessionState) {
					st.Summary.LastAdminMessage = suggestion.Suggestion
					st.Summary.LastReflectionStrategy = string(suggestion.Strategy)
				})
			})
		}
	}

	_ = writer.Send(sse.EventDone, map[string]bool{"ok": true})
}

func (s *Service) persistChatTurn(ctx context.Context, sessionID, userID, userMessage string) {
	s.Sessions.Update(ctx, sessionID, func(st *model.SessionState) {
		st.UserID = userID
		st.Summary.TurnKind = string(model.TurnKindChat)
		st.Summary.LastUserMessage = userMessage
	})
}

func (s *Service) persistRecsTurn(ctx context.Context, sessionID, userID, userMessage string, decision orchestrator.Decision, newSeen []int64) {
	s.Sessions.Update(ctx, sessionID, func(st *model.SessionState) {
		spec := decision.Spec
		sessionstore.ApplyDelta(st, sessionstore.Delta{
			UserID:          userID,
			TurnKind:        string(decision.TurnKind),
			RecentFeedback:  decision.RecentFeedback,
			LastUserMessage: userMessage,
			LastSpec:        &spec,
			NewSeenIDs:      newSeen,
		})
	})
}

func (s *Service) emitError(ctx context.Context, writer *sse.Writer, err error) {
	errID := uuid.NewString()
	observability.LoggerWithTrace(ctx).Error().Err(err).Str("error_id", errID).Msg("explore_turn_failed")
	s.Events.Publish(ctx, eventlog.Event{
		Kind:   "turn_error",
		Key:    errID,
		Fields: map[string]any{"kind": string(errs.KindOf(err)), "error_id": errID},
	})
	_ = writer.Send(sse.EventError, map[string]string{"message": "the request could not be completed", "error_id": errID})
}

// exploreRerunRequest is the /discovery/explore/rerun request body. Patch is
// decoded separately so we can tell an omitted field from an explicit null.
type exploreRerunRequest struct {
	QueryID    string          `json:"query_id"`
	SessionID  string          `json:"session_id"`
	Patch      json.RawMessage `json:"patch"`
	DeviceInfo map[string]any  `json:"device_info,omitempty"`
}

// rerunPatch is the decoded shape of the patch's providers/year_range
// fields, independent of whether they were present in the request.
type rerunPatch struct {
	Providers *[]string `json:"providers"`
	YearRange *[2]int   `json:"year_range"`
}

// decodeRerunPatch parses raw into its typed fields plus the set of key
// names that were actually present in the JSON object, so the caller can
// distinguish "absent" (leave untouched) from "present and null" (clear)
// from "present with a value" (replace) — the same three-way distinction
// the patch semantics require.
func decodeRerunPatch(raw json.RawMessage) (rerunPatch, map[string]bool, error) {
	if len(raw) == 0 {
		return rerunPatch{}, nil, nil
	}
	var patch rerunPatch
	if err := json.Unmarshal(raw, &patch); err != nil {
		return rerunPatch{}, nil, err
	}
	var presence map[string]json.RawMessage
	if err := json.Unmarshal(raw, &presence); err != nil {
		return rerunPatch{}, nil, err
	}
	set := make(map[string]bool, len(presence))
	for k := range presence {
		set[k] = true
	}
	return patch, set, nil
}

// handleExploreRerun implements POST /discovery/explore/rerun: chip
// refinement without invoking the orchestrator LLM.
func (s *Service) handleExploreRerun(w http.ResponseWriter, r *http.Request) {
	userID := callerUserID(r)
	if userID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	var req exploreRerunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	patch, patchSet, err := decodeRerunPatch(req.Patch)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed patch")
		return
	}

	ctx := r.Context()
	state, err := s.Sessions.Get(ctx, req.SessionID, true)
	if err != nil || state == nil || state.LastSpec == nil {
		writeJSONError(w, http.StatusNotFound, "no prior query spec for this session")
		return
	}
	if state.UserID != userID {
		writeJSONError(w, http.StatusForbidden, "session does not belong to caller")
		return
	}

	spec := *state.LastSpec
	if patchSet["providers"] {
		spec.Providers = nil
		if patch.Providers != nil {
			spec.Providers = *patch.Providers
		}
	}
	if patchSet["year_range"] {
		spec.YearRange = nil
		if patch.YearRange != nil {
			spec.YearRange = &model.YearRange{Start: patch.YearRange[0], End: patch.YearRange[1]}
		}
	}

	taste := s.tasteContext(ctx, userID)
	out, err := s.Runner.Run(ctx, spec, taste, state.SeenMediaIDs, model.TurnKindRefine, time.Now())
	if err != nil {
		status := http.StatusInternalServerError
		if errs.KindOf(err) == errs.KindRetrievalUnavailable {
			status = http.StatusServiceUnavailable
		}
		writeJSONError(w, status, "rerun failed")
		return
	}

	limit := spec.NumRecs
	if limit <= 0 || limit > len(out.Candidates) {
		limit = len(out.Candidates)
	}
	items := out.Candidates[:limit]

	env := whystream.BuildEnvelope(s.WhyModel, spec, items)
	_ = s.Tickets.Put(ctx, req.QueryID, &model.Ticket{UserID: userID, Prompts: env})

	s.Sessions.Update(ctx, req.SessionID, func(st *model.SessionState) {
		st.LastSpec = &spec
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"items":      toRecsItems(items, out.Traces),
		"stream_url": "/discovery/explore/why?query_id=" + req.QueryID,
	})
}

// handleExploreWhy implements GET /discovery/explore/why: resumable WHY
// stream backed by the ticket store.
func (s *Service) handleExploreWhy(w http.ResponseWriter, r *http.Request) {
	userID := callerUserID(r)
	if userID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	queryID := r.URL.Query().Get("query_id")
	if queryID == "" {
		writeJSONError(w, http.StatusBadRequest, "query_id is required")
		return
	}
	batch := 0
	if b := r.URL.Query().Get("batch"); b != "" {
		if n, err := strconv.Atoi(b); err == nil {
			batch = n
		}
	}

	ctx := r.Context()
	ticket, err := s.Tickets.Get(ctx, queryID)
	if err != nil || ticket == nil {
		writeJSONError(w, http.StatusNotFound, "ticket not found or expired")
		return
	}
	if ticket.UserID != userID {
		writeJSONError(w, http.StatusForbidden, "ticket does not belong to caller")
		return
	}
	s.Tickets.Touch(ctx, queryID)

	if batch < 0 || batch >= len(ticket.Prompts.Calls) {
		batch = 0
	}
	if len(ticket.Prompts.Calls) == 0 {
		writeJSONError(w, http.StatusNotFound, "ticket has no prompt calls")
		return
	}

	env := model.PromptsEnvelope{Model: ticket.Prompts.Model, Calls: []model.PromptCall{ticket.Prompts.Calls[batch]}}

	writer := sse.NewWriter(w)
	_ = writer.Send(sse.EventStarted, map[string]string{"query_id": queryID})

	err = s.WhyStreamer.Stream(ctx, env,
		func(item whystream.WhyItem) {
			_ = writer.Send(sse.EventWhyDelta, map[string]any{
				"media_id":             item.MediaID,
				"why_you_might_enjoy_it": item.Why,
			})
		},
		func() { _ = writer.Heartbeat() },
	)
	if err != nil && ctx.Err() == nil {
		s.emitError(ctx, writer, err)
		return
	}
	_ = writer.Send(sse.EventDone, map[string]bool{"ok": true})
}

// handleHealthz is the supplemented liveness endpoint.
func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
