package sessionstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reelix/internal/model"
)

func TestApplyDeltaMergesConstraintsAndPrefsRecursively(t *testing.T) {
	t.Parallel()

	state := &model.SessionState{
		UserID: "u1",
		Summary: model.SessionSummary{
			Constraints: map[string]any{
				"mood":       "cozy",
				"year_range": []any{2000.0, 2010.0},
				"genres":     []any{"drama"},
			},
		},
	}

	ApplyDelta(state, Delta{
		UserID:   "u1",
		TurnKind: string(model.TurnKindRefine),
		Constraints: map[string]any{
			"mood":       "dark",
			"year_range": []any{2015.0, 2020.0},
			"genres":     []any{"thriller"},
		},
	})

	require.Equal(t, "dark", state.Summary.Constraints["mood"])
	require.Equal(t, []any{2015.0, 2020.0}, state.Summary.Constraints["year_range"])
	require.Equal(t, []any{"drama", "thriller"}, state.Summary.Constraints["genres"])
}

func TestApplyDeltaResetsStateOnUserIDChange(t *testing.T) {
	t.Parallel()

	state := &model.SessionState{
		UserID:       "u1",
		SeenMediaIDs: []int64{1, 2, 3},
		LastSpec:     &model.RecQuerySpec{QueryText: "old"},
	}

	ApplyDelta(state, Delta{UserID: "u2", TurnKind: string(model.TurnKindRefine)})

	require.Equal(t, "u2", state.UserID)
	require.Nil(t, state.SeenMediaIDs)
	require.Nil(t, state.LastSpec)
}

func TestApplyDeltaNewTurnClearsSpecSlotsAndSeen(t *testing.T) {
	t.Parallel()

	state := &model.SessionState{
		UserID:       "u1",
		LastSpec:     &model.RecQuerySpec{QueryText: "old"},
		SlotMap:      map[string]model.SlotEntry{"1": {MediaID: 9}},
		SeenMediaIDs: []int64{9},
	}

	ApplyDelta(state, Delta{UserID: "u1", TurnKind: string(model.TurnKindNew)})

	require.Nil(t, state.LastSpec)
	require.Nil(t, state.SlotMap)
	require.Nil(t, state.SeenMediaIDs)
}

func TestApplyDeltaOverwritesLastSpecAndSlotMapOnlyWhenProvided(t *testing.T) {
	t.Parallel()

	existingSpec := &model.RecQuerySpec{QueryText: "existing"}
	state := &model.SessionState{UserID: "u1", LastSpec: existingSpec}

	ApplyDelta(state, Delta{UserID: "u1", TurnKind: string(model.TurnKindRefine)})
	require.Same(t, existingSpec, state.LastSpec)

	newSpec := &model.RecQuerySpec{QueryText: "new"}
	ApplyDelta(state, Delta{UserID: "u1", TurnKind: string(model.TurnKindRefine), LastSpec: newSpec})
	require.Same(t, newSpec, state.LastSpec)
}

func TestApplyDeltaAppendsDedupesAndCapsSeenIDs(t *testing.T) {
	t.Parallel()

	state := &model.SessionState{UserID: "u1", SeenMediaIDs: []int64{1, 2, 3}}

	ApplyDelta(state, Delta{
		UserID:     "u1",
		TurnKind:   string(model.TurnKindRefine),
		NewSeenIDs: []int64{3, 4, 5},
	})

	require.Equal(t, []int64{1, 2, 3, 4, 5}, state.SeenMediaIDs)
}

func TestApplyDeltaCapsSeenIDsToMostRecent(t *testing.T) {
	t.Parallel()

	existing := make([]int64, model.SeenMediaIDsCap)
	for i := range existing {
		existing[i] = int64(i)
	}
	state := &model.SessionState{UserID: "u1", SeenMediaIDs: existing}

	ApplyDelta(state, Delta{UserID: "u1", TurnKind: string(model.TurnKindRefine), NewSeenIDs: []int64{9999}})

	require.Len(t, state.SeenMediaIDs, model.SeenMediaIDsCap)
	require.Equal(t, int64(9999), state.SeenMediaIDs[len(state.SeenMediaIDs)-1])
	require.Equal(t, int64(1), state.SeenMediaIDs[0])
}
