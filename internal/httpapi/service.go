package httpapi

import (
	"context"
	"time"

	"reelix/internal/config"
	"reelix/internal/curator"
	"reelix/internal/eventlog"
	"reelix/internal/model"
	"reelix/internal/orchestrator"
	"reelix/internal/reflection"
	"reelix/internal/runner"
	"reelix/internal/sessionstore"
	"reelix/internal/taskpool"
	"reelix/internal/ticketstore"
	"reelix/internal/whystream"
)

// TasteProvider is the out-of-scope per-user taste-vector builder: a named
// external collaborator this core only consumes through this interface.
type TasteProvider interface {
	GetUserTasteContext(ctx context.Context, userID string) (model.UserTasteContext, error)
}

// Service wires components F-K into the HTTP surface.
type Service struct {
	Orchestrator   *orchestrator.Orchestrator
	Runner         *runner.Runner
	Curator        *curator.Evaluator
	Sessions       *sessionstore.Store
	Tickets        *ticketstore.Store
	WhyStreamer    *whystream.Streamer
	Reflection     *reflection.Agent
	Taste          TasteProvider
	Tasks          *taskpool.Pool
	Events         *eventlog.Relay
	WhyModel       string
	DefaultNumRecs int
	HeartbeatEvery time.Duration
	Pipeline       config.PipelineConfig
}

// submit dispatches fn through the supervised background-task pool when one
// is wired, falling back to a bare goroutine so the service stays usable in
// tests that don't construct a Pool.
func (s *Service) submit(fn func(context.Context)) {
	if s.Tasks != nil {
		s.Tasks.Submit(fn)
		return
	}
	go fn(context.Background())
}
