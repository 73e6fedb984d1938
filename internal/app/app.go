// Package app wires every process-wide singleton the discovery core needs
// — vector store, session/ticket stores, per-role LLM providers, query
// encoder, background-task pool, event-log relay — and owns their ordered
// shutdown.
package app

import (
	"context"
	"fmt"
	"time"

	"reelix/internal/bm25"
	"reelix/internal/config"
	"reelix/internal/curator"
	"reelix/internal/encoder"
	"reelix/internal/eventlog"
	"reelix/internal/httpapi"
	"reelix/internal/kvstore"
	"reelix/internal/llm/providers"
	"reelix/internal/model"
	"reelix/internal/orchestrator"
	"reelix/internal/pipeline"
	"reelix/internal/reflection"
	"reelix/internal/runner"
	"reelix/internal/sessionstore"
	"reelix/internal/taskpool"
	"reelix/internal/ticketstore"
	"reelix/internal/vectorstore"
	"reelix/internal/whystream"
)

const (
	taskpoolWorkers    = 8
	taskpoolQueueDepth = 256
)

// App holds every long-lived singleton plus the HTTP surface built from
// them. Shutdown drains the task pool and then closes the event-log relay;
// the Redis and Qdrant clients are not closed.
type App struct {
	Server *httpapi.Server

	kv      *kvstore.Store
	vectors *vectorstore.Store
	tasks   *taskpool.Pool
	events  *eventlog.Relay
}

// nullTasteProvider is the out-of-scope external taste-profile collaborator,
// stood in here so the discovery core can run end to end before that
// service exists. It always returns an empty context: cold-start users.
type nullTasteProvider struct{}

func (nullTasteProvider) GetUserTasteContext(context.Context, string) (model.UserTasteContext, error) {
	return model.UserTasteContext{ProviderFilterMode: "any"}, nil
}

// Startup constructs every singleton and the HTTP server built on top of
// them. On any failure, Shutdown is called on the partly built App before
// the error is returned; a Redis or Qdrant client already connected is not
// closed.
func Startup(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{}

	kv, err := kvstore.New(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.kv = kv

	store, err := vectorstore.New(ctx, cfg.Qdrant)
	if err != nil {
		a.Shutdown(ctx)
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	a.vectors = store

	stats, err := bm25.LoadStats(cfg.BM25StatsPath)
	if err != nil {
		a.Shutdown(ctx)
		return nil, fmt.Errorf("load bm25 stats: %w", err)
	}

	orchProvider, err := providers.Build(ctx, cfg.LLM.Orchestrator)
	if err != nil {
		a.Shutdown(ctx)
		return nil, fmt.Errorf("build orchestrator llm provider: %w", err)
	}
	curatorProvider, err := providers.Build(ctx, cfg.LLM.Curator)
	if err != nil {
		a.Shutdown(ctx)
		return nil, fmt.Errorf("build curator llm provider: %w", err)
	}
	whyProvider, err := providers.Build(ctx, cfg.LLM.WhyStreamer)
	if err != nil {
		a.Shutdown(ctx)
		return nil, fmt.Errorf("build why-streamer llm provider: %w", err)
	}
	reflectionProvider, err := providers.Build(ctx, cfg.LLM.Reflection)
	if err != nil {
		a.Shutdown(ctx)
		return nil, fmt.Errorf("build reflection llm provider: %w", err)
	}

	denseEncoder, ok := orchProvider.(encoder.DenseEncoder)
	if !ok {
		// Embedding calls ride the orchestrator-role provider's credentials;
		// only the openai adapter implements DenseEncoder today.
		var embedErr error
		denseEncoder, embedErr = asDenseEncoder(ctx, cfg)
		if embedErr != nil {
			a.Shutdown(ctx)
			return nil, fmt.Errorf("build dense encoder: %w", embedErr)
		}
	}

	a.tasks = taskpool.New(taskpoolWorkers, taskpoolQueueDepth)
	a.events = eventlog.New(cfg.Kafka)

	sessions := sessionstore.New(kv, cfg.Redis.SessionSlidingTTL, cfg.Redis.SessionAbsoluteTTL)
	tickets := ticketstore.New(kv, cfg.Redis.TicketSlidingTTL, cfg.Redis.TicketAbsoluteTTL)

	svc := &httpapi.Service{
		Orchestrator: &orchestrator.Orchestrator{Provider: orchProvider, Model: cfg.LLM.Orchestrator.Model},
		Runner: &runner.Runner{
			Pipeline: &pipeline.Pipeline{
				Encoder: encoder.New(denseEncoder, stats),
				Store:   store,
				RRFK:    cfg.Pipeline.RRFK,
			},
			Curator:   &curator.Evaluator{Provider: curatorProvider, Model: cfg.LLM.Curator.Model},
			Weights:   cfg.Pipeline.Weights,
			MetaTopN:  cfg.Pipeline.MetaTopN,
			FinalTopK: cfg.Pipeline.FinalTopK,
			VecK:      cfg.Pipeline.MetaTopN,
		},
		Curator:        &curator.Evaluator{Provider: curatorProvider, Model: cfg.LLM.Curator.Model},
		Sessions:       sessions,
		Tickets:        tickets,
		WhyStreamer:    &whystream.Streamer{Provider: whyProvider, Model: cfg.LLM.WhyStreamer.Model, HeartbeatSec: 15 * time.Second},
		Reflection:     &reflection.Agent{Provider: reflectionProvider, Model: cfg.LLM.Reflection.Model, Timeout: cfg.ReflectionTimeout},
		Taste:          nullTasteProvider{},
		Tasks:          a.tasks,
		Events:         a.events,
		WhyModel:       cfg.LLM.WhyStreamer.Model,
		DefaultNumRecs: cfg.DefaultNumRecs,
		HeartbeatEvery: 5 * time.Second,
		Pipeline:       cfg.Pipeline,
	}

	a.Server = httpapi.NewServer(svc)
	return a, nil
}

// asDenseEncoder rebuilds a dedicated OpenAI client for embeddings when the
// configured orchestrator provider isn't OpenAI-backed. Dense query
// embedding is pinned to OpenAI's embedding model regardless of which chat
// provider drives the orchestrator/curator/why/reflection roles.
func asDenseEncoder(ctx context.Context, cfg config.Config) (encoder.DenseEncoder, error) {
	embedCfg := cfg.LLM.Orchestrator
	embedCfg.Provider = "openai"
	p, err := providers.Build(ctx, embedCfg)
	if err != nil {
		return nil, err
	}
	de, ok := p.(encoder.DenseEncoder)
	if !ok {
		return nil, fmt.Errorf("openai provider does not implement DenseEncoder")
	}
	return de, nil
}

// Shutdown drains the background-task pool, then closes the event-log relay.
// The Redis and Qdrant clients are not closed. It is safe to call
// with a partially-constructed App (fields left nil are skipped) and safe to
// call twice.
func (a *App) Shutdown(ctx context.Context) error {
	if a.tasks != nil {
		if err := a.tasks.DrainOnShutdown(ctx); err != nil {
			return fmt.Errorf("drain taskpool: %w", err)
		}
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			return fmt.Errorf("close eventlog: %w", err)
		}
	}
	return nil
}

// Tasks exposes the background-task pool so handlers can submit
// fire-and-forget work instead of bare goroutines.
func (a *App) Tasks() *taskpool.Pool { return a.tasks }

// Events exposes the event-log relay for fire-and-forget publishing.
func (a *App) Events() *eventlog.Relay { return a.events }
