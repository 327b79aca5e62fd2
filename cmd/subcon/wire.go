package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"subcon/internal/annotation"
	"subcon/internal/config"
	"subcon/internal/cortex"
	"subcon/internal/embedding"
	"subcon/internal/perception"
	"subcon/internal/research"
	"subcon/internal/retrieval"
	"subcon/internal/store"
	"subcon/internal/types"
)

// runtime is the fully wired agent stack behind the chat commands.
type runtime struct {
	model *cortex.Model
	store store.RecordStore

	stopWatch context.CancelFunc
}

// buildCapabilities wires providers, augmentation and annotation from cfg.
// The returned cancel stops the corpus watcher, if one was started.
func buildCapabilities(ctx context.Context, cfg *config.Config) (types.Capabilities, context.CancelFunc, error) {
	noop := func() {}

	reg, err := perception.BuildRegistry(ctx, cfg)
	if err != nil {
		return types.Capabilities{}, noop, err
	}
	caps := types.Capabilities{
		Generate: reg.Local(),
		External: reg.External(),
	}

	if cfg.Research.Enabled {
		summarizer := caps.Generator(true)
		caps.Search = research.NewResearcher(cfg.Research, cfg.GetResearchTimeout(), cfg.GetResearchCacheTTL(),
			research.WithSummarizer(summarizer, cfg.Research.Refine))
	}

	stop := noop
	if cfg.Retrieval.Enabled {
		var engine embedding.Engine
		if cfg.Retrieval.Embedding.Provider != "" {
			engine, err = embedding.NewEngine(ctx, cfg.Retrieval.Embedding)
			if err != nil {
				return types.Capabilities{}, noop, fmt.Errorf("embedding engine: %w", err)
			}
		}
		ix := retrieval.NewIndex(retrieval.OptionsFrom(cfg.Retrieval, engine))
		if err := ix.Load(ctx); err != nil {
			return types.Capabilities{}, noop, fmt.Errorf("load corpus: %w", err)
		}
		caps.Retrieve = ix

		if cfg.Retrieval.Watch {
			watchCtx, cancel := context.WithCancel(ctx)
			stop = cancel
			go func() {
				if err := ix.Watch(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("corpus watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	annotation.Apply(&caps, cfg.Annotation, caps.Generate)
	return caps, stop, nil
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	caps, stop, err := buildCapabilities(ctx, cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		stop()
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}
	return &runtime{
		model:     cortex.New(ctx, cortex.ConfigFrom(cfg), caps, st),
		store:     st,
		stopWatch: stop,
	}, nil
}

// Close stops the model, which persists what is still in memory, then
// releases the store.
func (r *runtime) Close() error {
	r.stopWatch()
	err := r.model.Close()
	if cerr := r.store.Close(); err == nil {
		err = cerr
	}
	return err
}
