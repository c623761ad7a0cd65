package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/analysis"
	"github.com/sells-group/leadintel/internal/contact"
	"github.com/sells-group/leadintel/internal/generate"
	"github.com/sells-group/leadintel/internal/monitoring"
	"github.com/sells-group/leadintel/internal/notify"
	"github.com/sells-group/leadintel/internal/outreach"
	"github.com/sells-group/leadintel/internal/pipeline"
	"github.com/sells-group/leadintel/internal/scrape"
	"github.com/sells-group/leadintel/internal/store"
)

// pipelineEnv holds the process-owned clients and the pipeline used by the
// analyze, bulk and serve commands.
type pipelineEnv struct {
	Store      store.Store
	Pipeline   *pipeline.Pipeline
	Dispatcher *notify.Dispatcher
	Checker    *monitoring.Checker
	generator  *generate.Guarded
}

// Close waits for in-flight notifications, then releases the generator and
// the store.
func (pe *pipelineEnv) Close() {
	if pe.Dispatcher != nil {
		pe.Dispatcher.Wait()
	}
	if pe.generator != nil {
		if err := pe.generator.Close(); err != nil {
			zap.L().Warn("close generator", zap.Error(err))
		}
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initPipeline validates config for mode, then builds the store, scraper,
// generator, hooks and pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	scraper, err := scrape.New(cfg)
	if err != nil {
		return nil, err
	}

	hooks, err := notify.HooksFromConfig(cfg.Notify)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	gen, err := generate.New(ctx, cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	// bulk reads hook errors only after the batch, so the buffer must hold
	// one failure per lead per hook.
	dispatcher := notify.NewDispatcher(
		time.Duration(cfg.Notify.TimeoutSecs)*time.Second,
		cfg.Batch.MaxURLs*len(hooks),
		hooks...,
	)
	collector := monitoring.NewCollector()
	zap.L().Info("pipeline initialized",
		zap.String("scraper", scraper.Name()),
		zap.String("generator", gen.Name()),
		zap.String("store", cfg.Store.Driver),
		zap.Strings("hooks", dispatcher.Hooks()),
	)

	p := pipeline.New(pipeline.Deps{
		Acquirer: scraper,
		Extractor: contact.New(contact.Options{
			MinPhoneDigits: cfg.Extract.MinPhoneDigits,
			DefaultRegion:  cfg.Extract.DefaultRegion,
		}),
		Analyzer: analysis.New(gen, cfg.Analysis.ContentBudget),
		Drafter:  outreach.New(gen, cfg.Outreach.Sender),
		Leads:    st,
		Notifier: dispatcher,
		Observer: collector,
	}, pipeline.Options{
		MaxConcurrent: cfg.Batch.MaxConcurrent,
		MaxURLs:       cfg.Batch.MaxURLs,
	})

	return &pipelineEnv{
		Store:      st,
		Pipeline:   p,
		Dispatcher: dispatcher,
		Checker:    monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitor), cfg.Monitor),
		generator:  gen,
	}, nil
}
