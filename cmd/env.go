package main

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/collector"
	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/orchestrator"
	"github.com/sells-group/audit-cli/internal/processor"
	"github.com/sells-group/audit-cli/internal/report"
	"github.com/sells-group/audit-cli/internal/store"
	"github.com/sells-group/audit-cli/pkg/dataforseo"
	"github.com/sells-group/audit-cli/pkg/firecrawl"
)

// env bundles the wired pipeline components for a command invocation.
type env struct {
	store     store.Store
	bus       *orchestrator.Bus
	processor *processor.Processor
	orch      *orchestrator.Orchestrator
	assembler *report.Assembler
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	var err error
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func initCollector() *collector.Collector {
	var dfs dataforseo.Client
	if cfg.DataForSEO.Login != "" {
		dfs = dataforseo.NewClient(cfg.DataForSEO.Login, cfg.DataForSEO.Password,
			dataforseo.WithBaseURL(cfg.DataForSEO.BaseURL))
	} else {
		zap.L().Warn("dataforseo credentials missing, sections will be synthetic")
	}

	var fc firecrawl.Client
	if cfg.Firecrawl.Key != "" {
		fc = firecrawl.NewClient(cfg.Firecrawl.Key,
			firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	} else {
		zap.L().Warn("firecrawl key missing, crawl data will be synthetic")
	}

	return collector.New(dfs, fc, collector.Config{
		ProviderTimeout: cfg.Collector.ProviderTimeout(),
		RatePerSecond:   cfg.Collector.RatePerSecond,
		RateBurst:       cfg.Collector.RateBurst,
		MaxRetries:      cfg.Collector.MaxRetries,
		LocationCode:    cfg.DataForSEO.LocationCode,
		LanguageCode:    cfg.DataForSEO.LanguageCode,
		CrawlMaxPages:   cfg.Firecrawl.MaxPages,
		CrawlMaxDepth:   cfg.Firecrawl.MaxDepth,
	})
}

func initAssembler() (*report.Assembler, error) {
	artifacts, err := report.NewFSArtifactStore(cfg.Report.OutputDir)
	if err != nil {
		return nil, err
	}

	opts := []report.Option{report.WithTheme(cfg.Report.Theme)}
	if cfg.Report.RulesPath != "" {
		rules, err := report.LoadRules(cfg.Report.RulesPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, report.WithRules(rules))
	}
	return report.New(artifacts, opts...), nil
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	asm, err := initAssembler()
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	bus := orchestrator.NewBus()
	proc := processor.New(st, initCollector(), asm,
		processor.Config{
			Workers:   cfg.Processor.Workers,
			QueueSize: cfg.Processor.QueueSize,
		},
		processor.WithPublisher(bus.Publish),
	)
	orch := orchestrator.New(st, proc, bus,
		orchestrator.Config{
			StalenessWindow: cfg.Orchestrator.StalenessWindow(),
			SweepInterval:   cfg.Orchestrator.SweepInterval(),
		},
		orchestrator.WithReportLocator(reportLocator),
	)

	return &env{store: st, bus: bus, processor: proc, orch: orch, assembler: asm}, nil
}

// reportLocator maps a completed customer to the filesystem path of its
// latest HTML report.
func reportLocator(c *model.Customer) string {
	if c.ResultID == "" {
		return ""
	}
	return filepath.Join(cfg.Report.OutputDir, c.Slug, "report.html")
}
