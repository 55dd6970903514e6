// Package processor drives audit jobs through the fixed stage pipeline.
//
// One FIFO queue feeds N workers (default 1). Each worker claims whole jobs;
// a job's stages always run sequentially on one worker. At most one active
// job exists per customer; a duplicate enqueue returns the existing job id.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/store"
)

// Collector provides normalized audit sections. Implementations never fail:
// provider errors surface only as SourceSynthetic sections.
type Collector interface {
	CollectCrawl(ctx context.Context, website string) model.CrawlData
	CollectPerformance(ctx context.Context, domain string) model.PerformanceData
	CollectTechnicalSEO(ctx context.Context, domain string) model.TechnicalSEOData
	CollectBacklinks(ctx context.Context, domain string) model.BacklinkData
	CollectKeywords(ctx context.Context, domain string, targets []string) model.KeywordData
	CollectCompetitors(ctx context.Context, domain string, competitorDomains []string) model.CompetitorData
	CollectSocial(ctx context.Context, companyName, website string) model.SocialData
}

// Assembler renders the report artifacts for a completed audit and returns a
// locator for the stored report.
type Assembler interface {
	Assemble(ctx context.Context, customer *model.Customer, result *model.AuditResult) (string, error)
}

// Config sizes the queue and worker pool.
type Config struct {
	Workers   int
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	return c
}

// ErrQueueFull is returned when the job queue cannot accept more work.
var ErrQueueFull = eris.New("processor: job queue full")

// Processor owns the audit job queue and worker pool.
type Processor struct {
	store     store.Store
	collector Collector
	assembler Assembler
	cfg       Config
	publish   func(model.Event)

	queue chan string // job IDs, strictly FIFO

	mu        sync.Mutex
	cancelled map[string]bool
	pending   map[string]bool // job IDs queued or running in this process
}

// Option configures the Processor.
type Option func(*Processor)

// WithPublisher sets the event sink for status change notifications.
func WithPublisher(publish func(model.Event)) Option {
	return func(p *Processor) {
		p.publish = publish
	}
}

// New creates a Processor. The assembler may be nil, in which case the report
// stage persists the result without rendering an artifact.
func New(st store.Store, col Collector, asm Assembler, cfg Config, opts ...Option) *Processor {
	cfg = cfg.withDefaults()
	p := &Processor{
		store:     st,
		collector: col,
		assembler: asm,
		cfg:       cfg,
		queue:     make(chan string, cfg.QueueSize),
		cancelled: make(map[string]bool),
		pending:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue creates an audit job for the customer and queues it. Idempotent:
// if the customer already has an active job, its id is returned and no new
// job is created.
func (p *Processor) Enqueue(ctx context.Context, customerID string) (string, error) {
	customer, err := p.store.GetCustomer(ctx, customerID)
	if err != nil {
		return "", eris.Wrapf(err, "processor: enqueue %s", customerID)
	}

	if existing, err := p.store.GetActiveJob(ctx, customerID); err == nil {
		if p.isPending(existing.ID) {
			zap.L().Info("audit already active, enqueue is a no-op",
				zap.String("customer_id", customerID),
				zap.String("job_id", existing.ID),
			)
			return existing.ID, nil
		}
		// Active row with no in-memory entry: the job was lost before it ran
		// (process restart, crash between persist and dispatch). The row alone
		// would make every enqueue a no-op while no worker ever sees the job,
		// so push it back onto the queue.
		if err := p.dispatch(existing.ID); err != nil {
			return "", eris.Wrapf(err, "customer %s", customerID)
		}
		zap.L().Warn("re-queued orphaned audit job",
			zap.String("customer_id", customerID),
			zap.String("job_id", existing.ID),
		)
		return existing.ID, nil
	} else if !eris.Is(err, store.ErrNotFound) {
		return "", eris.Wrapf(err, "processor: check active job for %s", customerID)
	}

	job, err := p.store.CreateJob(ctx, customerID)
	if err != nil {
		// A concurrent enqueue may have won the unique active slot.
		if existing, getErr := p.store.GetActiveJob(ctx, customerID); getErr == nil {
			return existing.ID, nil
		}
		return "", eris.Wrapf(err, "processor: create job for %s", customerID)
	}

	if err := p.store.UpdateCustomerStatus(ctx, customerID, model.CustomerStatusQueued, 0, "Audit queued"); err != nil {
		return "", eris.Wrapf(err, "processor: mark customer queued %s", customerID)
	}
	p.emit(model.Event{
		Type:       model.EventCustomerStatusChanged,
		CustomerID: customerID,
		JobID:      job.ID,
		Status:     model.CustomerStatusQueued,
		Message:    "Audit queued",
	})

	if err := p.dispatch(job.ID); err != nil {
		// Undo the persisted state: an active row the channel rejected would
		// wedge the customer, invisible to both workers and the sweep.
		p.finishJob(ctx, job, model.JobStatusFailed)
		p.setCustomerStatus(ctx, customerID, job, model.CustomerStatusFailed, 0, "Audit queue full")
		return "", eris.Wrapf(err, "customer %s", customer.ID)
	}

	zap.L().Info("audit job enqueued",
		zap.String("customer_id", customerID),
		zap.String("job_id", job.ID),
	)
	return job.ID, nil
}

// dispatch registers the job as owned by this process and pushes it onto the
// queue. The pending entry lives until processJob finishes with the id.
func (p *Processor) dispatch(jobID string) error {
	p.mu.Lock()
	p.pending[jobID] = true
	p.mu.Unlock()

	select {
	case p.queue <- jobID:
		return nil
	default:
		p.mu.Lock()
		delete(p.pending, jobID)
		p.mu.Unlock()
		return ErrQueueFull
	}
}

func (p *Processor) isPending(jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending[jobID]
}

func (p *Processor) clearPending(jobID string) {
	p.mu.Lock()
	delete(p.pending, jobID)
	p.mu.Unlock()
}

// Cancel requests cancellation of a job. A queued job is dropped when
// dequeued; a processing job stops at the next stage boundary, leaving the
// customer failed with the sections completed so far.
func (p *Processor) Cancel(jobID string) {
	p.mu.Lock()
	p.cancelled[jobID] = true
	p.mu.Unlock()
}

func (p *Processor) isCancelled(jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled[jobID]
}

func (p *Processor) clearCancelled(jobID string) {
	p.mu.Lock()
	delete(p.cancelled, jobID)
	p.mu.Unlock()
}

// Run starts the worker pool and blocks until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		worker := i
		g.Go(func() error {
			p.runWorker(gctx, worker)
			return nil
		})
	}
	return g.Wait()
}

func (p *Processor) runWorker(ctx context.Context, worker int) {
	log := zap.L().With(zap.Int("worker", worker))
	log.Info("audit worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info("audit worker stopped")
			return
		case jobID := <-p.queue:
			p.processJob(ctx, jobID)
		}
	}
}

// Drain processes queued jobs until the queue is empty, then returns. Used
// by the one-shot audit command.
func (p *Processor) Drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-p.queue:
			p.processJob(ctx, jobID)
		default:
			return
		}
	}
}

func (p *Processor) emit(ev model.Event) {
	if p.publish == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC()
	p.publish(ev)
}
