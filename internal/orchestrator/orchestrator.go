// Package orchestrator is the workflow façade over intake, re-triggers, the
// periodic staleness sweep and completion notifications.
package orchestrator

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/store"
)

// Enqueuer is the job-queue side of the processor.
type Enqueuer interface {
	Enqueue(ctx context.Context, customerID string) (string, error)
}

// Config controls the staleness sweep.
type Config struct {
	StalenessWindow time.Duration
	SweepInterval   time.Duration
}

func (c Config) withDefaults() Config {
	if c.StalenessWindow <= 0 {
		c.StalenessWindow = 24 * time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 30 * time.Minute
	}
	return c
}

// IntakeResponse is returned to the intake caller.
type IntakeResponse struct {
	CustomerID string `json:"customer_id"`
	Slug       string `json:"slug"`
	Status     string `json:"status"`
	JobID      string `json:"job_id,omitempty"`
	ReportURL  string `json:"report_url,omitempty"`
}

// Orchestrator reacts to intake requests, manual re-triggers, the periodic
// staleness sweep and change notifications.
type Orchestrator struct {
	store     store.Store
	enqueuer  Enqueuer
	bus       *Bus
	notifier  Notifier
	cfg       Config
	reportURL func(*model.Customer) string

	now func() time.Time
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithNotifier replaces the default log notifier.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// WithReportLocator maps a completed customer to its report URL.
func WithReportLocator(fn func(*model.Customer) string) Option {
	return func(o *Orchestrator) {
		o.reportURL = fn
	}
}

// New creates an Orchestrator and wires its event subscriptions onto bus.
func New(st store.Store, enq Enqueuer, bus *Bus, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    st,
		enqueuer: enq,
		bus:      bus,
		notifier: LogNotifier{},
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	// Intake publishes CustomerCreated; the processor publishes completion.
	// Both land here.
	bus.SubscribeType(model.EventCustomerCreated, o.onCustomerCreated)
	bus.SubscribeType(model.EventAuditCompleted, o.onAuditCompleted)
	return o
}

// Intake validates the request, creates (or finds) the customer and enqueues
// an audit. Validation failures return a *model.ValidationError and create
// nothing.
func (o *Orchestrator) Intake(ctx context.Context, req model.IntakeRequest) (*IntakeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	customer, created, err := o.store.CreateOrGetCustomer(ctx, req.Customer())
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: intake")
	}
	if created {
		o.bus.Publish(model.Event{
			Type:       model.EventCustomerCreated,
			CustomerID: customer.ID,
			Status:     customer.Status,
			OccurredAt: o.now().UTC(),
		})
	} else {
		zap.L().Info("intake matched existing customer",
			zap.String("customer_id", customer.ID),
			zap.String("company", customer.CompanyName),
		)
	}

	jobID, err := o.enqueuer.Enqueue(ctx, customer.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "orchestrator: enqueue %s", customer.ID)
	}

	resp := &IntakeResponse{
		CustomerID: customer.ID,
		Slug:       customer.Slug,
		Status:     string(customer.Status),
		JobID:      jobID,
	}
	if o.reportURL != nil {
		resp.ReportURL = o.reportURL(customer)
	}
	return resp, nil
}

// Retrigger re-queues an audit for an existing customer, addressed by id or
// slug. Idempotent while an audit is active.
func (o *Orchestrator) Retrigger(ctx context.Context, idOrSlug string) (string, error) {
	customer, err := o.lookup(ctx, idOrSlug)
	if err != nil {
		return "", err
	}
	jobID, err := o.enqueuer.Enqueue(ctx, customer.ID)
	if err != nil {
		return "", eris.Wrapf(err, "orchestrator: retrigger %s", customer.ID)
	}
	zap.L().Info("audit retriggered",
		zap.String("customer_id", customer.ID),
		zap.String("job_id", jobID),
	)
	return jobID, nil
}

// Refresh re-reads a customer from the store. Change notifications from other
// processes go through here so cached state is never trusted.
func (o *Orchestrator) Refresh(ctx context.Context, idOrSlug string) (*model.Customer, error) {
	return o.lookup(ctx, idOrSlug)
}

func (o *Orchestrator) lookup(ctx context.Context, idOrSlug string) (*model.Customer, error) {
	customer, err := o.store.GetCustomer(ctx, idOrSlug)
	if err == nil {
		return customer, nil
	}
	if !eris.Is(err, store.ErrNotFound) {
		return nil, eris.Wrapf(err, "orchestrator: lookup %s", idOrSlug)
	}
	customer, err = o.store.GetCustomerBySlug(ctx, idOrSlug)
	if err != nil {
		return nil, eris.Wrapf(err, "orchestrator: lookup %s", idOrSlug)
	}
	return customer, nil
}

// SweepOnce re-queues customers stuck in processing or failed longer than the
// staleness window. It is the safety net for missed events, not the primary
// trigger. Returns the number of re-queued customers.
func (o *Orchestrator) SweepOnce(ctx context.Context) (int, error) {
	cutoff := o.now().UTC().Add(-o.cfg.StalenessWindow)
	requeued := 0

	for _, status := range []model.CustomerStatus{model.CustomerStatusProcessing, model.CustomerStatusFailed} {
		customers, err := o.store.ListCustomers(ctx, store.CustomerFilter{Status: status})
		if err != nil {
			return requeued, eris.Wrap(err, "orchestrator: sweep list")
		}
		for _, customer := range customers {
			if customer.UpdatedAt.After(cutoff) {
				continue
			}
			if _, err := o.enqueuer.Enqueue(ctx, customer.ID); err != nil {
				zap.L().Warn("sweep requeue failed",
					zap.String("customer_id", customer.ID),
					zap.Error(err),
				)
				continue
			}
			requeued++
			zap.L().Info("stale customer requeued",
				zap.String("customer_id", customer.ID),
				zap.String("status", string(status)),
				zap.Time("last_updated", customer.UpdatedAt),
			)
		}
	}
	return requeued, nil
}

// RunSweeper runs SweepOnce on the configured interval until ctx is cancelled.
func (o *Orchestrator) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := o.SweepOnce(ctx); err != nil {
				zap.L().Error("staleness sweep failed", zap.Error(err))
			}
		}
	}
}

func (o *Orchestrator) onCustomerCreated(ev model.Event) {
	zap.L().Info("customer created",
		zap.String("customer_id", ev.CustomerID),
	)
}

func (o *Orchestrator) onAuditCompleted(ev model.Event) {
	ctx := context.Background()
	customer, err := o.store.GetCustomer(ctx, ev.CustomerID)
	if err != nil {
		zap.L().Error("completion notification: load customer",
			zap.String("customer_id", ev.CustomerID),
			zap.Error(err),
		)
		return
	}
	reportURL := ev.ReportURL
	if reportURL == "" && o.reportURL != nil {
		reportURL = o.reportURL(customer)
	}
	if err := o.notifier.NotifyCompleted(ctx, customer, reportURL); err != nil {
		zap.L().Error("completion notification failed",
			zap.String("customer_id", customer.ID),
			zap.Error(err),
		)
	}
}
