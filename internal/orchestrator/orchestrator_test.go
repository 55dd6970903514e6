package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/processor"
	"github.com/sells-group/audit-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

// liveCollector satisfies processor.Collector with live-marked fixtures.
type liveCollector struct{}

func (liveCollector) CollectCrawl(ctx context.Context, website string) model.CrawlData {
	return model.CrawlData{Source: model.SourceLive, Pages: []model.CrawledPage{{URL: website, StatusCode: 200}}}
}
func (liveCollector) CollectPerformance(ctx context.Context, domain string) model.PerformanceData {
	return model.PerformanceData{Source: model.SourceLive, Desktop: model.DeviceScores{Performance: 80}, Mobile: model.DeviceScores{Performance: 70}}
}
func (liveCollector) CollectTechnicalSEO(ctx context.Context, domain string) model.TechnicalSEOData {
	return model.TechnicalSEOData{Source: model.SourceLive, HTTPSEnabled: true}
}
func (liveCollector) CollectBacklinks(ctx context.Context, domain string) model.BacklinkData {
	return model.BacklinkData{Source: model.SourceLive, TotalBacklinks: 120}
}
func (liveCollector) CollectKeywords(ctx context.Context, domain string, targets []string) model.KeywordData {
	return model.KeywordData{Source: model.SourceLive, TrackedKeywords: []model.TrackedKeyword{}}
}
func (liveCollector) CollectCompetitors(ctx context.Context, domain string, competitorDomains []string) model.CompetitorData {
	data := model.CompetitorData{Source: model.SourceLive}
	for _, d := range competitorDomains {
		data.Competitors = append(data.Competitors, model.CompetitorMetrics{Domain: d})
	}
	return data
}
func (liveCollector) CollectSocial(ctx context.Context, companyName, website string) model.SocialData {
	return model.SocialData{Source: model.SourceLive}
}

type fakeEnqueuer struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, customerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.ids = append(f.ids, customerID)
	return "job-" + customerID, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	customers []string
	urls      []string
}

func (f *fakeNotifier) NotifyCompleted(ctx context.Context, customer *model.Customer, reportURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers = append(f.customers, customer.ID)
	f.urls = append(f.urls, reportURL)
	return nil
}

func TestIntakeValidationCreatesNothing(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	o := New(st, &fakeEnqueuer{}, NewBus(), Config{})

	_, err := o.Intake(ctx, model.IntakeRequest{
		CompanyName: "",
		Email:       "a@b.com",
		Website:     "https://x.com",
	})
	require.Error(t, err)

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "company_name", verr.Field)

	customers, err := st.ListCustomers(ctx, store.CustomerFilter{})
	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestIntakeEndToEnd(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	bus := NewBus()

	proc := processor.New(st, liveCollector{}, nil, processor.Config{},
		processor.WithPublisher(bus.Publish))
	notifier := &fakeNotifier{}
	o := New(st, proc, bus, Config{}, WithNotifier(notifier))

	resp, err := o.Intake(ctx, model.IntakeRequest{
		CompanyName: "Acme Tools",
		Email:       "ops@acme.test",
		Website:     "https://acme.test",
		Competitors: []string{"https://riv.test"},
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.CustomerStatusQueued), resp.Status)
	require.NotEmpty(t, resp.JobID)

	proc.Drain(ctx)

	customer, err := st.GetCustomer(ctx, resp.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, model.CustomerStatusCompleted, customer.Status)
	require.NotEmpty(t, customer.ResultID)

	result, err := st.GetResult(ctx, customer.ResultID)
	require.NoError(t, err)
	require.Len(t, result.Competitors.Competitors, 1)
	assert.Equal(t, "riv.test", result.Competitors.Competitors[0].Domain)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.customers, 1)
	assert.Equal(t, resp.CustomerID, notifier.customers[0])
}

func TestIntakeIsIdempotentOnCompanyName(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	o := New(st, &fakeEnqueuer{}, NewBus(), Config{})

	first, err := o.Intake(ctx, model.IntakeRequest{
		CompanyName: "Acme Tools",
		Email:       "ops@acme.test",
		Website:     "https://acme.test",
	})
	require.NoError(t, err)

	// Same company name, different email: no second record.
	second, err := o.Intake(ctx, model.IntakeRequest{
		CompanyName: "acme tools",
		Email:       "other@acme.test",
		Website:     "https://acme.test",
	})
	require.NoError(t, err)
	assert.Equal(t, first.CustomerID, second.CustomerID)

	customers, err := st.ListCustomers(ctx, store.CustomerFilter{})
	require.NoError(t, err)
	assert.Len(t, customers, 1)
}

func TestRetriggerBySlug(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	enq := &fakeEnqueuer{}
	o := New(st, enq, NewBus(), Config{})

	resp, err := o.Intake(ctx, model.IntakeRequest{
		CompanyName: "Acme Tools",
		Email:       "ops@acme.test",
		Website:     "https://acme.test",
	})
	require.NoError(t, err)

	jobID, err := o.Retrigger(ctx, resp.Slug)
	require.NoError(t, err)
	assert.Equal(t, "job-"+resp.CustomerID, jobID)

	_, err = o.Retrigger(ctx, "no-such-customer")
	require.Error(t, err)
}

func TestSweepRequeuesStaleCustomers(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	enq := &fakeEnqueuer{}
	o := New(st, enq, NewBus(), Config{StalenessWindow: 24 * time.Hour})

	resp, err := o.Intake(ctx, model.IntakeRequest{
		CompanyName: "Acme Tools",
		Email:       "ops@acme.test",
		Website:     "https://acme.test",
	})
	require.NoError(t, err)
	require.NoError(t, st.UpdateCustomerStatus(ctx, resp.CustomerID, model.CustomerStatusFailed, 40, "stuck"))

	// Not yet stale.
	requeued, err := o.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, requeued)

	// Advance the clock past the window.
	o.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	requeued, err = o.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, requeued)

	enq.mu.Lock()
	defer enq.mu.Unlock()
	require.NotEmpty(t, enq.ids)
	assert.Equal(t, resp.CustomerID, enq.ids[len(enq.ids)-1])
}

func TestSweepRecoversCustomerStuckProcessing(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	bus := NewBus()

	// A processing customer whose job row survived a restart: the row is in
	// the store but no worker in this process has ever seen it.
	customer, created, err := st.CreateOrGetCustomer(ctx, model.IntakeRequest{
		CompanyName: "Acme Tools",
		Email:       "ops@acme.test",
		Website:     "https://acme.test",
	}.Customer())
	require.NoError(t, err)
	require.True(t, created)
	_, err = st.CreateJob(ctx, customer.ID)
	require.NoError(t, err)
	require.NoError(t, st.UpdateCustomerStatus(ctx, customer.ID, model.CustomerStatusProcessing, 35, "Analyzing performance"))

	proc := processor.New(st, liveCollector{}, nil, processor.Config{},
		processor.WithPublisher(bus.Publish))
	o := New(st, proc, bus, Config{StalenessWindow: 24 * time.Hour})

	o.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	requeued, err := o.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, requeued)

	proc.Drain(ctx)

	fresh, err := st.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CustomerStatusCompleted, fresh.Status)
	assert.Equal(t, 100, fresh.Progress)
}

func TestRefreshReadsFromStore(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	o := New(st, &fakeEnqueuer{}, NewBus(), Config{})

	resp, err := o.Intake(ctx, model.IntakeRequest{
		CompanyName: "Acme Tools",
		Email:       "ops@acme.test",
		Website:     "https://acme.test",
	})
	require.NoError(t, err)
	require.NoError(t, st.UpdateCustomerStatus(ctx, resp.CustomerID, model.CustomerStatusProcessing, 35, "Analyzing performance"))

	fresh, err := o.Refresh(ctx, resp.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, model.CustomerStatusProcessing, fresh.Status)
	assert.Equal(t, 35, fresh.Progress)
}
