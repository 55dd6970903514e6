package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/audit-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func testCustomer(name, email string) model.Customer {
	return model.Customer{
		Slug:           model.Slugify(name),
		CompanyName:    name,
		Email:          email,
		Website:        "https://acme.test",
		Competitors:    []string{"https://riv.test"},
		TargetKeywords: []string{"power tools"},
		Status:         model.CustomerStatusQueued,
	}
}

func TestCreateAndGetCustomer(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, isNew, err := st.CreateOrGetCustomer(ctx, testCustomer("Acme Tools", "ops@acme.test"))
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "acme-tools", created.Slug)

	got, err := st.GetCustomer(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Tools", got.CompanyName)
	assert.Equal(t, []string{"https://riv.test"}, got.Competitors)
	assert.Equal(t, []string{"power tools"}, got.TargetKeywords)
	assert.Nil(t, got.AuditStartedAt)

	bySlug, err := st.GetCustomerBySlug(ctx, "acme-tools")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)
}

func TestCreateOrGetCustomerIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, _, err := st.CreateOrGetCustomer(ctx, testCustomer("Acme Tools", "ops@acme.test"))
	require.NoError(t, err)

	// Same company name, different case and email.
	again, isNew, err := st.CreateOrGetCustomer(ctx, testCustomer("ACME TOOLS", "other@acme.test"))
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, first.ID, again.ID)

	// Same email, different company name.
	byEmail, isNew, err := st.CreateOrGetCustomer(ctx, testCustomer("Totally Different", "OPS@acme.test"))
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, first.ID, byEmail.ID)

	all, err := st.ListCustomers(ctx, CustomerFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSlugCollisionGetsSuffix(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, _, err := st.CreateOrGetCustomer(ctx, testCustomer("Acme Tools", "ops@acme.test"))
	require.NoError(t, err)

	c := testCustomer("Acme, Tools", "sales@other.test") // distinct name, same slug
	second, isNew, err := st.CreateOrGetCustomer(ctx, c)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Contains(t, second.Slug, "acme-tools-")
}

func TestGetCustomerNotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetCustomer(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))

	err = st.UpdateCustomerStatus(context.Background(), "missing", model.CustomerStatusFailed, 0, "x")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestCustomerLifecycleUpdates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	c, _, err := st.CreateOrGetCustomer(ctx, testCustomer("Acme Tools", "ops@acme.test"))
	require.NoError(t, err)

	require.NoError(t, st.MarkAuditStarted(ctx, c.ID))
	started, err := st.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CustomerStatusProcessing, started.Status)
	require.NotNil(t, started.AuditStartedAt)
	assert.Nil(t, started.AuditEndedAt)

	require.NoError(t, st.UpdateCustomerStatus(ctx, c.ID, model.CustomerStatusProcessing, 35, "Analyzing performance"))
	mid, err := st.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 35, mid.Progress)
	assert.Equal(t, "Analyzing performance", mid.StatusMessage)

	require.NoError(t, st.CompleteCustomerAudit(ctx, c.ID, "result-1"))
	done, err := st.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CustomerStatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, "result-1", done.ResultID)
	require.NotNil(t, done.AuditEndedAt)
}

func TestListCustomersFilters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a, _, err := st.CreateOrGetCustomer(ctx, testCustomer("Acme Tools", "ops@acme.test"))
	require.NoError(t, err)
	b := testCustomer("Bravo Plumbing", "hi@bravo.test")
	b.Industry = "plumbing"
	_, _, err = st.CreateOrGetCustomer(ctx, b)
	require.NoError(t, err)

	require.NoError(t, st.UpdateCustomerStatus(ctx, a.ID, model.CustomerStatusCompleted, 100, ""))

	completed, err := st.ListCustomers(ctx, CustomerFilter{Status: model.CustomerStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, a.ID, completed[0].ID)

	byIndustry, err := st.ListCustomers(ctx, CustomerFilter{Search: "PLUMB"})
	require.NoError(t, err)
	require.Len(t, byIndustry, 1)
	assert.Equal(t, "Bravo Plumbing", byIndustry[0].CompanyName)

	limited, err := st.ListCustomers(ctx, CustomerFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestJobLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	c, _, err := st.CreateOrGetCustomer(ctx, testCustomer("Acme Tools", "ops@acme.test"))
	require.NoError(t, err)

	_, err = st.GetActiveJob(ctx, c.ID)
	assert.True(t, eris.Is(err, ErrNotFound))

	job, err := st.CreateJob(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)

	active, err := st.GetActiveJob(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, active.ID)

	// The partial unique index blocks a second active job.
	_, err = st.CreateJob(ctx, c.ID)
	require.Error(t, err)

	now := time.Now().UTC()
	job.Status = model.JobStatusProcessing
	job.StageIndex = 2
	job.Progress = 15
	job.StartedAt = &now
	job.StageErrors = []model.StageError{{Stage: model.StagePerformance, Message: "provider rejected request", OccurredAt: now}}
	require.NoError(t, st.UpdateJob(ctx, job))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
	assert.Equal(t, 15, got.Progress)
	require.Len(t, got.StageErrors, 1)
	assert.Equal(t, model.StagePerformance, got.StageErrors[0].Stage)
	require.NotNil(t, got.StartedAt)

	// Finishing the job frees the active slot.
	ended := time.Now().UTC()
	job.Status = model.JobStatusCompleted
	job.EndedAt = &ended
	require.NoError(t, st.UpdateJob(ctx, job))

	_, err = st.GetActiveJob(ctx, c.ID)
	assert.True(t, eris.Is(err, ErrNotFound))

	next, err := st.CreateJob(ctx, c.ID)
	require.NoError(t, err)
	assert.NotEqual(t, job.ID, next.ID)
}

func TestResultsRoundTripAndLatest(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	c, _, err := st.CreateOrGetCustomer(ctx, testCustomer("Acme Tools", "ops@acme.test"))
	require.NoError(t, err)

	older := &model.AuditResult{
		CustomerID:  c.ID,
		JobID:       "job-1",
		Domain:      "acme.test",
		GeneratedAt: time.Now().UTC().Add(-time.Hour),
		Scores:      model.SectionScores{Overall: 50},
	}
	require.NoError(t, st.SaveResult(ctx, older))
	assert.NotEmpty(t, older.ID)

	newer := &model.AuditResult{
		CustomerID:  c.ID,
		JobID:       "job-2",
		Domain:      "acme.test",
		GeneratedAt: time.Now().UTC(),
		Scores:      model.SectionScores{Overall: 72},
	}
	require.NoError(t, st.SaveResult(ctx, newer))

	byID, err := st.GetResult(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, byID.Scores.Overall)

	latest, err := st.GetLatestResult(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Equal(t, 72, latest.Scores.Overall)

	_, err = st.GetLatestResult(ctx, "other-customer")
	assert.True(t, eris.Is(err, ErrNotFound))
}
