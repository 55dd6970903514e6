package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/audit-cli/internal/model"
)

// ErrNotFound is returned when a record does not exist. Callers detect it
// with eris.Is.
var ErrNotFound = eris.New("store: not found")

// CustomerFilter specifies criteria for listing customers.
type CustomerFilter struct {
	Status        model.CustomerStatus `json:"status,omitempty"`
	Search        string               `json:"search,omitempty"`
	CreatedAfter  time.Time            `json:"created_after,omitempty"`
	CreatedBefore time.Time            `json:"created_before,omitempty"`
	Limit         int                  `json:"limit,omitempty"`
	Offset        int                  `json:"offset,omitempty"`
}

// Store is the single source of truth for customers, audit jobs and audit
// results. Every mutation is an atomic read-modify-write keyed by id.
type Store interface {
	// Customers
	CreateOrGetCustomer(ctx context.Context, c model.Customer) (*model.Customer, bool, error)
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	GetCustomerBySlug(ctx context.Context, slug string) (*model.Customer, error)
	UpdateCustomerStatus(ctx context.Context, id string, status model.CustomerStatus, progress int, message string) error
	MarkAuditStarted(ctx context.Context, id string) error
	CompleteCustomerAudit(ctx context.Context, id, resultID string) error
	ListCustomers(ctx context.Context, filter CustomerFilter) ([]model.Customer, error)

	// Jobs
	CreateJob(ctx context.Context, customerID string) (*model.AuditJob, error)
	GetJob(ctx context.Context, id string) (*model.AuditJob, error)
	GetActiveJob(ctx context.Context, customerID string) (*model.AuditJob, error)
	UpdateJob(ctx context.Context, job *model.AuditJob) error

	// Results
	SaveResult(ctx context.Context, result *model.AuditResult) error
	GetResult(ctx context.Context, id string) (*model.AuditResult, error)
	GetLatestResult(ctx context.Context, customerID string) (*model.AuditResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
