// Package report assembles the audit report artifacts: a self-contained HTML
// document, the fixed-column CSV tables and an Excel workbook. Rendering is a
// pure function of one customer and one audit result; only storing the
// artifacts touches I/O.
package report

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/model"
)

// Assembler renders and stores report artifacts.
type Assembler struct {
	artifacts ArtifactStore
	rules     []Rule
	theme     string
}

// Option configures the Assembler.
type Option func(*Assembler)

// WithRules replaces the built-in recommendation rules.
func WithRules(rules []Rule) Option {
	return func(a *Assembler) {
		if len(rules) > 0 {
			a.rules = rules
		}
	}
}

// WithTheme sets the report theme class.
func WithTheme(theme string) Option {
	return func(a *Assembler) {
		if theme != "" {
			a.theme = theme
		}
	}
}

// New creates an Assembler. A nil artifact store renders without persisting.
func New(artifacts ArtifactStore, opts ...Option) *Assembler {
	a := &Assembler{
		artifacts: artifacts,
		rules:     defaultRules(),
		theme:     "default",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble renders every artifact for the audit and stores them keyed by the
// customer slug. It returns the locator of the HTML report. CSV and workbook
// failures are logged but do not fail the assembly; the HTML report is the
// one artifact the customer record points at.
func (a *Assembler) Assemble(ctx context.Context, customer *model.Customer, result *model.AuditResult) (string, error) {
	html, err := a.RenderHTML(customer, result)
	if err != nil {
		return "", err
	}

	if a.artifacts == nil {
		return "", nil
	}

	url, err := a.artifacts.Store(ctx, customer.Slug+"/report.html", html)
	if err != nil {
		return "", err
	}

	a.storeBestEffort(ctx, customer.Slug+"/technical-issues.csv", func() ([]byte, error) {
		return a.TechnicalIssuesCSV(result)
	})
	a.storeBestEffort(ctx, customer.Slug+"/keyword-opportunities.csv", func() ([]byte, error) {
		return a.KeywordOpportunitiesCSV(result)
	})
	a.storeBestEffort(ctx, customer.Slug+"/competitor-comparison.csv", func() ([]byte, error) {
		return a.CompetitorComparisonCSV(result)
	})
	a.storeBestEffort(ctx, customer.Slug+"/audit.xlsx", func() ([]byte, error) {
		return a.WorkbookXLSX(customer, result)
	})

	zap.L().Info("report assembled",
		zap.String("customer_id", customer.ID),
		zap.String("slug", customer.Slug),
		zap.String("report_url", url),
	)
	return url, nil
}

func (a *Assembler) storeBestEffort(ctx context.Context, name string, render func() ([]byte, error)) {
	data, err := render()
	if err == nil {
		_, err = a.artifacts.Store(ctx, name, data)
	}
	if err != nil {
		zap.L().Warn("secondary artifact failed",
			zap.String("artifact", name),
			zap.Error(err),
		)
	}
}
