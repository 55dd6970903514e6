package processor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/model"
)

// stageMessages is the human-readable status line shown while a stage runs.
var stageMessages = map[model.Stage]string{
	model.StageInitializing: "Initializing audit",
	model.StageCrawling:     "Crawling website",
	model.StagePerformance:  "Analyzing performance",
	model.StageSEO:          "Running technical SEO checks",
	model.StageCompetitors:  "Analyzing competitors",
	model.StageKeywords:     "Researching keywords",
	model.StageSocial:       "Scanning social media presence",
	model.StageReport:       "Generating report",
}

func (p *Processor) processJob(ctx context.Context, jobID string) {
	log := zap.L().With(zap.String("job_id", jobID))
	defer p.clearPending(jobID)

	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		log.Error("dequeued unknown job", zap.Error(err))
		return
	}
	defer p.clearCancelled(jobID)

	// A job cancelled while still queued is dropped without touching the
	// customer record.
	if p.isCancelled(jobID) {
		p.finishJob(ctx, job, model.JobStatusFailed)
		log.Info("queued job cancelled before start")
		return
	}

	now := time.Now().UTC()
	job.Status = model.JobStatusProcessing
	job.StartedAt = &now
	if err := p.store.UpdateJob(ctx, job); err != nil {
		log.Error("mark job processing", zap.Error(err))
		return
	}

	result := &model.AuditResult{
		ID:         uuid.NewString(),
		CustomerID: job.CustomerID,
		JobID:      job.ID,
	}

	var customer *model.Customer
	for i, stage := range model.Stages {
		if ctx.Err() != nil || p.isCancelled(jobID) {
			p.abortJob(ctx, job, customer, "Audit cancelled")
			log.Info("job cancelled at stage boundary", zap.String("stage", string(stage)))
			return
		}

		if customer != nil {
			p.setCustomerProgress(ctx, customer.ID, job, stageMessages[stage])
		}

		err := p.runStage(ctx, stage, job, &customer, result)
		if stage == model.StageInitializing && err != nil {
			// Missing customer record is the one fatal case.
			p.failJob(ctx, job, "Audit failed: "+eris.Cause(err).Error())
			log.Error("fatal initializing failure", zap.Error(err))
			return
		}
		if err != nil {
			job.StageErrors = append(job.StageErrors, model.StageError{
				Stage:      stage,
				Message:    err.Error(),
				OccurredAt: time.Now().UTC(),
			})
			log.Warn("stage degraded",
				zap.String("stage", string(stage)),
				zap.Error(err),
			)
		}

		job.StageIndex = i
		job.Progress = model.CumulativeProgress(i + 1)
		if err := p.store.UpdateJob(ctx, job); err != nil {
			log.Error("persist stage progress", zap.Error(err))
		}
	}

	p.finishJob(ctx, job, model.JobStatusCompleted)
	log.Info("audit job completed",
		zap.String("customer_id", job.CustomerID),
		zap.Int("stage_errors", len(job.StageErrors)),
	)
}

// runStage executes one stage. Collector-backed stages record a degradation
// error when their section came back synthetic; the section itself is always
// populated either way.
func (p *Processor) runStage(ctx context.Context, stage model.Stage, job *model.AuditJob, customer **model.Customer, result *model.AuditResult) error {
	switch stage {
	case model.StageInitializing:
		c, err := p.store.GetCustomer(ctx, job.CustomerID)
		if err != nil {
			return eris.Wrapf(err, "initializing: customer %s", job.CustomerID)
		}
		*customer = c
		result.Domain = c.Domain()
		if err := p.store.MarkAuditStarted(ctx, c.ID); err != nil {
			return eris.Wrap(err, "initializing: mark audit started")
		}
		p.emit(model.Event{
			Type:       model.EventCustomerStatusChanged,
			CustomerID: c.ID,
			JobID:      job.ID,
			Status:     model.CustomerStatusProcessing,
			Message:    stageMessages[stage],
		})
		return nil

	case model.StageCrawling:
		result.Crawl = p.collector.CollectCrawl(ctx, (*customer).Website)
		return syntheticCheck(stage, result.Crawl.Source)

	case model.StagePerformance:
		result.Performance = p.collector.CollectPerformance(ctx, result.Domain)
		return syntheticCheck(stage, result.Performance.Source)

	case model.StageSEO:
		result.TechnicalSEO = p.collector.CollectTechnicalSEO(ctx, result.Domain)
		result.Backlinks = p.collector.CollectBacklinks(ctx, result.Domain)
		if err := syntheticCheck(stage, result.TechnicalSEO.Source); err != nil {
			return err
		}
		return syntheticCheck(stage, result.Backlinks.Source)

	case model.StageCompetitors:
		domains := competitorDomains((*customer).Competitors)
		result.Competitors = p.collector.CollectCompetitors(ctx, result.Domain, domains)
		return syntheticCheck(stage, result.Competitors.Source)

	case model.StageKeywords:
		result.Keywords = p.collector.CollectKeywords(ctx, result.Domain, (*customer).TargetKeywords)
		return syntheticCheck(stage, result.Keywords.Source)

	case model.StageSocial:
		result.SocialMedia = p.collector.CollectSocial(ctx, (*customer).CompanyName, (*customer).Website)
		return syntheticCheck(stage, result.SocialMedia.Source)

	case model.StageReport:
		return p.runReportStage(ctx, job, *customer, result)
	}
	return eris.Errorf("unknown stage %q", stage)
}

// runReportStage persists the accumulated result, renders the artifact and
// marks the customer completed. Render failures degrade the stage but the
// result is still persisted and the customer still completes.
func (p *Processor) runReportStage(ctx context.Context, job *model.AuditJob, customer *model.Customer, result *model.AuditResult) error {
	result.GeneratedAt = time.Now().UTC()
	result.Scores = model.ComputeScores(result)

	if err := p.store.SaveResult(ctx, result); err != nil {
		// Complete the customer anyway so the pipeline never wedges; the
		// result reference stays on the previous audit.
		p.setCustomerStatus(ctx, customer.ID, job, model.CustomerStatusCompleted, 100, "Audit completed (result not persisted)")
		return eris.Wrap(err, "report: save result")
	}

	var reportURL string
	var renderErr error
	if p.assembler != nil {
		reportURL, renderErr = p.assembler.Assemble(ctx, customer, result)
	}

	if err := p.store.CompleteCustomerAudit(ctx, customer.ID, result.ID); err != nil {
		return eris.Wrap(err, "report: complete customer audit")
	}
	p.emit(model.Event{
		Type:       model.EventAuditCompleted,
		CustomerID: customer.ID,
		JobID:      job.ID,
		Status:     model.CustomerStatusCompleted,
		Progress:   100,
		ReportURL:  reportURL,
	})

	if renderErr != nil {
		return eris.Wrap(renderErr, "report: render artifact")
	}
	return nil
}

// syntheticCheck turns a synthetic section into a recorded stage degradation.
func syntheticCheck(stage model.Stage, source model.DataSource) error {
	if source == model.SourceSynthetic {
		return eris.Errorf("%s: provider unavailable, synthetic fallback used", stage)
	}
	return nil
}

func competitorDomains(urls []string) []string {
	var domains []string
	for _, raw := range urls {
		if d := model.DomainOf(raw); d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}

func (p *Processor) setCustomerProgress(ctx context.Context, customerID string, job *model.AuditJob, message string) {
	p.setCustomerStatus(ctx, customerID, job, model.CustomerStatusProcessing, job.Progress, message)
}

func (p *Processor) setCustomerStatus(ctx context.Context, customerID string, job *model.AuditJob, status model.CustomerStatus, progress int, message string) {
	if err := p.store.UpdateCustomerStatus(ctx, customerID, status, progress, message); err != nil {
		zap.L().Error("update customer status",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return
	}
	p.emit(model.Event{
		Type:       model.EventCustomerStatusChanged,
		CustomerID: customerID,
		JobID:      job.ID,
		Status:     status,
		Progress:   progress,
		Message:    message,
	})
}

// abortJob handles cooperative cancellation mid-job: the customer keeps the
// sections completed so far and lands in failed status.
func (p *Processor) abortJob(ctx context.Context, job *model.AuditJob, customer *model.Customer, message string) {
	if customer != nil {
		p.setCustomerStatus(ctx, customer.ID, job, model.CustomerStatusFailed, job.Progress, message)
	}
	p.finishJob(ctx, job, model.JobStatusFailed)
}

// failJob handles the fatal initializing case.
func (p *Processor) failJob(ctx context.Context, job *model.AuditJob, message string) {
	if _, err := p.store.GetCustomer(ctx, job.CustomerID); err == nil {
		p.setCustomerStatus(ctx, job.CustomerID, job, model.CustomerStatusFailed, job.Progress, message)
	}
	p.finishJob(ctx, job, model.JobStatusFailed)
}

func (p *Processor) finishJob(ctx context.Context, job *model.AuditJob, status model.JobStatus) {
	now := time.Now().UTC()
	job.Status = status
	job.EndedAt = &now
	if status == model.JobStatusCompleted {
		job.Progress = 100
	}
	if err := p.store.UpdateJob(ctx, job); err != nil {
		zap.L().Error("finalize job",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
}
