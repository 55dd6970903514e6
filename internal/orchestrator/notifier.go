package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/model"
)

// Notifier delivers the audit-completed notification. The delivery channel
// (email, webhook, log) is an external collaborator behind this interface.
type Notifier interface {
	NotifyCompleted(ctx context.Context, customer *model.Customer, reportURL string) error
}

// LogNotifier is the default notifier: it writes a structured log line.
type LogNotifier struct{}

func (LogNotifier) NotifyCompleted(ctx context.Context, customer *model.Customer, reportURL string) error {
	zap.L().Info("audit completed",
		zap.String("customer_id", customer.ID),
		zap.String("company", customer.CompanyName),
		zap.String("email", customer.Email),
		zap.String("report_url", reportURL),
	)
	return nil
}
