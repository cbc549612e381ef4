// Package notify delivers department webhook notifications.
package notify

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-resty/resty/v2"

	"github.com/civicpulse/civicpulse/pkg/metrics"
	"github.com/civicpulse/civicpulse/pkg/tracing"
)

// TransferNotification is posted to the receiving department's webhook when a
// report is transferred to it.
type TransferNotification struct {
	ReportID         int64     `json:"report_id"`
	Title            string    `json:"title"`
	FromDepartmentID int64     `json:"from_department_id"`
	ToDepartmentID   int64     `json:"to_department_id"`
	Reason           string    `json:"reason"`
	TransferredAt    time.Time `json:"transferred_at"`
}

// Notifier posts notifications to department webhooks. Delivery is
// best-effort: failures are logged and counted, never surfaced to the caller.
type Notifier struct {
	client *resty.Client
	logger ectologger.Logger
}

// NewNotifier creates a webhook notifier
func NewNotifier(timeout time.Duration, logger ectologger.Logger) *Notifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Notifier{
		client: client,
		logger: logger,
	}
}

// NotifyTransfer posts a transfer notification to the department webhook URL.
// A blank URL means the department has no webhook configured.
func (n *Notifier) NotifyTransfer(ctx context.Context, webhookURL string, notification *TransferNotification) {
	ctx, span := tracing.StartSpan(ctx, "notify.Notifier.NotifyTransfer")
	defer span.End()

	if webhookURL == "" {
		return
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(notification).
		Post(webhookURL)

	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		n.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"report_id": notification.ReportID,
		}).Warn("Failed to deliver transfer webhook")
		return
	}

	if resp.IsError() {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		n.logger.WithContext(ctx).WithFields(map[string]any{
			"report_id":   notification.ReportID,
			"status_code": resp.StatusCode(),
		}).Warn("Transfer webhook returned an error status")
		return
	}

	metrics.WebhookDeliveries.WithLabelValues("ok").Inc()
	n.logger.WithContext(ctx).WithFields(map[string]any{
		"report_id": notification.ReportID,
	}).Debug("Delivered transfer webhook")
}
