// Package events handles event emission for report lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/civicpulse/civicpulse/pkg/kafka"
	"github.com/civicpulse/civicpulse/pkg/models"
	"github.com/civicpulse/civicpulse/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes report lifecycle events. Emission is best-effort: a
// broker failure is logged but never fails the transition that produced it.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitStatusChanged emits a report.status_changed event
func (e *Emitter) EmitStatusChanged(ctx context.Context, report *models.Report, action string, fromStatus models.ReportStatus, actorID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitStatusChanged")
	defer span.End()

	if e.producer == nil {
		return
	}

	event := &kafka.ReportEvent{
		EventType:    "report.status_changed",
		ReportID:     report.ID,
		Action:       action,
		FromStatus:   string(fromStatus),
		ToStatus:     string(report.Status),
		ActorID:      actorID,
		DepartmentID: report.CurrentDepartmentID,
	}

	if err := e.producer.PublishReportEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit report.status_changed event")
	}
}

// EmitAssigned emits a report.assigned event
func (e *Emitter) EmitAssigned(ctx context.Context, report *models.Report, assignment *models.Assignment, actorID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitAssigned")
	defer span.End()

	if e.producer == nil {
		return
	}

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"assignment_id":  assignment.ID,
		"assignee_type":  assignment.AssigneeType,
		"assignee_id":    assignment.AssigneeID(),
	})

	event := &kafka.ReportEvent{
		EventType:    "report.assigned",
		ReportID:     report.ID,
		ToStatus:     string(report.Status),
		ActorID:      actorID,
		DepartmentID: report.CurrentDepartmentID,
		Data:         data,
	}

	if err := e.producer.PublishReportEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit report.assigned event")
	}
}

// EmitTransferred emits a report.transferred event
func (e *Emitter) EmitTransferred(ctx context.Context, report *models.Report, fromDepartmentID, toDepartmentID int64, reason string, actorID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitTransferred")
	defer span.End()

	if e.producer == nil {
		return
	}

	data, _ := json.Marshal(map[string]any{
		"schema_version":     SchemaVersion,
		"from_department_id": fromDepartmentID,
		"to_department_id":   toDepartmentID,
		"reason":             reason,
	})

	event := &kafka.ReportEvent{
		EventType:    "report.transferred",
		ReportID:     report.ID,
		ActorID:      actorID,
		DepartmentID: report.CurrentDepartmentID,
		Data:         data,
	}

	if err := e.producer.PublishReportEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit report.transferred event")
	}
}

// EmitSupported emits a report.supported event
func (e *Emitter) EmitSupported(ctx context.Context, reportID int64, supportCount int, actorID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSupported")
	defer span.End()

	if e.producer == nil {
		return
	}

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"support_count":  supportCount,
	})

	event := &kafka.ReportEvent{
		EventType: "report.supported",
		ReportID:  reportID,
		ActorID:   actorID,
		Data:      data,
	}

	if err := e.producer.PublishReportEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit report.supported event")
	}
}
