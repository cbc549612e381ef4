// Package lifecycle orchestrates report transitions: every command runs as a
// single transaction covering the report row, the assignment ledger and the
// department audit trail, serialized per report by a row lock.
package lifecycle

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/civicpulse/civicpulse/internal/repositories/assignment"
	"github.com/civicpulse/civicpulse/internal/repositories/depthistory"
	"github.com/civicpulse/civicpulse/internal/repositories/directory"
	"github.com/civicpulse/civicpulse/internal/repositories/report"
	"github.com/civicpulse/civicpulse/pkg/appctx"
	"github.com/civicpulse/civicpulse/pkg/auth"
	"github.com/civicpulse/civicpulse/pkg/database"
	"github.com/civicpulse/civicpulse/pkg/events"
	"github.com/civicpulse/civicpulse/pkg/lifecycle"
	"github.com/civicpulse/civicpulse/pkg/metrics"
	"github.com/civicpulse/civicpulse/pkg/models"
	"github.com/civicpulse/civicpulse/pkg/notify"
	"github.com/civicpulse/civicpulse/pkg/tracing"
)

// reopenReason is the audit trail reason recorded on every reopen
const reopenReason = "reopened"

// submittedReason is the audit trail reason on the seed history row written
// when a report is created
const submittedReason = "submitted"

// Service implements the report lifecycle commands
type Service struct {
	db                database.DB
	logger            ectologger.Logger
	reports           report.ReportRepository
	assignments       assignment.AssignmentRepository
	history           depthistory.HistoryRepository
	directory         directory.DirectoryRepository
	emitter           *events.Emitter
	notifier          *notify.Notifier
	infoReturnDefault models.ReportStatus
}

// NewService creates a new lifecycle service
func NewService(
	db database.DB,
	logger ectologger.Logger,
	reports report.ReportRepository,
	assignments assignment.AssignmentRepository,
	history depthistory.HistoryRepository,
	dir directory.DirectoryRepository,
	emitter *events.Emitter,
	notifier *notify.Notifier,
	infoReturnDefault models.ReportStatus,
) *Service {
	if !infoReturnDefault.Valid() {
		infoReturnDefault = models.ReportStatusInReview
	}
	return &Service{
		db:                db,
		logger:            logger,
		reports:           reports,
		assignments:       assignments,
		history:           history,
		directory:         dir,
		emitter:           emitter,
		notifier:          notifier,
		infoReturnDefault: infoReturnDefault,
	}
}

// CreateReport validates directory references and inserts a new OPEN report
func (s *Service) CreateReport(ctx context.Context, req *models.CreateReportRequest) (*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.CreateReport")
	defer span.End()

	userID := actorID(ctx)
	if userID == 0 {
		return nil, httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	if _, err := s.directory.GetDepartment(ctx, req.DepartmentID); err != nil {
		return nil, err
	}
	if req.CategoryID != nil {
		if _, err := s.directory.GetCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	rpt := &models.Report{
		UserID:              userID,
		ReportType:          req.ReportType,
		CategoryID:          req.CategoryID,
		Status:              models.ReportStatusOpen,
		CurrentDepartmentID: req.DepartmentID,
		Title:               req.Title,
		Description:         req.Description,
		Address:             req.Address,
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		MediaURLs:           req.MediaURLs,
	}

	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create report")
	}
	defer tx.Rollback(ctx)

	rpt, err = s.reports.Create(ctx, rpt)
	if err != nil {
		return nil, err
	}

	// First assignment: previous department is null.
	if _, err := s.history.Append(ctx, &models.DepartmentHistory{
		ReportID:        rpt.ID,
		NewDepartmentID: rpt.CurrentDepartmentID,
		Reason:          submittedReason,
		ChangedByUserID: userID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create report")
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"report_id":     rpt.ID,
		"user_id":       userID,
		"department_id": rpt.CurrentDepartmentID,
	}).Info("created report")

	return rpt, nil
}

// Transition fires a lifecycle action against a report. The whole unit runs
// in one transaction with the report row locked; of two racing commands, the
// loser observes the committed state and fails its precondition with 409.
func (s *Service) Transition(ctx context.Context, reportID int64, action lifecycle.Action, reason string) (*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Transition")
	defer span.End()

	if err := auth.Require(ctx, lifecycle.RequiredCapability(action)); err != nil {
		return nil, err
	}

	if action == lifecycle.ActionReject {
		if err := lifecycle.ValidateReason(reason); err != nil {
			return nil, err
		}
	}

	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to transition report")
	}
	defer tx.Rollback(ctx)

	rpt, err := s.reports.GetForUpdate(ctx, reportID)
	if err != nil {
		return nil, err
	}

	from := rpt.Status
	next, err := lifecycle.Next(action, from, rpt.SubStatus, s.infoReturnDefault)
	if err != nil {
		metrics.TransitionConflictsTotal.WithLabelValues(string(action)).Inc()
		return nil, err
	}

	now := time.Now().UTC()

	switch action {
	case lifecycle.ActionRequestInfo:
		origin := string(from)
		rpt.SubStatus = &origin
	case lifecycle.ActionProvideInfo:
		rpt.SubStatus = nil
	case lifecycle.ActionCompleteWork:
		active, err := s.assignments.GetActiveByReportID(ctx, reportID)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusConflict, "no active assignment")
		}
		if active.AcceptedAt == nil {
			return nil, httperror.NewHTTPError(http.StatusConflict, "assignment not yet accepted")
		}
		if err := s.assignments.Complete(ctx, reportID); err != nil {
			return nil, err
		}
	case lifecycle.ActionApprove:
		rpt.ResolvedAt = &now
		if reason != "" {
			rpt.ResolutionNotes = &reason
		}
		closedBy := actorID(ctx)
		rpt.ClosedByUserID = &closedBy
		if err := s.assignments.Complete(ctx, reportID); err != nil {
			return nil, err
		}
	case lifecycle.ActionReject:
		rpt.RejectionReason = &reason
		closedBy := actorID(ctx)
		rpt.ClosedByUserID = &closedBy
		if err := s.assignments.Cancel(ctx, reportID); err != nil {
			return nil, err
		}
	case lifecycle.ActionReopen:
		rpt.SubStatus = nil
		rpt.AssignedEmployeeID = nil
		if err := s.assignments.Cancel(ctx, reportID); err != nil {
			return nil, err
		}
		if _, err := s.history.Append(ctx, &models.DepartmentHistory{
			ReportID:             reportID,
			PreviousDepartmentID: &rpt.CurrentDepartmentID,
			NewDepartmentID:      rpt.CurrentDepartmentID,
			Reason:               reopenReason,
			ChangedByUserID:      actorID(ctx),
			ChangedAt:            now,
		}); err != nil {
			return nil, err
		}
	}

	rpt.Status = next

	if _, err := s.reports.Update(ctx, rpt); err != nil {
		metrics.TransitionsTotal.WithLabelValues(string(action), "error").Inc()
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.TransitionsTotal.WithLabelValues(string(action), "error").Inc()
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to transition report")
	}

	metrics.TransitionsTotal.WithLabelValues(string(action), "ok").Inc()
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"report_id": reportID,
		"action":    action,
		"from":      from,
		"to":        next,
	}).Info("report transitioned")

	s.emitter.EmitStatusChanged(ctx, rpt, string(action), from, appctx.GetUserID(ctx))

	return rpt, nil
}

// Assign creates an ACTIVE assignment and moves the report to IN_PROGRESS.
// An existing ACTIVE assignment is superseded: cancelled atomically with
// creating the new one.
func (s *Service) Assign(ctx context.Context, reportID int64, req *models.CreateAssignmentRequest) (*models.Assignment, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Assign")
	defer span.End()

	if err := auth.Require(ctx, auth.CapabilityAssign); err != nil {
		return nil, err
	}

	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to assign report")
	}
	defer tx.Rollback(ctx)

	rpt, err := s.reports.GetForUpdate(ctx, reportID)
	if err != nil {
		return nil, err
	}

	from := rpt.Status
	next, err := lifecycle.Next(lifecycle.ActionAssign, from, rpt.SubStatus, s.infoReturnDefault)
	if err != nil {
		metrics.TransitionConflictsTotal.WithLabelValues(string(lifecycle.ActionAssign)).Inc()
		return nil, err
	}

	asg := &models.Assignment{
		ReportID:         reportID,
		AssigneeType:     req.AssigneeType,
		AssignedByUserID: actorID(ctx),
		Notes:            req.Notes,
	}

	switch req.AssigneeType {
	case models.AssigneeTypeUser:
		asg.AssigneeUserID = &req.AssigneeID
		rpt.AssignedEmployeeID = &req.AssigneeID
	case models.AssigneeTypeTeam:
		team, err := s.directory.GetTeam(ctx, req.AssigneeID)
		if err != nil {
			return nil, err
		}
		if team.DepartmentID != rpt.CurrentDepartmentID {
			return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "team belongs to a different department")
		}
		asg.AssigneeTeamID = &req.AssigneeID
		rpt.AssignedEmployeeID = nil
	default:
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "unknown assignee type")
	}

	// Reassignment from IN_PROGRESS supersedes the current assignment.
	if from == models.ReportStatusInProgress {
		if err := s.assignments.Cancel(ctx, reportID); err != nil {
			return nil, err
		}
	}

	asg, err = s.assignments.Create(ctx, asg)
	if err != nil {
		return nil, err
	}

	rpt.Status = next
	if _, err := s.reports.Update(ctx, rpt); err != nil {
		metrics.TransitionsTotal.WithLabelValues(string(lifecycle.ActionAssign), "error").Inc()
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.TransitionsTotal.WithLabelValues(string(lifecycle.ActionAssign), "error").Inc()
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to assign report")
	}

	metrics.TransitionsTotal.WithLabelValues(string(lifecycle.ActionAssign), "ok").Inc()
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"report_id":     reportID,
		"assignee_type": asg.AssigneeType,
		"assignee_id":   asg.AssigneeID(),
	}).Info("report assigned")

	s.emitter.EmitAssigned(ctx, rpt, asg, appctx.GetUserID(ctx))

	return asg, nil
}

// Accept stamps the acting user's acceptance on the ACTIVE assignment. The
// report status does not change; acceptance is an independently timestamped
// event used for the intervention duration.
func (s *Service) Accept(ctx context.Context, reportID int64) (*models.Assignment, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Accept")
	defer span.End()

	if err := auth.Require(ctx, auth.CapabilityResolve); err != nil {
		return nil, err
	}

	active, err := s.assignments.GetActiveByReportID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	switch active.AssigneeType {
	case models.AssigneeTypeUser:
		if active.AssigneeUserID == nil || *active.AssigneeUserID != actorID(ctx) {
			return nil, httperror.NewHTTPError(http.StatusForbidden, "assignment belongs to another user")
		}
	case models.AssigneeTypeTeam:
		if active.AssigneeTeamID == nil {
			return nil, httperror.NewHTTPError(http.StatusConflict, "assignment has no team")
		}
		member, err := s.directory.IsTeamMember(ctx, *active.AssigneeTeamID, actorID(ctx))
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, httperror.NewHTTPError(http.StatusForbidden, "assignment belongs to another team")
		}
	}

	return s.assignments.Accept(ctx, reportID)
}

// Transfer moves a report to another department. Status is untouched
// (transfer is orthogonal to the lifecycle), but any ACTIVE assignment is
// cancelled so the receiving department can re-assign.
func (s *Service) Transfer(ctx context.Context, reportID int64, toDepartmentID int64, reason string) (*models.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Transfer")
	defer span.End()

	if err := auth.Require(ctx, auth.CapabilityTransfer); err != nil {
		return nil, err
	}

	if err := lifecycle.ValidateReason(reason); err != nil {
		return nil, err
	}

	dest, err := s.directory.GetDepartment(ctx, toDepartmentID)
	if err != nil {
		return nil, err
	}

	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to transfer report")
	}
	defer tx.Rollback(ctx)

	rpt, err := s.reports.GetForUpdate(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if !lifecycle.CanTransfer(rpt.Status) {
		metrics.TransitionConflictsTotal.WithLabelValues(string(lifecycle.ActionTransfer)).Inc()
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "cannot transfer a report in status %s", rpt.Status)
	}

	if rpt.CurrentDepartmentID == toDepartmentID {
		return nil, httperror.NewHTTPError(http.StatusConflict, "report already belongs to department")
	}

	from := rpt.CurrentDepartmentID

	if err := s.assignments.Cancel(ctx, reportID); err != nil {
		return nil, err
	}

	if _, err := s.history.Append(ctx, &models.DepartmentHistory{
		ReportID:             reportID,
		PreviousDepartmentID: &from,
		NewDepartmentID:      toDepartmentID,
		Reason:               reason,
		ChangedByUserID:      actorID(ctx),
	}); err != nil {
		return nil, err
	}

	rpt.CurrentDepartmentID = toDepartmentID
	rpt.AssignedEmployeeID = nil

	if _, err := s.reports.Update(ctx, rpt); err != nil {
		metrics.TransitionsTotal.WithLabelValues(string(lifecycle.ActionTransfer), "error").Inc()
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.TransitionsTotal.WithLabelValues(string(lifecycle.ActionTransfer), "error").Inc()
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to transfer report")
	}

	metrics.TransitionsTotal.WithLabelValues(string(lifecycle.ActionTransfer), "ok").Inc()
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"report_id":          reportID,
		"from_department_id": from,
		"to_department_id":   toDepartmentID,
	}).Info("report transferred")

	s.emitter.EmitTransferred(ctx, rpt, from, toDepartmentID, reason, appctx.GetUserID(ctx))

	if dest.WebhookURL != nil {
		s.notifier.NotifyTransfer(ctx, *dest.WebhookURL, &notify.TransferNotification{
			ReportID:         rpt.ID,
			Title:            rpt.Title,
			FromDepartmentID: from,
			ToDepartmentID:   toDepartmentID,
			Reason:           reason,
			TransferredAt:    time.Now().UTC(),
		})
	}

	return rpt, nil
}

// Support records the acting citizen's support of a report
func (s *Service) Support(ctx context.Context, reportID int64) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Support")
	defer span.End()

	if err := auth.Require(ctx, auth.CapabilitySupport); err != nil {
		return 0, err
	}

	count, err := s.reports.AddSupport(ctx, reportID, actorID(ctx))
	if err != nil {
		return 0, err
	}

	s.emitter.EmitSupported(ctx, reportID, count, appctx.GetUserID(ctx))

	return count, nil
}

// Unsupport withdraws the acting citizen's support of a report
func (s *Service) Unsupport(ctx context.Context, reportID int64) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Unsupport")
	defer span.End()

	if err := auth.Require(ctx, auth.CapabilitySupport); err != nil {
		return 0, err
	}

	return s.reports.RemoveSupport(ctx, reportID, actorID(ctx))
}

func actorID(ctx context.Context) int64 {
	id, _ := strconv.ParseInt(appctx.GetUserID(ctx), 10, 64)
	return id
}
