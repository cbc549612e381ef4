// Package lifecycle holds the report status state machine: which actions are
// structurally legal from which status, and what status they produce. It is
// pure; persistence and side effects belong to the lifecycle service.
package lifecycle

import (
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/civicpulse/civicpulse/pkg/auth"
	"github.com/civicpulse/civicpulse/pkg/models"
)

// Action is a command against a report's lifecycle
type Action string

const (
	ActionReview       Action = "review"
	ActionAssign       Action = "assign"
	ActionRequestInfo  Action = "request_info"
	ActionProvideInfo  Action = "provide_info"
	ActionCompleteWork Action = "complete_work"
	ActionApprove      Action = "approve"
	ActionSendBack     Action = "send_back"
	ActionReject       Action = "reject"
	ActionReopen       Action = "reopen"
	ActionTransfer     Action = "transfer"
)

// MaxReasonLen bounds rejection/transfer reason text
const MaxReasonLen = 500

// actionSources lists the statuses each action may fire from. Transfer is
// orthogonal to status and handled separately.
var actionSources = map[Action][]models.ReportStatus{
	ActionReview:       {models.ReportStatusOpen},
	ActionAssign:       {models.ReportStatusInReview, models.ReportStatusInProgress},
	ActionRequestInfo:  {models.ReportStatusInReview, models.ReportStatusInProgress},
	ActionProvideInfo:  {models.ReportStatusAwaitingInfo},
	ActionCompleteWork: {models.ReportStatusInProgress},
	ActionApprove:      {models.ReportStatusPendingApproval},
	ActionSendBack:     {models.ReportStatusPendingApproval},
	ActionReject: {
		models.ReportStatusOpen, models.ReportStatusInReview,
		models.ReportStatusInProgress, models.ReportStatusPendingApproval,
		models.ReportStatusAwaitingInfo,
	},
	ActionReopen: {models.ReportStatusDone, models.ReportStatusRejected},
}

// transferSources lists the statuses a department transfer may fire from
var transferSources = []models.ReportStatus{
	models.ReportStatusOpen, models.ReportStatusInReview,
	models.ReportStatusInProgress, models.ReportStatusAwaitingInfo,
}

var requiredCapability = map[Action]auth.Capability{
	ActionReview:       auth.CapabilityReview,
	ActionAssign:       auth.CapabilityAssign,
	ActionRequestInfo:  auth.CapabilityReview,
	ActionProvideInfo:  auth.CapabilityReview,
	ActionCompleteWork: auth.CapabilityResolve,
	ActionApprove:      auth.CapabilityReview,
	ActionSendBack:     auth.CapabilityReview,
	ActionReject:       auth.CapabilityReject,
	ActionReopen:       auth.CapabilityReopen,
	ActionTransfer:     auth.CapabilityTransfer,
}

// ParseAction validates a wire action name
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := requiredCapability[a]; !ok {
		return "", httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown action '%s'", s)
	}
	return a, nil
}

// RequiredCapability returns the capability a principal needs for an action
func RequiredCapability(action Action) auth.Capability {
	return requiredCapability[action]
}

// CanApply reports whether action is structurally legal from status
func CanApply(action Action, from models.ReportStatus) bool {
	if action == ActionTransfer {
		return CanTransfer(from)
	}
	for _, s := range actionSources[action] {
		if s == from {
			return true
		}
	}
	return false
}

// CanTransfer reports whether a department transfer is legal from status
func CanTransfer(from models.ReportStatus) bool {
	for _, s := range transferSources {
		if s == from {
			return true
		}
	}
	return false
}

// Next computes the target status for an action fired from the current
// status. subStatus carries the origin status recorded when the report
// entered AWAITING_INFORMATION; infoReturnDefault applies when it is absent.
// Transfer has no target status (it is orthogonal) and is rejected here.
func Next(action Action, current models.ReportStatus, subStatus *string, infoReturnDefault models.ReportStatus) (models.ReportStatus, error) {
	if action == ActionTransfer {
		return "", httperror.NewHTTPError(http.StatusBadRequest, "transfer does not change report status")
	}

	if !CanApply(action, current) {
		return "", httperror.NewHTTPErrorf(http.StatusConflict, "cannot %s a report in status %s", action, current)
	}

	switch action {
	case ActionReview:
		return models.ReportStatusInReview, nil
	case ActionAssign:
		return models.ReportStatusInProgress, nil
	case ActionRequestInfo:
		return models.ReportStatusAwaitingInfo, nil
	case ActionProvideInfo:
		if subStatus != nil {
			origin := models.ReportStatus(*subStatus)
			if origin.Valid() && origin != models.ReportStatusAwaitingInfo {
				return origin, nil
			}
		}
		return infoReturnDefault, nil
	case ActionCompleteWork:
		return models.ReportStatusPendingApproval, nil
	case ActionApprove:
		return models.ReportStatusDone, nil
	case ActionSendBack:
		return models.ReportStatusInProgress, nil
	case ActionReject:
		return models.ReportStatusRejected, nil
	case ActionReopen:
		return models.ReportStatusOpen, nil
	}

	return "", httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown action '%s'", action)
}

// ValidateReason enforces the required, bounded reason text used by reject
// and transfer
func ValidateReason(reason string) error {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "reason is required")
	}
	if len(reason) > MaxReasonLen {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "reason must be at most %d characters", MaxReasonLen)
	}
	return nil
}
