package lifecycle

import (
	"net/http"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/civicpulse/pkg/models"
)

func TestNext_HappyPath(t *testing.T) {
	cases := []struct {
		action  Action
		current models.ReportStatus
		want    models.ReportStatus
	}{
		{ActionReview, models.ReportStatusOpen, models.ReportStatusInReview},
		{ActionAssign, models.ReportStatusInReview, models.ReportStatusInProgress},
		{ActionAssign, models.ReportStatusInProgress, models.ReportStatusInProgress},
		{ActionCompleteWork, models.ReportStatusInProgress, models.ReportStatusPendingApproval},
		{ActionApprove, models.ReportStatusPendingApproval, models.ReportStatusDone},
		{ActionSendBack, models.ReportStatusPendingApproval, models.ReportStatusInProgress},
		{ActionReject, models.ReportStatusInReview, models.ReportStatusRejected},
		{ActionReopen, models.ReportStatusDone, models.ReportStatusOpen},
		{ActionReopen, models.ReportStatusRejected, models.ReportStatusOpen},
	}

	for _, tc := range cases {
		got, err := Next(tc.action, tc.current, nil, models.ReportStatusInReview)
		require.NoError(t, err, "%s from %s", tc.action, tc.current)
		assert.Equal(t, tc.want, got)
	}
}

func TestNext_IllegalTransitionsConflict(t *testing.T) {
	cases := []struct {
		action  Action
		current models.ReportStatus
	}{
		{ActionApprove, models.ReportStatusOpen},
		{ActionApprove, models.ReportStatusInProgress},
		{ActionCompleteWork, models.ReportStatusDone},
		{ActionAssign, models.ReportStatusOpen},
		{ActionAssign, models.ReportStatusDone},
		{ActionReview, models.ReportStatusInProgress},
		{ActionReject, models.ReportStatusDone},
		{ActionReopen, models.ReportStatusInProgress},
	}

	for _, tc := range cases {
		_, err := Next(tc.action, tc.current, nil, models.ReportStatusInReview)
		require.Error(t, err, "%s from %s should fail", tc.action, tc.current)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	}
}

func TestNext_AwaitingInformationReturnsToOrigin(t *testing.T) {
	origin := string(models.ReportStatusInProgress)
	got, err := Next(ActionProvideInfo, models.ReportStatusAwaitingInfo, &origin, models.ReportStatusInReview)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusInProgress, got)
}

func TestNext_AwaitingInformationFallsBackToConfiguredDefault(t *testing.T) {
	got, err := Next(ActionProvideInfo, models.ReportStatusAwaitingInfo, nil, models.ReportStatusInReview)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusInReview, got)

	junk := "NOT_A_STATUS"
	got, err = Next(ActionProvideInfo, models.ReportStatusAwaitingInfo, &junk, models.ReportStatusInReview)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusInReview, got)
}

func TestCanTransfer(t *testing.T) {
	assert.True(t, CanTransfer(models.ReportStatusOpen))
	assert.True(t, CanTransfer(models.ReportStatusInReview))
	assert.True(t, CanTransfer(models.ReportStatusInProgress))
	assert.True(t, CanTransfer(models.ReportStatusAwaitingInfo))
	assert.False(t, CanTransfer(models.ReportStatusDone))
	assert.False(t, CanTransfer(models.ReportStatusRejected))
	assert.False(t, CanTransfer(models.ReportStatusPendingApproval))
}

func TestValidateReason(t *testing.T) {
	require.NoError(t, ValidateReason("duplicate of report 42"))

	err := ValidateReason("")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))

	err = ValidateReason("   ")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))

	err = ValidateReason(strings.Repeat("x", 600))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))

	require.NoError(t, ValidateReason(strings.Repeat("x", 500)))
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Approve ")
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, a)

	_, err = ParseAction("explode")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestTerminalStatusesOnlyAllowReopen(t *testing.T) {
	for _, terminal := range []models.ReportStatus{models.ReportStatusDone, models.ReportStatusRejected} {
		for action := range requiredCapability {
			if action == ActionReopen || action == ActionTransfer {
				continue
			}
			assert.False(t, CanApply(action, terminal), "%s should not apply to %s", action, terminal)
		}
	}
}
