package handlers

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/civicpulse/civicpulse/internal/repositories/assignment"
	"github.com/civicpulse/civicpulse/internal/repositories/depthistory"
	"github.com/civicpulse/civicpulse/internal/repositories/report"
	lifecyclesvc "github.com/civicpulse/civicpulse/internal/services/lifecycle"
	"github.com/civicpulse/civicpulse/pkg/auth"
	"github.com/civicpulse/civicpulse/pkg/lifecycle"
	"github.com/civicpulse/civicpulse/pkg/models"
	"github.com/civicpulse/civicpulse/pkg/utils"
)

// TransitionRequest is the body of a lifecycle action
type TransitionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// TransferRequest is the body of a department transfer
type TransferRequest struct {
	ToDepartmentID int64  `json:"to_department_id" validate:"required"`
	Reason         string `json:"reason" validate:"required,max=500"`
}

// SupportResponse carries the post-mutation support counter
type SupportResponse struct {
	ReportID     int64 `json:"report_id"`
	SupportCount int   `json:"support_count"`
}

// ReportHandler handles report CRUD and lifecycle commands
type ReportHandler struct {
	service     *lifecyclesvc.Service
	reports     report.ReportRepository
	assignments assignment.AssignmentRepository
	history     depthistory.HistoryRepository
	logger      ectologger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(
	service *lifecyclesvc.Service,
	reports report.ReportRepository,
	assignments assignment.AssignmentRepository,
	history depthistory.HistoryRepository,
	logger ectologger.Logger,
) *ReportHandler {
	return &ReportHandler{
		service:     service,
		reports:     reports,
		assignments: assignments,
		history:     history,
		logger:      logger,
	}
}

// RegisterRoutes registers report routes
func (h *ReportHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/reports", h.Create)
	g.GET("/reports", h.List)
	g.GET("/reports/:id", h.Get)
	g.DELETE("/reports/:id", h.Delete)

	g.GET("/reports/:id/assignments", h.ListAssignments)
	g.GET("/reports/:id/history", h.ListHistory)

	g.POST("/reports/:id/actions/:action", h.Transition)
	g.POST("/reports/:id/assign", h.Assign)
	g.POST("/reports/:id/accept", h.Accept)
	g.POST("/reports/:id/transfer", h.Transfer)

	g.POST("/reports/:id/support", h.Support)
	g.DELETE("/reports/:id/support", h.Unsupport)
}

// Create submits a new report
func (h *ReportHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req, err := utils.Validate(req)
	if err != nil {
		return err
	}

	rpt, err := h.service.CreateReport(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, rpt)
}

// List returns reports matching the filter query parameters
func (h *ReportHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	query := &models.ListReportsQuery{}

	if v := c.QueryParam("status"); v != "" {
		status := models.ReportStatus(v)
		if !status.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
		}
		query.Status = &status
	}
	if v := c.QueryParam("department_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid department_id")
		}
		query.DepartmentID = &id
	}
	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid category_id")
		}
		query.CategoryID = &id
	}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user_id")
		}
		query.UserID = &id
	}
	query.Page, _ = strconv.Atoi(c.QueryParam("page"))
	query.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))

	reports, err := h.reports.List(ctx, query)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, reports)
}

// Get returns a single report
func (h *ReportHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	rpt, err := h.reports.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, rpt)
}

// Delete soft deletes a report
func (h *ReportHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	if err := auth.Require(ctx, auth.CapabilityReject); err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.reports.Delete(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// ListAssignments returns the report's assignment ledger
func (h *ReportHandler) ListAssignments(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	assignments, err := h.assignments.ListByReportID(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, assignments)
}

// ListHistory returns the report's department audit trail
func (h *ReportHandler) ListHistory(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	entries, err := h.history.ListByReportID(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}

// Transition fires a lifecycle action by name
func (h *ReportHandler) Transition(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	action, err := lifecycle.ParseAction(c.Param("action"))
	if err != nil {
		return err
	}

	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rpt, err := h.service.Transition(ctx, id, action, req.Reason)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, rpt)
}

// Assign creates an assignment and moves the report to IN_PROGRESS
func (h *ReportHandler) Assign(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	var req models.CreateAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req, err = utils.Validate(req)
	if err != nil {
		return err
	}

	asg, err := h.service.Assign(ctx, id, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, asg)
}

// Accept stamps the acting user's acceptance of the active assignment
func (h *ReportHandler) Accept(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	asg, err := h.service.Accept(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, asg)
}

// Transfer moves the report to another department
func (h *ReportHandler) Transfer(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req, err = utils.Validate(req)
	if err != nil {
		return err
	}

	rpt, err := h.service.Transfer(ctx, id, req.ToDepartmentID, req.Reason)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, rpt)
}

// Support records the acting citizen's support
func (h *ReportHandler) Support(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	count, err := h.service.Support(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, SupportResponse{ReportID: id, SupportCount: count})
}

// Unsupport withdraws the acting citizen's support
func (h *ReportHandler) Unsupport(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	count, err := h.service.Unsupport(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, SupportResponse{ReportID: id, SupportCount: count})
}
