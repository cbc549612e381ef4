// Package directory provides read access to departments, categories and
// teams. These records are administered out of band; the service only ever
// reads them.
package directory

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/civicpulse/civicpulse/pkg/database"
	"github.com/civicpulse/civicpulse/pkg/models"
	"github.com/civicpulse/civicpulse/pkg/tracing"
)

const (
	departmentsTable = "departments"
	categoriesTable  = "categories"
	teamsTable       = "teams"
	teamMembersTable = "team_members"
)

// DirectoryRepository defines lookups of organizational records
type DirectoryRepository interface {
	GetDepartment(ctx context.Context, id int64) (*models.Department, error)
	ListDepartments(ctx context.Context) ([]*models.Department, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetTeam(ctx context.Context, id int64) (*models.Team, error)
	IsTeamMember(ctx context.Context, teamID, userID int64) (bool, error)
}

// Repository implements DirectoryRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new directory repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetDepartment retrieves an active department by ID
func (r *Repository) GetDepartment(ctx context.Context, id int64) (*models.Department, error) {
	ctx, span := tracing.StartSpan(ctx, "DirectoryRepository.GetDepartment")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "name", "code", "is_active", "webhook_url", "created_at", "updated_at", "deleted_at")
	sb.From(departmentsTable)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("is_active", true),
		sb.IsNull("deleted_at"),
	)

	sql, args := sb.Build()

	var department models.Department
	err := r.db.GetContext(ctx, &department, sql, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "department not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get department")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get department")
	}

	return &department, nil
}

// ListDepartments retrieves all active departments
func (r *Repository) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	ctx, span := tracing.StartSpan(ctx, "DirectoryRepository.ListDepartments")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "name", "code", "is_active", "webhook_url", "created_at", "updated_at", "deleted_at")
	sb.From(departmentsTable)
	sb.Where(
		sb.Equal("is_active", true),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("name")

	sql, args := sb.Build()

	var departments []*models.Department
	err := r.db.SelectContext(ctx, &departments, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list departments")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list departments")
	}

	return departments, nil
}

// GetCategory retrieves an active category by ID
func (r *Repository) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "DirectoryRepository.GetCategory")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "name", "parent_id", "is_active", "created_at", "updated_at", "deleted_at")
	sb.From(categoriesTable)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("is_active", true),
		sb.IsNull("deleted_at"),
	)

	sql, args := sb.Build()

	var category models.Category
	err := r.db.GetContext(ctx, &category, sql, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "category not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get category")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get category")
	}

	return &category, nil
}

// ListCategories retrieves all active categories
func (r *Repository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "DirectoryRepository.ListCategories")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "name", "parent_id", "is_active", "created_at", "updated_at", "deleted_at")
	sb.From(categoriesTable)
	sb.Where(
		sb.Equal("is_active", true),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("name")

	sql, args := sb.Build()

	var categories []*models.Category
	err := r.db.SelectContext(ctx, &categories, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list categories")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list categories")
	}

	return categories, nil
}

// GetTeam retrieves an active team by ID
func (r *Repository) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	ctx, span := tracing.StartSpan(ctx, "DirectoryRepository.GetTeam")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "department_id", "name", "is_active", "created_at", "updated_at", "deleted_at")
	sb.From(teamsTable)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("is_active", true),
		sb.IsNull("deleted_at"),
	)

	sql, args := sb.Build()

	var team models.Team
	err := r.db.GetContext(ctx, &team, sql, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "team not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get team")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get team")
	}

	return &team, nil
}

// IsTeamMember reports whether the user belongs to the team
func (r *Repository) IsTeamMember(ctx context.Context, teamID, userID int64) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "DirectoryRepository.IsTeamMember")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(teamMembersTable)
	sb.Where(
		sb.Equal("team_id", teamID),
		sb.Equal("user_id", userID),
	)

	sql, args := sb.Build()

	var count int
	err := r.db.GetContext(ctx, &count, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to check team membership")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check team membership")
	}

	return count > 0, nil
}
