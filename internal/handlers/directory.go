package handlers

import (
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/civicpulse/civicpulse/internal/repositories/directory"
)

// DirectoryHandler exposes the department and category directories
type DirectoryHandler struct {
	directory directory.DirectoryRepository
	logger    ectologger.Logger
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(dir directory.DirectoryRepository, logger ectologger.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		directory: dir,
		logger:    logger,
	}
}

// RegisterRoutes registers directory routes
func (h *DirectoryHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/departments", h.ListDepartments)
	g.GET("/categories", h.ListCategories)
}

// ListDepartments returns all active departments
func (h *DirectoryHandler) ListDepartments(c echo.Context) error {
	departments, err := h.directory.ListDepartments(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, departments)
}

// ListCategories returns all active categories
func (h *DirectoryHandler) ListCategories(c echo.Context) error {
	categories, err := h.directory.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}
