package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/pivotgrid/internal/service"
	"github.com/locvowork/pivotgrid/internal/service/serviceutils"
	"github.com/locvowork/pivotgrid/pkg/pivot"
)

type ReportHandler struct {
	svc service.ReportService
}

func NewReportHandler(svc service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// ListHandler returns the report catalog grouped by category.
func (h *ReportHandler) ListHandler(c echo.Context) error {
	catalog, err := h.svc.Catalog(c.Request().Context())
	if err != nil {
		return serviceutils.ResponseError(c, serviceutils.StatusFor(err), "Failed to list reports", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", catalog)
}

// GetConfigHandler loads the grid configuration of ?path=.
func (h *ReportHandler) GetConfigHandler(c echo.Context) error {
	path := c.QueryParam("path")
	cfg, err := h.svc.LoadConfig(c.Request().Context(), path)
	if err != nil {
		return serviceutils.ResponseError(c, serviceutils.StatusFor(err), "Failed to load report config", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", cfg)
}

// SaveConfigHandler stores the posted grid configuration at ?path=.
func (h *ReportHandler) SaveConfigHandler(c echo.Context) error {
	var cfg pivot.GridConfig
	if err := c.Bind(&cfg); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid report config", err)
	}

	path := c.QueryParam("path")
	if err := h.svc.SaveConfig(c.Request().Context(), path, cfg); err != nil {
		return serviceutils.ResponseError(c, serviceutils.StatusFor(err), "Failed to save report config", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Report saved", cfg)
}

// SearchHandler finds reports whose name or path matches ?q=.
func (h *ReportHandler) SearchHandler(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	found, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return serviceutils.ResponseError(c, serviceutils.StatusFor(err), "Failed to search reports", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", found)
}
