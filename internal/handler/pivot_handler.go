package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/pivotgrid/internal/domain"
	"github.com/locvowork/pivotgrid/internal/service"
	"github.com/locvowork/pivotgrid/internal/service/serviceutils"
)

type PivotHandler struct {
	svc service.PivotService
}

func NewPivotHandler(svc service.PivotService) *PivotHandler {
	return &PivotHandler{svc: svc}
}

// ViewHandler recomputes the grid and returns the rows of the viewport.
func (h *PivotHandler) ViewHandler(c echo.Context) error {
	var req domain.PivotRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid pivot request", err)
	}

	view, err := h.svc.View(c.Request().Context(), &req)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to compute view", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", view)
}

// MetricHandler adds a calculated metric to the posted configuration.
func (h *PivotHandler) MetricHandler(c echo.Context) error {
	var req domain.MetricRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid metric request", err)
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, serviceutils.GenericResponse{
			Success: false,
			Message: "Metric not added",
			Data:    domain.MetricResult{Committed: false, Config: req.Config},
			Error:   err.Error(),
		})
	}

	res, err := h.svc.CommitMetric(c.Request().Context(), &req)
	if errors.Is(err, service.ErrIncompleteMetric) {
		return c.JSON(http.StatusUnprocessableEntity, serviceutils.GenericResponse{
			Success: false,
			Message: "Metric not added",
			Data:    res,
			Error:   err.Error(),
		})
	}
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to add metric", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Metric added", res)
}

// ExportHandler downloads the current view as a workbook.
func (h *PivotHandler) ExportHandler(c echo.Context) error {
	var req domain.PivotRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid pivot request", err)
	}

	data, name, err := h.svc.Export(c.Request().Context(), &req)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to generate Excel file", err)
	}

	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(data)))
	return serviceutils.Attachment(c, serviceutils.XLSXContentType, name, data)
}
