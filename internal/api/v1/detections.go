package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/phishguard/internal/detector"
	"github.com/tphakala/phishguard/internal/normalize"
)

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// ReportRequest is the body of POST /api/v1/report.
type ReportRequest struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	UserID      string `json:"user_id,omitempty"`
}

// TipsResponse is the body of GET /api/v1/tips.
type TipsResponse struct {
	Tips []string `json:"tips"`
}

func validateURLField(raw string) (string, bool, string) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "", false, "url is required"
	case len(raw) > maxURLLength:
		return "", false, "url is too long"
	}
	return raw, true, ""
}

// Analyze handles POST /api/v1/analyze
func (c *Controller) Analyze(ctx echo.Context) error {
	var req AnalyzeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	raw, ok, msg := validateURLField(req.URL)
	if !ok {
		return c.HandleError(ctx, nil, msg, http.StatusBadRequest)
	}
	return ctx.JSON(http.StatusOK, c.analyzer.Analyze(ctx.Request().Context(), raw))
}

// Report handles POST /api/v1/report
func (c *Controller) Report(ctx echo.Context) error {
	var req ReportRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	raw, ok, msg := validateURLField(req.URL)
	if !ok {
		return c.HandleError(ctx, nil, msg, http.StatusBadRequest)
	}

	if normalize.Host(raw) == "" {
		return c.HandleError(ctx, nil, "url has no valid host", http.StatusBadRequest)
	}

	result := c.analyzer.Report(ctx.Request().Context(), raw, req.Description, req.UserID)
	if !result.Success {
		return ctx.JSON(http.StatusInternalServerError, result)
	}
	return ctx.JSON(http.StatusCreated, result)
}

// Tips handles GET /api/v1/tips
func (c *Controller) Tips(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, TipsResponse{Tips: detector.SafetyTips()})
}

// Stats handles GET /api/v1/stats and GET /api/v1/database/stats
func (c *Controller) Stats(ctx echo.Context) error {
	stats, err := c.analyzer.Stats(ctx.Request().Context())
	if err != nil {
		return c.handleServiceError(ctx, err, "failed to read statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// PendingReports handles GET /api/v1/reports
func (c *Controller) PendingReports(ctx echo.Context) error {
	limit, err := queryLimit(ctx)
	if err != nil {
		return c.handleServiceError(ctx, err, err.Error())
	}
	reports, err := c.store.PendingReports(ctx.Request().Context(), limit)
	if err != nil {
		return c.handleServiceError(ctx, err, "failed to list reports")
	}
	return ctx.JSON(http.StatusOK, reports)
}

// DetectionStatus handles GET /api/v1/detection-status
func (c *Controller) DetectionStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.analyzer.DetectionStatus())
}

// SearchDatabase handles GET /api/v1/database/search
func (c *Controller) SearchDatabase(ctx echo.Context) error {
	limit, err := queryLimit(ctx)
	if err != nil {
		return c.handleServiceError(ctx, err, err.Error())
	}
	records, err := c.analyzer.SearchByDomain(ctx.Request().Context(), ctx.QueryParam("domain"), limit)
	if err != nil {
		return c.handleServiceError(ctx, err, "search failed")
	}
	return ctx.JSON(http.StatusOK, records)
}
