package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/phishguard/internal/normalize"
)

// IntelligenceSummary handles GET /api/v1/intelligence/summary
func (c *Controller) IntelligenceSummary(ctx echo.Context) error {
	if err := c.intelReady(); err != nil {
		return c.handleServiceError(ctx, err, "threat intelligence is not configured")
	}
	summary, err := c.intel.IntelligenceSummary(ctx.Request().Context())
	if err != nil {
		return c.handleServiceError(ctx, err, "failed to build intelligence summary")
	}
	return ctx.JSON(http.StatusOK, summary)
}

// RecentURLs handles GET /api/v1/intelligence/recent-urls
func (c *Controller) RecentURLs(ctx echo.Context) error {
	if err := c.intelReady(); err != nil {
		return c.handleServiceError(ctx, err, "threat intelligence is not configured")
	}
	limit, err := queryLimit(ctx)
	if err != nil {
		return c.handleServiceError(ctx, err, err.Error())
	}
	urls, err := c.intel.RecentURLs(ctx.Request().Context(), limit)
	if err != nil {
		return c.handleServiceError(ctx, err, "failed to fetch recent URLs")
	}
	return ctx.JSON(http.StatusOK, urls)
}

// RecentPayloads handles GET /api/v1/intelligence/recent-payloads
func (c *Controller) RecentPayloads(ctx echo.Context) error {
	if err := c.intelReady(); err != nil {
		return c.handleServiceError(ctx, err, "threat intelligence is not configured")
	}
	limit, err := queryLimit(ctx)
	if err != nil {
		return c.handleServiceError(ctx, err, err.Error())
	}
	payloads, err := c.intel.RecentPayloads(ctx.Request().Context(), limit)
	if err != nil {
		return c.handleServiceError(ctx, err, "failed to fetch recent payloads")
	}
	return ctx.JSON(http.StatusOK, payloads)
}

// SearchTag handles GET /api/v1/intelligence/tag/:tag
func (c *Controller) SearchTag(ctx echo.Context) error {
	if err := c.intelReady(); err != nil {
		return c.handleServiceError(ctx, err, "threat intelligence is not configured")
	}
	result, err := c.intel.SearchTag(ctx.Request().Context(), ctx.Param("tag"))
	if err != nil {
		return c.handleServiceError(ctx, err, "tag search failed")
	}
	return ctx.JSON(http.StatusOK, result)
}

// QueryHost handles GET /api/v1/intelligence/host/:host
func (c *Controller) QueryHost(ctx echo.Context) error {
	if err := c.intelReady(); err != nil {
		return c.handleServiceError(ctx, err, "threat intelligence is not configured")
	}
	host := normalize.Host(ctx.Param("host"))
	if host == "" {
		return c.HandleError(ctx, nil, "invalid host", http.StatusBadRequest)
	}
	return ctx.JSON(http.StatusOK, c.intel.QueryHost(ctx.Request().Context(), host))
}
