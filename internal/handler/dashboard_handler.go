package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"zepto-analytics/internal/model"
	"zepto-analytics/internal/service"
	"zepto-analytics/pkg/logger"
	"zepto-analytics/pkg/validator"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// Register mounts the dashboard routes on r.
func (h *DashboardHandler) Register(r fiber.Router) {
	r.Get("/", h.GetOverview)
	r.Get("/kpis", h.GetKPIs)
	r.Get("/revenue-by-category", h.GetRevenueByCategory)
	r.Get("/discount-by-category", h.GetDiscountByCategory)
	r.Get("/stock-status", h.GetStockStatus)
	r.Get("/price-per-gram", h.GetPricePerGram)
	r.Get("/top-discounts", h.GetTopDiscounts)
	r.Get("/categories", h.GetCategories)
	r.Get("/cache", h.GetCacheInfo)
	r.Post("/cache/invalidate", h.InvalidateCache)
}

// GetOverview returns every card and chart in one response
// Query params: category (repeatable or comma separated), min_weight, bins, n
func (h *DashboardHandler) GetOverview(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return badRequest(c, err)
	}
	overview, err := h.service.Overview(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(overview)
}

// GetKPIs returns total revenue, average discount, out of stock % and top category
func (h *DashboardHandler) GetKPIs(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return badRequest(c, err)
	}
	meta, kpis, err := h.service.KPIs(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"meta": meta, "data": kpis})
}

func (h *DashboardHandler) GetRevenueByCategory(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return badRequest(c, err)
	}
	meta, data, err := h.service.RevenueByCategory(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"meta": meta, "data": data})
}

func (h *DashboardHandler) GetDiscountByCategory(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return badRequest(c, err)
	}
	meta, data, err := h.service.DiscountByCategory(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"meta": meta, "data": data})
}

func (h *DashboardHandler) GetStockStatus(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return badRequest(c, err)
	}
	meta, data, err := h.service.StockStatus(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"meta": meta, "data": data})
}

// GetPricePerGram returns the price per gram values and histogram
// Query params: min_weight (default 100), bins (default 50)
func (h *DashboardHandler) GetPricePerGram(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return badRequest(c, err)
	}
	meta, data, err := h.service.PricePerGram(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"meta": meta, "data": data})
}

// GetTopDiscounts returns the best discounted products
// Query params: n (default 10)
func (h *DashboardHandler) GetTopDiscounts(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return badRequest(c, err)
	}
	meta, data, err := h.service.TopDiscounts(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"meta": meta, "data": data})
}

// GetCategories returns the options for the category filter
func (h *DashboardHandler) GetCategories(c *fiber.Ctx) error {
	meta, data, err := h.service.Categories(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"meta": meta, "data": data})
}

func (h *DashboardHandler) GetCacheInfo(c *fiber.Ctx) error {
	return c.JSON(h.service.CacheInfo())
}

// InvalidateCache drops the cached dataset and loads it again
func (h *DashboardHandler) InvalidateCache(c *fiber.Ctx) error {
	info, err := h.service.Refresh(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Dataset reloaded", "data": info})
}

func parseQuery(c *fiber.Ctx) (service.Query, error) {
	q := service.DefaultQuery()

	for _, raw := range c.Context().QueryArgs().PeekMulti("category") {
		for _, part := range strings.Split(string(raw), ",") {
			if part = strings.TrimSpace(part); part != "" {
				q.Categories = append(q.Categories, part)
			}
		}
	}

	if v := c.Query("min_weight"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, fmt.Errorf("min_weight must be a number")
		}
		q.MinWeightGrams = f
	}
	if v := c.Query("bins"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("bins must be an integer")
		}
		q.Bins = n
	}
	if v := c.Query("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("n must be an integer")
		}
		q.TopN = n
	}

	if errs := validator.ValidateStruct(q); len(errs) > 0 {
		first := errs[0]
		return q, fmt.Errorf("Validation failed: Field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	}
	return q, nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "code": "invalid_request"})
}

// respondError maps load failures onto structured JSON errors.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "internal_error"
	msg := "Failed to compute dashboard data"

	switch {
	case errors.Is(err, model.ErrConnection),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		status, code, msg = fiber.StatusServiceUnavailable, "connection_error", "Data source is unreachable, try again later"
	case errors.Is(err, model.ErrQuery):
		status, code, msg = fiber.StatusBadGateway, "query_error", "Data source query failed"
	case errors.Is(err, model.ErrSchema):
		status, code, msg = fiber.StatusInternalServerError, "schema_error", "Data source schema is not supported"
	}

	logger.Error(c.UserContext()).
		Err(err).
		Str("path", c.Path()).
		Str("code", code).
		Msg("Dashboard request failed")

	return c.Status(status).JSON(fiber.Map{
		"error":     msg,
		"code":      code,
		"retryable": status == fiber.StatusServiceUnavailable,
	})
}
