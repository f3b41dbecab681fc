package api

import (
	"time"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/config"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/ledger"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	cfg    *config.Config
	ledger *ledger.Ledger
}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler(cfg *config.Config, l *ledger.Ledger) *HealthHandler {
	return &HealthHandler{cfg: cfg, ledger: l}
}

// HealthCheck reports liveness plus the state of the budget gates, so a
// single probe tells an operator whether the assistant is serving or
// paused.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	withinQueries, queries := h.ledger.WithinDailyLimit(h.cfg.Limits.DailyQueryLimit)
	withinBudget, cost := h.ledger.WithinMonthlyBudget(h.cfg.Limits.MonthlyBudgetUSD)

	status := "healthy"
	statusCode := fiber.StatusOK
	if !withinQueries || !withinBudget {
		status = "paused"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"daily_queries": fiber.Map{
				"used":  queries,
				"limit": h.cfg.Limits.DailyQueryLimit,
				"ok":    withinQueries,
			},
			"monthly_budget": fiber.Map{
				"spent_usd":  cost,
				"budget_usd": h.cfg.Limits.MonthlyBudgetUSD,
				"ok":         withinBudget,
			},
		},
	})
}
