package api

import (
	"time"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/ledger"

	"github.com/gofiber/fiber/v2"
)

// StatsHandler exposes usage and cost aggregates from the ledger.
type StatsHandler struct {
	ledger *ledger.Ledger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(l *ledger.Ledger) *StatsHandler {
	return &StatsHandler{ledger: l}
}

// RegisterRoutes mounts the stats endpoints under basePath.
func (h *StatsHandler) RegisterRoutes(app *fiber.App, basePath string) {
	group := app.Group(basePath)
	group.Get("/daily", h.GetDailyStats)
	group.Get("/monthly", h.GetMonthlyStats)
	group.Get("/reports/daily", h.GetDailyReport)
	group.Get("/reports/monthly", h.GetMonthlyReport)
}

// GetDailyStats returns aggregates for one UTC day (?date=YYYY-MM-DD,
// defaulting to today).
func (h *StatsHandler) GetDailyStats(c *fiber.Ctx) error {
	date, err := parseDateQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid date format, expected YYYY-MM-DD",
		})
	}
	return c.JSON(h.ledger.DailyStats(date))
}

// GetMonthlyStats returns aggregates for one UTC month (?month=YYYY-MM,
// defaulting to this month).
func (h *StatsHandler) GetMonthlyStats(c *fiber.Ctx) error {
	year, month, err := parseMonthQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid month format, expected YYYY-MM",
		})
	}
	return c.JSON(h.ledger.MonthlyStats(year, month))
}

// GetDailyReport returns the plain-text daily report.
func (h *StatsHandler) GetDailyReport(c *fiber.Ctx) error {
	date, err := parseDateQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid date format, expected YYYY-MM-DD",
		})
	}
	return c.SendString(h.ledger.DailyReport(date))
}

// GetMonthlyReport returns the plain-text monthly report.
func (h *StatsHandler) GetMonthlyReport(c *fiber.Ctx) error {
	year, month, err := parseMonthQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid month format, expected YYYY-MM",
		})
	}
	return c.SendString(h.ledger.MonthlyReport(year, month))
}

func parseDateQuery(c *fiber.Ctx) (time.Time, error) {
	dateStr := c.Query("date")
	if dateStr == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", dateStr)
}

func parseMonthQuery(c *fiber.Ctx) (int, time.Month, error) {
	monthStr := c.Query("month")
	if monthStr == "" {
		now := time.Now().UTC()
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", monthStr)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}
