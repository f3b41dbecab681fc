package api

import (
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/store"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// StoreHandler exposes knowledge-base administration over HTTP.
type StoreHandler struct {
	store *store.Service
}

// NewStoreHandler creates a new store handler.
func NewStoreHandler(s *store.Service) *StoreHandler {
	return &StoreHandler{store: s}
}

// RegisterRoutes mounts the store endpoints under basePath.
func (h *StoreHandler) RegisterRoutes(app *fiber.App, basePath string) {
	group := app.Group(basePath)
	group.Get("/status", h.GetStatus)
	group.Get("/documents", h.ListDocuments)
	group.Post("/sync", h.Sync)
}

// GetStatus compares the local knowledge directory with the remote store.
func (h *StoreHandler) GetStatus(c *fiber.Ctx) error {
	status, err := h.store.Status(c.UserContext())
	if err != nil {
		fiberlog.Errorf("api: store status failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to query store status",
		})
	}
	return c.JSON(status)
}

// ListDocuments enumerates the indexed documents.
func (h *StoreHandler) ListDocuments(c *fiber.Ctx) error {
	docs, err := h.store.ListDocuments(c.UserContext())
	if err != nil {
		fiberlog.Errorf("api: document listing failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}
	return c.JSON(fiber.Map{"documents": docs})
}

// Sync uploads local knowledge files the store does not index yet.
func (h *StoreHandler) Sync(c *fiber.Ctx) error {
	result, err := h.store.EnsureSynced(c.UserContext())
	if err != nil {
		fiberlog.Errorf("api: store sync failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to sync store",
		})
	}
	return c.JSON(result)
}
