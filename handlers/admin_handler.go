package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/unlistedhub/unlisted-backend/jobs"
)

// AdminHandler exposes operational endpoints.
type AdminHandler struct {
	Job *jobs.IngestJob
}

func NewAdminHandler(job *jobs.IngestJob) *AdminHandler {
	return &AdminHandler{Job: job}
}

// TriggerIngest handles POST /api/admin/ingest by kicking off an ingestion
// run in the background.
func (h *AdminHandler) TriggerIngest(c *fiber.Ctx) error {
	logrus.Info("Manual ingestion run triggered")
	go h.Job.Run()

	return c.JSON(fiber.Map{
		"success": true,
		"message": "ingestion run started",
	})
}
