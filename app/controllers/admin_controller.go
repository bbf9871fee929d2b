package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/jobqueue"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/statistics"
)

type AdminController struct {
	queue *jobqueue.Queue
	stats *statistics.Service
}

func NewAdminController(d *Dependencies) *AdminController {
	return &AdminController{queue: d.Queue, stats: d.Stats}
}

// Stats returns the cached site summary. ?refresh=1 recomputes it.
func (ac *AdminController) Stats(c *fiber.Ctx) error {
	get := ac.stats.Get
	if c.Query("refresh") == "1" {
		get = ac.stats.Refresh
	}
	data, err := get(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(data)
}

// JobStats reports the job queue counters and list sizes.
func (ac *AdminController) JobStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	stats, err := ac.queue.GetJobStats(ctx)
	if err != nil {
		return apiError(c, err)
	}
	pending, err := ac.queue.GetQueueSize(ctx)
	if err != nil {
		return apiError(c, err)
	}
	processing, err := ac.queue.GetProcessingSize(ctx)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{
		"stats":      stats,
		"pending":    pending,
		"processing": processing,
	})
}

// Job returns one job by id.
func (ac *AdminController) Job(c *fiber.Ctx) error {
	job, err := ac.queue.GetJob(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "job not found"})
	}
	return c.JSON(job)
}
