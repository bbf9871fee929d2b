package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/flash"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/studyplan"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

type PlannerController struct {
	cfg      *config.Config
	planners repository.PlannerRepository
	plan     *studyplan.Service
}

func NewPlannerController(d *Dependencies) *PlannerController {
	return &PlannerController{
		cfg:      d.Config,
		planners: d.Planners,
		plan:     d.StudyPlan,
	}
}

type scheduleRequest struct {
	Name      string `json:"name"`
	StudyArea string `json:"studyArea"`
	DateEnds  string `json:"dateEnds"`
	TimeZone  string `json:"timeZone"`
}

// dateEnds accepts RFC3339, a datetime-local value or a plain date (end of that day).
func (r scheduleRequest) dateEnds(loc *time.Location) (*time.Time, error) {
	raw := strings.TrimSpace(r.DateEnds)
	if raw == "" {
		return nil, nil
	}
	if t, err := parseFormTime(raw, loc); err == nil {
		return &t, nil
	}
	d, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return nil, fmt.Errorf("dateEnds %q is not a date", raw)
	}
	end := d.Add(24*time.Hour - time.Minute)
	return &end, nil
}

// Schedule generates a study plan and stores it as a planner.
func (pc *PlannerController) Schedule(c *fiber.Ctx) error {
	var req scheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	loc := location(pc.cfg)
	if req.TimeZone != "" {
		if l, err := time.LoadLocation(req.TimeZone); err == nil {
			loc = l
		}
	}
	ends, err := req.dateEnds(loc)
	if err != nil {
		return badRequest(c, err.Error())
	}

	userID := usercontext.GetUserID(c)
	res, err := pc.plan.Generate(c.UserContext(), userID, studyplan.Request{
		Name:      req.Name,
		StudyArea: req.StudyArea,
		DateEnds:  ends,
		TimeZone:  req.TimeZone,
	})
	if err != nil {
		return apiError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":        fmt.Sprintf("Created %d study sessions", res.Accepted),
		"scheduleEvents": res.Events,
		"usage":          res.Usage,
		"plannerId":      res.Planner.ID,
		"requested":      res.Requested,
		"accepted":       res.Accepted,
	})
}

// Delete removes a planner with all of its events.
func (pc *PlannerController) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return flash.Error(c, "/dashboard", "Unknown planner.")
	}
	userID := usercontext.GetUserID(c)
	if err := pc.planners.DeleteWithEvents(userID, uint(id)); err != nil {
		return formError(c, "/dashboard", err)
	}
	log.Infof("[Planner] user %d deleted planner %d", userID, id)
	return flash.Success(c, "/dashboard", "Planner deleted.")
}
