package studyplan

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/biblestudybuddy/studybuddy/app/models"
)

const localFormat = "2006-01-02T15:04:05"

const systemPrompt = "You plan Bible study sessions around an existing calendar. " +
	"Answer with JSON only."

type promptInput struct {
	Name      string
	StudyArea string
	Now       time.Time
	Until     time.Time
	Prefs     *models.SchedulePrefs
	Busy      []busySlot
}

type promptEvent struct {
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func buildPrompt(in promptInput) string {
	loc := in.Now.Location()
	var b strings.Builder

	fmt.Fprintf(&b, "Today is %s, %s (time zone %s).\n",
		in.Now.Weekday(), in.Now.Format(localFormat), loc.String())
	fmt.Fprintf(&b, "Create a study plan named %q with sessions between now and %s.\n",
		in.Name, in.Until.In(loc).Format(localFormat))
	if area := strings.TrimSpace(in.StudyArea); area != "" {
		fmt.Fprintf(&b, "The study should focus on: %s.\n", area)
	}
	fmt.Fprintf(&b, "Each session lasts %d minutes.\n", int(in.Prefs.SessionLength()/time.Minute))
	fmt.Fprintf(&b, "Keep at least %d minutes between a session and any existing event, and never let sessions overlap each other.\n",
		int(Buffer/time.Minute))

	if p := in.Prefs; p != nil {
		if p.EarliestAwake != nil && *p.EarliestAwake != "" {
			fmt.Fprintf(&b, "No session may start before %s.\n", *p.EarliestAwake)
		}
		if p.LatestAsleep != nil && *p.LatestAsleep != "" {
			fmt.Fprintf(&b, "Every session must end by %s.\n", *p.LatestAsleep)
		}
		if p.Busyness != "" {
			fmt.Fprintf(&b, "The user describes their week as %s.\n", models.BusynessLabel(p.Busyness))
		}
		if len(p.LeastBusyDays) > 0 {
			fmt.Fprintf(&b, "Their least busy days are %s.\n", strings.Join(p.LeastBusyDays, ", "))
		}
		if p.MorningPerson {
			b.WriteString("They are a morning person and prefer studying early.\n")
		} else {
			b.WriteString("They prefer studying later in the day.\n")
		}
		if info := strings.TrimSpace(p.OtherInfo); info != "" {
			fmt.Fprintf(&b, "Other things to consider: %s\n", info)
		}
	}

	events := make([]promptEvent, 0, len(in.Busy))
	for _, e := range in.Busy {
		events = append(events, promptEvent{
			Title: e.Title,
			Start: e.Start.In(loc).Format(localFormat),
			End:   e.End.In(loc).Format(localFormat),
		})
	}
	raw, _ := json.Marshal(events)
	fmt.Fprintf(&b, "Existing events (local time): %s\n", raw)

	b.WriteString("Respond with a JSON object of the form " +
		`{"schedule":[{"title":"...","description":"...","start":"YYYY-MM-DDTHH:MM:SS","end":""}]}` +
		". Use local time for start and leave end as an empty string.\n")
	return b.String()
}
