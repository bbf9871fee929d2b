package studyplan

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Buffer is the gap kept between a study session and any existing event.
const Buffer = 15 * time.Minute

// localLayouts are the start formats accepted from the model. Anything
// without an offset is read in the user's zone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseStart(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized start %q", s)
}

// normalizeYear moves start into the current year. A date that would then
// lie in the past is moved to next year when that still ends before until.
// ok is false when the calendar day does not exist in the target year (Feb 29).
func normalizeYear(start, now, until time.Time) (time.Time, bool) {
	year := now.In(start.Location()).Year()
	t, ok := inYear(start, year)
	if !ok {
		return time.Time{}, false
	}
	if t.Before(now) {
		if next, ok := inYear(start, year+1); ok && !next.After(until) {
			return next, true
		}
	}
	return t, true
}

func inYear(start time.Time, year int) (time.Time, bool) {
	t := time.Date(year, start.Month(), start.Day(), start.Hour(), start.Minute(), start.Second(), 0, start.Location())
	return t, t.Month() == start.Month() && t.Day() == start.Day()
}

// busySlot is an existing event the sessions must keep clear of.
type busySlot struct {
	Title string
	Start time.Time
	End   time.Time
}

// dayBounds is the earliest_awake..latest_asleep range in minutes since
// midnight. A bound of -1 is unset; latest < earliest wraps past midnight.
type dayBounds struct {
	earliest int
	latest   int
}

func parseClock(s *string) int {
	if s == nil || *s == "" {
		return -1
	}
	t, err := time.Parse("15:04", *s)
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}

func (b dayBounds) contains(start time.Time, length time.Duration) bool {
	s := start.Hour()*60 + start.Minute()
	e := s + int((length+time.Minute-1)/time.Minute)

	switch {
	case b.earliest < 0 && b.latest < 0:
		return true
	case b.latest < 0:
		return s >= b.earliest && e <= 24*60
	case b.earliest < 0:
		return e <= b.latest
	case b.earliest <= b.latest:
		return s >= b.earliest && e <= b.latest
	default:
		return (s >= b.earliest && e <= b.latest+24*60) || e <= b.latest
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// window holds everything a proposed session is checked against.
type window struct {
	now    time.Time
	until  time.Time
	loc    *time.Location
	length time.Duration
	bounds dayBounds
	busy   []busySlot
	// title replaces an empty session title
	title  string
}

// materialize turns model output into sessions with computed end times.
// Entries with an unreadable start, or a day missing from the target year, are skipped.
func (w window) materialize(proposed []proposedSession) []Session {
	out := make([]Session, 0, len(proposed))
	for _, p := range proposed {
		start, err := parseStart(p.Start, w.loc)
		if err != nil {
			continue
		}
		start, ok := normalizeYear(start, w.now, w.until)
		if !ok {
			continue
		}
		title := strings.TrimSpace(p.Title)
		if title == "" {
			title = w.title
		}
		out = append(out, Session{
			Title:       title,
			Description: strings.TrimSpace(p.Description),
			Start:       start,
			End:         start.Add(w.length),
		})
	}
	return out
}

// verify keeps the sessions that lie inside the window and the day bounds
// and clear existing events by Buffer. Sessions are taken in start order,
// so of two overlapping sessions the earlier one wins.
func (w window) verify(sessions []Session) []Session {
	sorted := append([]Session(nil), sessions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	accepted := make([]Session, 0, len(sorted))
	for _, s := range sorted {
		if s.Start.Before(w.now) || s.End.After(w.until) {
			continue
		}
		if !w.bounds.contains(s.Start.In(w.loc), w.length) {
			continue
		}
		if w.conflictsWithBusy(s) {
			continue
		}
		if conflictsWithAccepted(s, accepted) {
			continue
		}
		accepted = append(accepted, s)
	}
	return accepted
}

func (w window) conflictsWithBusy(s Session) bool {
	for _, b := range w.busy {
		if overlaps(s.Start, s.End, b.Start.Add(-Buffer), b.End.Add(Buffer)) {
			return true
		}
	}
	return false
}

func conflictsWithAccepted(s Session, accepted []Session) bool {
	for _, a := range accepted {
		if overlaps(s.Start, s.End, a.Start, a.End) {
			return true
		}
	}
	return false
}
