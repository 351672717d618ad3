// Package calendar renders schedules as iCalendar feeds.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/Dosada05/tournament-registry/models"
)

const (
	productID        = "-//tournament-registry//schedule//EN"
	matchDuration    = 2 * time.Hour
	practiceDuration = 90 * time.Minute
	ContentType      = "text/calendar; charset=utf-8"
)

func newCalendar(name string) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetName(name)
	return cal
}

func addMatch(cal *ics.Calendar, m *models.Match, stamp time.Time) {
	e := cal.AddEvent(fmt.Sprintf("match-%s@tournament-registry", m.ID))
	e.SetDtStampTime(stamp)
	e.SetSummary(fmt.Sprintf("%s vs %s", m.TeamA, m.TeamB))
	e.SetStartAt(m.ScheduledAt)
	e.SetEndAt(m.ScheduledAt.Add(matchDuration))
	if m.Venue != "" {
		e.SetLocation(m.Venue)
	}

	var desc []string
	if m.Round != "" {
		desc = append(desc, "Round: "+m.Round)
	}
	desc = append(desc, "Status: "+string(m.Status))
	if m.Status == models.MatchCompleted {
		desc = append(desc, fmt.Sprintf("Result: %s (%s)", m.Score, m.WinnerTeam))
	}
	e.SetDescription(strings.Join(desc, "\n"))

	if m.Status == models.MatchScheduled {
		a := e.AddAlarm()
		a.SetAction(ics.ActionDisplay)
		a.SetDescription(fmt.Sprintf("%s vs %s", m.TeamA, m.TeamB))
		a.SetTrigger("-PT30M")
	}
}

func addPractice(cal *ics.Calendar, p *models.Practice, stamp time.Time) {
	e := cal.AddEvent(fmt.Sprintf("practice-%s@tournament-registry", p.ID))
	e.SetDtStampTime(stamp)
	e.SetSummary("Practice: " + p.TeamName)
	e.SetStartAt(p.ScheduledAt)
	e.SetEndAt(p.ScheduledAt.Add(practiceDuration))
	e.SetLocation(p.Venue)
	if p.Note != "" {
		e.SetDescription(p.Note)
	}
}

// TournamentSchedule renders the matches of t. The registration deadline is
// added as an all-day event.
func TournamentSchedule(t *models.Tournament, matches []*models.Match, stamp time.Time) string {
	cal := newCalendar(t.Title)

	if t.RegistrationDeadline.Valid() {
		e := cal.AddEvent(fmt.Sprintf("deadline-%s@tournament-registry", t.ID))
		e.SetDtStampTime(stamp)
		e.SetSummary("Registration deadline: " + t.Title)
		day := t.RegistrationDeadline.Time(time.UTC)
		e.SetAllDayStartAt(day)
		e.SetAllDayEndAt(day.Add(24 * time.Hour))
		e.SetTimeTransparency(ics.TransparencyTransparent)
	}

	for _, m := range matches {
		addMatch(cal, m, stamp)
	}
	return cal.Serialize()
}

// TeamSchedule renders the practices and matches of team.
func TeamSchedule(team string, practices []*models.Practice, matches []*models.Match, stamp time.Time) string {
	cal := newCalendar(team)
	for _, p := range practices {
		addPractice(cal, p, stamp)
	}
	for _, m := range matches {
		addMatch(cal, m, stamp)
	}
	return cal.Serialize()
}
