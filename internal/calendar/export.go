// Package calendar exports submitted events as iCalendar files.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/gooze-fr/event-planner/internal/draft"
	"github.com/gooze-fr/event-planner/internal/model"
)

const productID = "-//gooze.fr//event planner//EN"

// ErrNoStartDate is returned for drafts without a start date.
var ErrNoStartDate = errors.New("event has no start date")

// Export renders d as a single-event calendar. Dates and times are read
// from their display strings and interpreted in loc. Without a start time
// the event is all-day.
func Export(d model.EventDraft, loc *time.Location, now time.Time) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	if strings.TrimSpace(d.EventStartDate) == "" {
		return "", ErrNoStartDate
	}
	startDay, err := time.ParseInLocation(draft.DateLayout, d.EventStartDate, loc)
	if err != nil {
		return "", fmt.Errorf("parse start date: %w", err)
	}
	endDay := startDay
	if d.EventEndDate != "" {
		if endDay, err = time.ParseInLocation(draft.DateLayout, d.EventEndDate, loc); err != nil {
			return "", fmt.Errorf("parse end date: %w", err)
		}
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	ev := cal.AddEvent(eventUID(d))
	ev.SetDtStampTime(now.UTC())
	ev.SetCreatedTime(now.UTC())
	ev.SetSummary(d.EventName)
	if desc := description(d); desc != "" {
		ev.SetDescription(desc)
	}
	if d.Address != "" {
		ev.SetLocation(d.Address)
	}
	if d.EventURL != "" {
		ev.SetURL("https://" + d.EventURL)
	}
	if d.EventCategory != "" {
		ev.SetProperty(ical.ComponentPropertyCategories, strings.ToUpper(d.EventCategory))
	}
	class := "PRIVATE"
	if d.IsPublic {
		class = "PUBLIC"
	}
	ev.SetProperty(ical.ComponentPropertyClass, class)

	if d.StartTime == "" {
		ev.SetAllDayStartAt(startDay)
		// DTEND is exclusive for all-day events.
		ev.SetAllDayEndAt(endDay.AddDate(0, 0, 1))
		return cal.Serialize(), nil
	}

	start, err := at(startDay, d.StartTime)
	if err != nil {
		return "", fmt.Errorf("parse start time: %w", err)
	}
	end := start.Add(time.Hour)
	if d.EndTime != "" {
		t, err := at(endDay, d.EndTime)
		if err != nil {
			return "", fmt.Errorf("parse end time: %w", err)
		}
		if t.After(start) {
			end = t
		}
	}
	ev.SetStartAt(start)
	ev.SetEndAt(end)
	return cal.Serialize(), nil
}

// eventUID is stable for the same link and start date so re-importing
// updates the calendar entry instead of duplicating it.
func eventUID(d model.EventDraft) string {
	seed := d.EventURL + "|" + d.EventStartDate
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String() + "@gooze.fr"
}

func at(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(draft.TimeLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

func description(d model.EventDraft) string {
	var parts []string
	if d.EventDescription != "" {
		parts = append(parts, d.EventDescription)
	}
	if d.Organizers != "" {
		parts = append(parts, "Organizers: "+d.Organizers)
	}
	return strings.Join(parts, "\n\n")
}
