package draft

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gooze-fr/event-planner/internal/model"
)

// Encode serialises a draft into the eventInfo query value.
func Encode(d model.EventDraft) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses an eventInfo query value. A missing or malformed payload
// yields an empty public draft; it is never an error for the summary page.
// Dates and times sent in ISO form are rewritten to the display layouts.
func Decode(payload string) (model.EventDraft, bool) {
	d := model.EventDraft{IsPublic: true}
	if strings.TrimSpace(payload) == "" {
		return d, false
	}
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return model.EventDraft{IsPublic: true}, false
	}

	d.EventStartDate = normalize(d.EventStartDate, DateLayout, DateLayout, isoDateLayout, time.RFC3339)
	d.EventEndDate = normalize(d.EventEndDate, DateLayout, DateLayout, isoDateLayout, time.RFC3339)
	d.StartTime = normalize(d.StartTime, TimeLayout, TimeLayout, isoTimeLayout, time.RFC3339)
	d.EndTime = normalize(d.EndTime, TimeLayout, TimeLayout, isoTimeLayout, time.RFC3339)
	return d, true
}

// normalize reformats value when one of the layouts parses it and keeps it
// untouched otherwise.
func normalize(value, display string, layouts ...string) string {
	if value == "" {
		return ""
	}
	t, err := parseAny(value, layouts...)
	if err != nil {
		return value
	}
	return t.Format(display)
}
