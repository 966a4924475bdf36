// Package draft holds the event creation form: field assignment, the
// derived event URL, date range selection and the submitted snapshot.
package draft

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gooze-fr/event-planner/internal/model"
)

// DefaultDomain prefixes every derived event URL.
const DefaultDomain = "www.gooze.fr"

// Display layouts, matching moment's "LL" and "LT".
const (
	DateLayout = "January 2, 2006"
	TimeLayout = "3:04 PM"
)

// Input layouts accepted from HTML date and time controls.
const (
	isoDateLayout = "2006-01-02"
	isoTimeLayout = "15:04"
)

// Field names accepted by SetField. They match the payload keys.
const (
	FieldEventName        = "eventName"
	FieldOrganizers       = "organizers"
	FieldEventDescription = "eventDescription"
	FieldEventCategory    = "eventCategory"
	FieldEventStartDate   = "eventStartDate"
	FieldEventEndDate     = "eventEndDate"
	FieldStartTime        = "startTime"
	FieldEndTime          = "endTime"
	FieldIsPublic         = "isPublic"
	FieldAddress          = "address"
	FieldEventURL         = "eventUrl"
)

var (
	// ErrUnknownField is returned by SetField for a name that is not a form field.
	ErrUnknownField = errors.New("unknown field")
	// ErrReadOnlyField is returned when setting the derived event URL.
	ErrReadOnlyField = errors.New("field is derived and cannot be set")
	// ErrInvalidCategory is returned for a category outside the fixed set.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidValue is returned when a date, time or flag does not parse.
	ErrInvalidValue = errors.New("invalid value")
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)

// isSlugSpace matches Unicode white space, including no-break spaces and
// the byte order mark.
func isSlugSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// DeriveURL builds the event link for name. The result depends on name
// alone: trimmed, lower-cased, whitespace runs turned into single hyphens
// and anything outside [a-z0-9-] dropped.
func DeriveURL(domain, name string) string {
	slug := strings.Join(strings.FieldsFunc(strings.ToLower(name), isSlugSpace), "-")
	slug = nonSlugChars.ReplaceAllString(slug, "")
	return domain + "/" + slug
}

// SelectDateRange applies the date picker rules. A lone start clears the
// end so a new range can be picked; an end before the start collapses the
// range onto the start day. A nil start clears the whole range.
func SelectDateRange(start, end *time.Time) (*time.Time, *time.Time) {
	if start == nil {
		return nil, nil
	}
	if end == nil {
		return start, nil
	}
	if start.After(*end) {
		s := *start
		return start, &s
	}
	return start, end
}

// Form is an event being edited on the creation page. The zero value is not
// ready for use; call NewForm.
type Form struct {
	domain string

	name        string
	organizers  string
	description string
	category    model.Category
	startDate   *time.Time
	endDate     *time.Time
	startTime   *time.Time
	endTime     *time.Time
	isPublic    bool
	address     string
	url         string
}

// NewForm returns an empty public form whose links use domain.
func NewForm(domain string) *Form {
	if domain == "" {
		domain = DefaultDomain
	}
	return &Form{
		domain:   domain,
		isPublic: true,
		url:      DeriveURL(domain, ""),
	}
}

// URL returns the current derived event link.
func (f *Form) URL() string {
	return f.url
}

// SetField assigns one form field from its textual value. An empty value
// clears optional dates and times. On error the form is left unchanged.
func (f *Form) SetField(name, value string) error {
	switch name {
	case FieldEventName:
		f.name = value
		f.url = DeriveURL(f.domain, value)
	case FieldOrganizers:
		f.organizers = value
	case FieldEventDescription:
		f.description = value
	case FieldEventCategory:
		c := model.Category(strings.ToLower(strings.TrimSpace(value)))
		if c != "" && !c.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidCategory, value)
		}
		f.category = c
	case FieldEventStartDate, FieldEventEndDate:
		d, err := parseOptional(value, isoDateLayout, DateLayout, time.RFC3339)
		if err != nil {
			return fmt.Errorf("%w: %s %q", ErrInvalidValue, name, value)
		}
		if name == FieldEventStartDate {
			f.startDate = d
		} else {
			f.endDate = d
		}
	case FieldStartTime, FieldEndTime:
		t, err := parseOptional(value, isoTimeLayout, TimeLayout, time.RFC3339)
		if err != nil {
			return fmt.Errorf("%w: %s %q", ErrInvalidValue, name, value)
		}
		if name == FieldStartTime {
			f.startTime = t
		} else {
			f.endTime = t
		}
	case FieldIsPublic:
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s %q", ErrInvalidValue, name, value)
		}
		f.isPublic = b
	case FieldAddress:
		f.address = value
	case FieldEventURL:
		return ErrReadOnlyField
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// SelectDateRange sets the date range using the picker rules.
func (f *Form) SelectDateRange(start, end *time.Time) {
	f.startDate, f.endDate = SelectDateRange(start, end)
}

// DateRange returns the selected start and end dates. Either may be nil.
func (f *Form) DateRange() (*time.Time, *time.Time) {
	return f.startDate, f.endDate
}

// Submit returns the snapshot handed to the summary page.
func (f *Form) Submit() model.EventDraft {
	return model.EventDraft{
		EventName:        f.name,
		Organizers:       f.organizers,
		EventDescription: f.description,
		EventCategory:    string(f.category),
		EventStartDate:   format(f.startDate, DateLayout),
		EventEndDate:     format(f.endDate, DateLayout),
		StartTime:        format(f.startTime, TimeLayout),
		EndTime:          format(f.endTime, TimeLayout),
		IsPublic:         f.isPublic,
		Address:          f.address,
		EventURL:         f.url,
	}
}

func format(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}

func parseOptional(value string, layouts ...string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := parseAny(value, layouts...)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseAny(value string, layouts ...string) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// parseBool also accepts "on", the value browsers send for a checked box.
func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on":
		return true, nil
	case "", "off":
		return false, nil
	}
	return strconv.ParseBool(value)
}
