package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"planningwatch/internal/domain"
)

// Parser turns a raw iCal body into normalized events for the configured
// group table.
type Parser struct {
	groups []domain.Group
	log    *slog.Logger
}

func NewParser(groups []domain.Group, log *slog.Logger) *Parser {
	return &Parser{groups: groups, log: log}
}

// Parse normalizes every VEVENT of the calendar body. A malformed body
// returns an error; individual events always normalize thanks to the
// epoch fallbacks.
func (p *Parser) Parse(body []byte, now time.Time) ([]domain.Event, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	vevents := cal.Events()
	events := make([]domain.Event, 0, len(vevents))

	for _, ve := range vevents {
		e := p.normalizeEvent(ve, now)

		if e.Start == "" {
			p.log.Warn("Event has no DTSTART, epoch fell back to fetch time",
				"uid", e.UID,
				"summary", e.Summary)
		}

		events = append(events, e)
	}

	return events, nil
}

func (p *Parser) normalizeEvent(ve *ical.VEvent, now time.Time) domain.Event {
	start := propValue(ve, ical.ComponentPropertyDtStart)
	end := propValue(ve, ical.ComponentPropertyDtEnd)
	description := unescapeText(propValue(ve, ical.ComponentPropertyDescription))
	organizer := organizerValue(ve)

	e := domain.Event{
		UID:         propValue(ve, ical.ComponentPropertyUniqueId),
		Summary:     unescapeText(propValue(ve, ical.ComponentPropertySummary)),
		Location:    unescapeText(propValue(ve, ical.ComponentPropertyLocation)),
		Description: description,
		Organizer:   organizer,
		Start:       start,
		End:         end,
		StartEpoch:  ToEpochSeconds(start, now),
		EndEpoch:    ToEpochSeconds(end, now),
	}

	descGroup, descTeacher := descriptionSection(description)
	e.Teacher = ExtractTeacher(description, organizer, descTeacher)
	e.Group = InferGroup(descGroup, e.Summary, description, e.Location, p.groups)
	e.UpdatedEpoch = ExtractUpdatedEpoch(description)

	if raw := propValue(ve, ical.ComponentPropertyLastModified); raw != "" {
		epoch := ToEpochSeconds(raw, now)
		e.LastModifiedEpoch = &epoch
		e.RecentlyModified = sameUTCDate(time.Unix(epoch, 0), now)
	}

	return e
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if prop := ve.GetProperty(name); prop != nil {
		return strings.TrimSpace(prop.Value)
	}

	return ""
}

// organizerValue rebuilds the organizer as "CN=<name>:<value>" when the
// CN parameter is present, so the teacher heuristics see the same shape
// the feeds historically exposed.
func organizerValue(ve *ical.VEvent) string {
	prop := ve.GetProperty(ical.ComponentPropertyOrganizer)
	if prop == nil {
		return ""
	}

	value := strings.TrimSpace(prop.Value)

	if cns, ok := prop.ICalParameters["CN"]; ok && len(cns) > 0 {
		cn := strings.TrimSpace(cns[0])
		if cn != "" {
			return "CN=" + cn + ":" + value
		}
	}

	return value
}

// unescapeText reverses RFC 5545 TEXT escaping; the description heuristics
// operate on real newlines.
func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	replacer := strings.NewReplacer(
		`\n`, "\n",
		`\N`, "\n",
		`\,`, ",",
		`\;`, ";",
		`\\`, `\`,
	)

	return replacer.Replace(s)
}
