package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"planningwatch/internal/domain"
)

const emptyFieldSentinel = "—"

// Descriptor is the platform-neutral rendering of one timetable change.
// The chat-platform collaborator converts it to its own message shape.
type Descriptor struct {
	Title       string
	Color       int
	Link        string
	Fields      []Field
	FooterLabel string
	Timestamp   time.Time
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Renderer builds change descriptors. baseURL points at the public
// planning site used for deep links.
type Renderer struct {
	baseURL string
}

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/")}
}

// Render produces the visual template for the change. eventGroup is the
// group label shown in the descriptor (the event's own inferred group
// when set, the owning group's name otherwise); owningGroup drives the
// deep link.
func (r *Renderer) Render(change domain.Change, eventGroup string, owningGroup domain.Group) *Descriptor {
	d := &Descriptor{
		Color: changeColor(change.Type),
		Link:  r.deepLink(change.Source(), owningGroup),
	}

	switch change.Type {
	case domain.ChangeAdded:
		d.Title = "Nouveau cours : " + change.New.Summary
		d.FooterLabel = "Ajouté le"
		d.Fields = plainFields(change.New, eventGroup)

	case domain.ChangeRemoved:
		d.Title = "Cours supprimé : " + change.Old.Summary
		d.FooterLabel = "Supprimé le"
		d.Fields = plainFields(change.Old, eventGroup)

	case domain.ChangeModified:
		d.Title = "Cours modifié : " + change.New.Summary
		d.FooterLabel = "Modifié le"
		d.Fields = modifiedFields(change.Old, change.New, eventGroup)

	case domain.ChangeLocation:
		d.Title = "Changement de salle : " + change.New.Summary
		d.FooterLabel = "Modifié le"
		d.Fields = locationFields(change.Old, change.New, eventGroup)
	}

	d.Timestamp = footerTimestamp(change.Old, change.New, time.Now())

	return d
}

func changeColor(t domain.ChangeType) int {
	switch t {
	case domain.ChangeAdded:
		return 0x2ecc71
	case domain.ChangeRemoved:
		return 0xe74c3c
	case domain.ChangeModified:
		return 0xf39c12
	case domain.ChangeLocation:
		return 0x3498db
	default:
		return 0x95a5a6
	}
}

func plainFields(e *domain.Event, eventGroup string) []Field {
	return []Field{
		{Name: "Enseignant", Value: orSentinel(e.Teacher)},
		{Name: "Salle de cours", Value: orSentinel(e.Location), Inline: true},
		{Name: "Groupe", Value: displayGroup(eventGroup), Inline: true},
		{Name: "Date du cours", Value: formatDate(e.StartEpoch)},
		{Name: "Début du cours", Value: formatTime(e.StartEpoch), Inline: true},
		{Name: "Fin du cours", Value: formatTime(e.EndEpoch), Inline: true},
	}
}

func modifiedFields(oldEvt, newEvt *domain.Event, eventGroup string) []Field {
	groupValue := emptyFieldSentinel
	if isDisplayableGroup(oldEvt.Group) || isDisplayableGroup(newEvt.Group) {
		groupValue = sideBySideText(oldEvt.Group, newEvt.Group)
	} else if isDisplayableGroup(eventGroup) {
		groupValue = eventGroup
	}

	return []Field{
		{Name: "Enseignant", Value: sideBySideText(oldEvt.Teacher, newEvt.Teacher)},
		{Name: "Salle de cours", Value: sideBySideText(oldEvt.Location, newEvt.Location), Inline: true},
		{Name: "Groupe", Value: groupValue, Inline: true},
		{Name: "Date du cours", Value: sideBySideDate(oldEvt.StartEpoch, newEvt.StartEpoch)},
		{Name: "Début du cours", Value: sideBySideTime(oldEvt.StartEpoch, newEvt.StartEpoch), Inline: true},
		{Name: "Fin du cours", Value: sideBySideTime(oldEvt.EndEpoch, newEvt.EndEpoch), Inline: true},
	}
}

func locationFields(oldEvt, newEvt *domain.Event, eventGroup string) []Field {
	fields := plainFields(newEvt, eventGroup)
	fields[1].Value = sideBySideText(oldEvt.Location, newEvt.Location)

	return fields
}

// sideBySideText renders "old struck through, then new" when the value
// changed, the single value otherwise, and the sentinel when both sides
// are absent.
func sideBySideText(oldVal, newVal string) string {
	o := normalizeEmpty(oldVal)
	n := normalizeEmpty(newVal)

	switch {
	case o == "" && n == "":
		return emptyFieldSentinel
	case o == "":
		return n
	case o != n:
		if n == "" {
			n = emptyFieldSentinel
		}
		return "~~" + o + "~~ " + n
	default:
		return n
	}
}

// sideBySideDate collapses to a single date marker when both epochs fall
// on the same UTC day.
func sideBySideDate(oldEpoch, newEpoch int64) string {
	if sameUTCDay(oldEpoch, newEpoch) || oldEpoch == 0 {
		return formatDate(newEpoch)
	}

	return "~~" + formatDate(oldEpoch) + "~~ " + formatDate(newEpoch)
}

func sideBySideTime(oldEpoch, newEpoch int64) string {
	if oldEpoch == newEpoch || oldEpoch == 0 {
		return formatTime(newEpoch)
	}

	return "~~" + formatTime(oldEpoch) + "~~ " + formatTime(newEpoch)
}

// formatDate and formatTime emit Discord dynamic timestamp markers so the
// client renders them in the viewer's timezone.
func formatDate(epoch int64) string {
	return fmt.Sprintf("<t:%d:d>", epoch)
}

func formatTime(epoch int64) string {
	return fmt.Sprintf("<t:%d:t>", epoch)
}

func sameUTCDay(a, b int64) bool {
	ay, am, ad := time.Unix(a, 0).UTC().Date()
	by, bm, bd := time.Unix(b, 0).UTC().Date()

	return ay == by && am == bm && ad == bd
}

func normalizeEmpty(v string) string {
	v = strings.TrimSpace(v)
	if v == emptyFieldSentinel {
		return ""
	}

	return v
}

func orSentinel(v string) string {
	if normalizeEmpty(v) == "" {
		return emptyFieldSentinel
	}

	return v
}

// displayGroup shows only labels that look like group codes (TP/CM style,
// starting with T or C); anything else renders as the sentinel.
func displayGroup(g string) string {
	if isDisplayableGroup(g) {
		return g
	}

	return emptyFieldSentinel
}

func isDisplayableGroup(g string) bool {
	return strings.HasPrefix(g, "T") || strings.HasPrefix(g, "C")
}

// deepLink addresses the event on the public planning site:
// group identifier, ISO week of the event date, event uid.
func (r *Renderer) deepLink(e *domain.Event, owningGroup domain.Group) string {
	year, tp := GroupNumbers(owningGroup.Name)

	week := 0
	if e != nil {
		_, week = time.Unix(e.StartEpoch, 0).UTC().ISOWeek()
	}

	uid := ""
	if e != nil {
		uid = url.QueryEscape(e.UID)
	}

	return fmt.Sprintf("%s/?group=%s:%s&week=%d&class=%s", r.baseURL, year, tp, week, uid)
}

// footerTimestamp picks the most specific known modification instant:
// the feed's last-modified, then the free-text updated marker, then now.
func footerTimestamp(oldEvt, newEvt *domain.Event, now time.Time) time.Time {
	if epoch := pickEpoch(oldEvt, newEvt, func(e *domain.Event) *int64 { return e.LastModifiedEpoch }); epoch != nil {
		return time.Unix(*epoch, 0).UTC()
	}

	if epoch := pickEpoch(oldEvt, newEvt, func(e *domain.Event) *int64 { return e.UpdatedEpoch }); epoch != nil {
		return time.Unix(*epoch, 0).UTC()
	}

	return now
}

func pickEpoch(oldEvt, newEvt *domain.Event, get func(*domain.Event) *int64) *int64 {
	if newEvt != nil {
		if v := get(newEvt); v != nil {
			return v
		}
	}

	if oldEvt != nil {
		if v := get(oldEvt); v != nil {
			return v
		}
	}

	return nil
}
