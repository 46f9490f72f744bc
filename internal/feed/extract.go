package feed

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"planningwatch/internal/domain"
)

var (
	compactTimestampRe = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})(Z?)$`)
	organizerCNRe      = regexp.MustCompile(`(?i)CN=([^;:@]+)`)
	organizerMailtoRe  = regexp.MustCompile(`(?i)mailto:([^@]+)`)
	teacherLabelRe     = regexp.MustCompile(`(?i)(?:Enseignant|Professeur|Prof|Teacher)[:\-]\s*([^\n\r]+)`)
	updatedRe          = regexp.MustCompile(`(?i)Updated\s*:?\s*(\d{1,2})/(\d{1,2})/(\d{4})\s*(\d{1,2}):(\d{2})`)
	paragraphSplitRe   = regexp.MustCompile(`\r?\n\r?\n`)
)

// ToEpochSeconds normalizes a source timestamp to epoch seconds. It
// accepts RFC 3339, a bare date-time, and the compact calendar form
// YYYYMMDDTHHMMSS[Z] (trailing Z means UTC, absence means local time).
// Unparseable input falls back to now: availability over correctness,
// kept for compatibility with the previous behavior.
func ToEpochSeconds(raw string, now time.Time) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Unix()
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Unix()
	}

	if t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, time.Local); err == nil {
		return t.Unix()
	}

	if m := compactTimestampRe.FindStringSubmatch(raw); m != nil {
		loc := time.Local
		if m[7] == "Z" {
			loc = time.UTC
		}

		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		hour, _ := strconv.Atoi(m[4])
		minute, _ := strconv.Atoi(m[5])
		second, _ := strconv.Atoi(m[6])

		return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc).Unix()
	}

	return now.Unix()
}

// descriptionSection returns the group line and the fallback teacher line
// of a description: within the second logical paragraph (text after the
// first blank line; the whole text when there is none), the first
// non-empty line names the group and the second names the teacher.
func descriptionSection(description string) (groupLine, teacherLine string) {
	if description == "" {
		return "", ""
	}

	parts := paragraphSplitRe.Split(description, -1)

	section := parts[0]
	if len(parts) > 1 {
		section = parts[1]
	}

	var lines []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) >= 1 {
		groupLine = lines[0]
	}
	if len(lines) >= 2 {
		teacherLine = lines[1]
	}

	return groupLine, teacherLine
}

// teacherStrategy attempts one extraction heuristic and returns "" when it
// does not apply.
type teacherStrategy func(description, organizer, explicit string) string

// teacherStrategies is the ordered heuristic list; the first non-empty,
// non-sentinel result wins.
var teacherStrategies = []teacherStrategy{
	func(_, _, explicit string) string {
		return strings.TrimSpace(explicit)
	},
	func(_, organizer, _ string) string {
		if m := organizerCNRe.FindStringSubmatch(organizer); m != nil {
			return strings.TrimSpace(m[1])
		}

		return ""
	},
	func(_, organizer, _ string) string {
		if m := organizerMailtoRe.FindStringSubmatch(organizer); m != nil {
			return strings.TrimSpace(m[1])
		}

		return ""
	},
	func(description, _, _ string) string {
		if m := teacherLabelRe.FindStringSubmatch(description); m != nil {
			return strings.TrimSpace(m[1])
		}

		return ""
	},
}

// ExtractTeacher runs the heuristic chain: explicit teacher line from the
// description section, CN= token in the organizer, mailto local-part,
// label-prefixed description line, then the unknown sentinel.
func ExtractTeacher(description, organizer, explicit string) string {
	for _, strategy := range teacherStrategies {
		v := strategy(description, organizer, explicit)
		if v != "" && v != domain.TeacherUnknown {
			return v
		}
	}

	return domain.TeacherUnknown
}

// InferGroup labels the event with a group: the description section's
// group line when present, otherwise the first configured group whose
// display name occurs in the event text, otherwise empty.
func InferGroup(descGroup, summary, description, location string, groups []domain.Group) string {
	if descGroup != "" {
		return descGroup
	}

	blob := strings.ToLower(summary + " " + description + " " + location)
	for _, g := range groups {
		if g.Name == "" {
			continue
		}

		if strings.Contains(blob, strings.ToLower(g.Name)) {
			return g.Name
		}
	}

	return ""
}

// ExtractUpdatedEpoch scrapes a free-text "Updated: DD/MM/YYYY HH:MM"
// timestamp out of the description, interpreted as UTC. Nil when absent
// or malformed.
func ExtractUpdatedEpoch(description string) *int64 {
	m := updatedRe.FindStringSubmatch(description)
	if m == nil {
		return nil
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return nil
	}

	epoch := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC).Unix()

	return &epoch
}

// sameUTCDate reports whether two instants fall on the same UTC calendar
// date; it drives the recently-modified flag.
func sameUTCDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()

	return ay == by && am == bm && ad == bd
}
