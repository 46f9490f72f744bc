package feed

import (
	"testing"
	"time"

	"planningwatch/internal/domain"
)

var extractNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func TestToEpochSecondsCompactUTC(t *testing.T) {
	got := ToEpochSeconds("20240110T080000Z", extractNow)
	want := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC).Unix()

	if got != want {
		t.Fatalf("unexpected epoch: got %d want %d", got, want)
	}
}

func TestToEpochSecondsCompactLocal(t *testing.T) {
	got := ToEpochSeconds("20240110T080000", extractNow)
	want := time.Date(2024, 1, 10, 8, 0, 0, 0, time.Local).Unix()

	if got != want {
		t.Fatalf("unexpected epoch: got %d want %d", got, want)
	}
}

func TestToEpochSecondsRFC3339(t *testing.T) {
	got := ToEpochSeconds("2024-01-10T08:00:00Z", extractNow)
	want := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC).Unix()

	if got != want {
		t.Fatalf("unexpected epoch: got %d want %d", got, want)
	}
}

func TestToEpochSecondsFallsBackToNow(t *testing.T) {
	for _, raw := range []string{"", "garbage", "2024-13-45"} {
		if got := ToEpochSeconds(raw, extractNow); got != extractNow.Unix() {
			t.Fatalf("expected fallback to now for %q, got %d", raw, got)
		}
	}
}

func TestExtractTeacherExplicitWins(t *testing.T) {
	got := ExtractTeacher("Teacher: Someone Else", "CN=Org Person:mailto:org@example.com", "Jane Doe")

	if got != "Jane Doe" {
		t.Fatalf("expected explicit teacher to win, got %q", got)
	}
}

func TestExtractTeacherOrganizerCN(t *testing.T) {
	got := ExtractTeacher("", "CN=John Smith:mailto:john.smith@example.com", "")

	if got != "John Smith" {
		t.Fatalf("expected CN extraction, got %q", got)
	}
}

func TestExtractTeacherOrganizerMailto(t *testing.T) {
	got := ExtractTeacher("", "mailto:john.smith@example.com", "")

	if got != "john.smith" {
		t.Fatalf("expected mailto local-part, got %q", got)
	}
}

func TestExtractTeacherLabeledLine(t *testing.T) {
	for _, desc := range []string{
		"Some text\nEnseignant: Marie Curie\nmore",
		"Professeur- Marie Curie",
		"teacher: Marie Curie",
	} {
		if got := ExtractTeacher(desc, "", ""); got != "Marie Curie" {
			t.Fatalf("expected labeled extraction from %q, got %q", desc, got)
		}
	}
}

func TestExtractTeacherSentinel(t *testing.T) {
	if got := ExtractTeacher("no labels here", "", ""); got != domain.TeacherUnknown {
		t.Fatalf("expected sentinel, got %q", got)
	}

	// The sentinel itself is never a valid explicit value.
	if got := ExtractTeacher("", "", domain.TeacherUnknown); got != domain.TeacherUnknown {
		t.Fatalf("expected sentinel passthrough, got %q", got)
	}
}

func TestDescriptionSection(t *testing.T) {
	desc := "Course header\n\nTP2\nJane Doe\n\nUpdated: 10/01/2024 08:30"

	groupLine, teacherLine := descriptionSection(desc)

	if groupLine != "TP2" {
		t.Fatalf("unexpected group line: %q", groupLine)
	}

	if teacherLine != "Jane Doe" {
		t.Fatalf("unexpected teacher line: %q", teacherLine)
	}
}

func TestDescriptionSectionSingleParagraph(t *testing.T) {
	groupLine, teacherLine := descriptionSection("TP4\r\nJohn")

	if groupLine != "TP4" || teacherLine != "John" {
		t.Fatalf("unexpected section: %q / %q", groupLine, teacherLine)
	}
}

func TestInferGroupPrefersDescriptionSection(t *testing.T) {
	groups := []domain.Group{{Key: "1A_TP1", Name: "1ère année TP1"}}

	got := InferGroup("TP3", "1ère année TP1 lecture", "", "", groups)
	if got != "TP3" {
		t.Fatalf("expected description group to win, got %q", got)
	}
}

func TestInferGroupSubstringMatch(t *testing.T) {
	groups := []domain.Group{
		{Key: "1A_TP1", Name: "1ère année TP1"},
		{Key: "2A_TP2", Name: "2ème année TP2"},
	}

	got := InferGroup("", "Cours commun", "planning 2ÈME ANNÉE TP2", "", groups)
	if got != "2ème année TP2" {
		t.Fatalf("expected substring match, got %q", got)
	}

	if got = InferGroup("", "nothing matches", "", "", groups); got != "" {
		t.Fatalf("expected empty group, got %q", got)
	}
}

func TestExtractUpdatedEpoch(t *testing.T) {
	desc := "Blah\nUpdated : 10/01/2024 08:30\nBlah"

	got := ExtractUpdatedEpoch(desc)
	if got == nil {
		t.Fatalf("expected updated epoch")
	}

	want := time.Date(2024, 1, 10, 8, 30, 0, 0, time.UTC).Unix()
	if *got != want {
		t.Fatalf("unexpected updated epoch: got %d want %d", *got, want)
	}
}

func TestExtractUpdatedEpochAbsentOrMalformed(t *testing.T) {
	if got := ExtractUpdatedEpoch("no marker"); got != nil {
		t.Fatalf("expected nil for absent marker, got %d", *got)
	}

	if got := ExtractUpdatedEpoch("Updated: 10/13/2024 08:30"); got != nil {
		t.Fatalf("expected nil for impossible month, got %d", *got)
	}
}

func TestSameUTCDate(t *testing.T) {
	a := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, 3, 15, 0, 1, 0, 0, time.UTC)
	c := time.Date(2024, 3, 16, 0, 1, 0, 0, time.UTC)

	if !sameUTCDate(a, b) {
		t.Fatalf("expected same UTC date")
	}

	if sameUTCDate(a, c) {
		t.Fatalf("expected different UTC dates")
	}
}
