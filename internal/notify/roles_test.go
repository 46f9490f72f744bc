package notify

import (
	"testing"

	"planningwatch/internal/domain"
)

func TestRoleNameForGroup(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"1ère année TP1", "*CC1:1"},
		{"2ème année TP4", "*CC2:4"},
		{"3ème année TP 2", "*CC3:2"},
		{"Année spéciale", "*CC0:0"},
	}

	for _, c := range cases {
		if got := RoleNameForGroup(c.name); got != c.want {
			t.Fatalf("RoleNameForGroup(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestBuildRoleTableDerivesAndOverrides(t *testing.T) {
	groups := []domain.Group{
		{Key: "1A_TP1", Name: "1ère année TP1"},
		{Key: "2A_TP4", Name: "2ème année TP4"},
	}

	table, err := BuildRoleTable(groups, map[string]string{"2A_TP4": "planning-2a-tp4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if table["1A_TP1"] != "*CC1:1" {
		t.Fatalf("unexpected derived role: %q", table["1A_TP1"])
	}

	if table["2A_TP4"] != "planning-2a-tp4" {
		t.Fatalf("expected override to win, got %q", table["2A_TP4"])
	}
}

func TestBuildRoleTableRejectsUnknownOverride(t *testing.T) {
	groups := []domain.Group{{Key: "1A_TP1", Name: "1ère année TP1"}}

	if _, err := BuildRoleTable(groups, map[string]string{"NOPE": "x"}); err == nil {
		t.Fatalf("expected error for unknown override key")
	}
}

func TestBuildRoleTableRejectsDuplicateRoleNames(t *testing.T) {
	groups := []domain.Group{
		{Key: "A", Name: "1ère année TP1"},
		{Key: "B", Name: "1ere annee TP1"},
	}

	if _, err := BuildRoleTable(groups, nil); err == nil {
		t.Fatalf("expected error for colliding role names")
	}
}

func TestNormalizeForMatch(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1ère année TP1", "1ereanneetp1"},
		{"1ere-annee_TP1!", "1ereanneetp1"},
		{"  2ÈME ANNÉE TP4 ", "2emeanneetp4"},
		{"", ""},
	}

	for _, c := range cases {
		if got := NormalizeForMatch(c.in); got != c.want {
			t.Fatalf("NormalizeForMatch(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeForMatchEquatesVariants(t *testing.T) {
	if NormalizeForMatch("1ère année TP1") != NormalizeForMatch("1ere annee tp1") {
		t.Fatalf("expected accent/punctuation variants to compare equal")
	}
}
