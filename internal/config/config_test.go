package config

import "testing"

func TestLoadGroupsParsesCommaLists(t *testing.T) {
	envs := map[string]string{
		"GROUP_1A_TP1_URLS": "https://example.com/a.ics, https://example.com/b.ics",
		"GROUP_2A_TP4_URLS": "https://example.com/c.ics",
	}

	groups, err := loadGroups(func(k string) string { return envs[k] })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	if groups[0].Key != "1A_TP1" || len(groups[0].FeedURLs) != 2 {
		t.Fatalf("unexpected first group: %+v", groups[0])
	}

	if groups[0].Name != "1ère année TP1" {
		t.Fatalf("unexpected display name: %q", groups[0].Name)
	}

	if groups[1].Key != "2A_TP4" || groups[1].FeedURLs[0] != "https://example.com/c.ics" {
		t.Fatalf("unexpected second group: %+v", groups[1])
	}
}

func TestLoadGroupsRejectsNonHTTPSURL(t *testing.T) {
	envs := map[string]string{
		"GROUP_1A_TP1_URLS": "http://example.com/a.ics",
	}

	if _, err := loadGroups(func(k string) string { return envs[k] }); err == nil {
		t.Fatalf("expected error for non-https URL")
	}
}

func TestLoadGroupsRejectsGarbageURL(t *testing.T) {
	envs := map[string]string{
		"GROUP_1A_TP1_URLS": "not a url",
	}

	if _, err := loadGroups(func(k string) string { return envs[k] }); err == nil {
		t.Fatalf("expected error for malformed URL")
	}
}

func TestLoadGroupsRequiresAtLeastOne(t *testing.T) {
	if _, err := loadGroups(func(string) string { return "" }); err == nil {
		t.Fatalf("expected error when no group is configured")
	}
}
