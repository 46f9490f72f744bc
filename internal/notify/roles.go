package notify

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"planningwatch/internal/domain"
)

var (
	yearRe    = regexp.MustCompile(`(\d+)`)
	tpRe      = regexp.MustCompile(`(?i)TP\s*(\d+)`)
	allNumsRe = regexp.MustCompile(`\d+`)
	alnumRe   = regexp.MustCompile(`[^a-z0-9]`)
)

// RoleTable maps a group key to the notification role name used for
// broadcasts. It is built and validated once at startup; the router never
// re-derives role names from display text.
type RoleTable map[string]string

// BuildRoleTable seeds role names from the group display names and applies
// explicit overrides, rejecting overrides for unknown groups and duplicate
// role names.
func BuildRoleTable(groups []domain.Group, overrides map[string]string) (RoleTable, error) {
	known := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		known[g.Key] = struct{}{}
	}

	for key := range overrides {
		if _, ok := known[key]; !ok {
			return nil, fmt.Errorf("role override references unknown group key %q", key)
		}
	}

	table := make(RoleTable, len(groups))
	seen := make(map[string]string, len(groups))

	for _, g := range groups {
		roleName := strings.TrimSpace(overrides[g.Key])
		if roleName == "" {
			roleName = RoleNameForGroup(g.Name)
		}

		if prior, ok := seen[roleName]; ok {
			return nil, fmt.Errorf("role name %q derived for both %q and %q", roleName, prior, g.Key)
		}

		seen[roleName] = g.Key
		table[g.Key] = roleName
	}

	return table, nil
}

// RoleNameForGroup derives the default role name "*CC<year>:<tp>" from a
// display name such as "2ème année TP4". Only used to seed the role table.
func RoleNameForGroup(name string) string {
	year, tp := GroupNumbers(name)

	return fmt.Sprintf("*CC%s:%s", year, tp)
}

// GroupNumbers extracts the year and TP numbers from a group display
// name, falling back to "0" when a number is missing.
func GroupNumbers(name string) (year, tp string) {
	nums := allNumsRe.FindAllString(name, -1)

	year = "0"
	if m := yearRe.FindStringSubmatch(name); m != nil {
		year = m[1]
	} else if len(nums) > 0 {
		year = nums[0]
	}

	tp = year
	if m := tpRe.FindStringSubmatch(name); m != nil {
		tp = m[1]
	} else if len(nums) > 1 {
		tp = nums[1]
	} else if len(nums) > 0 {
		tp = nums[0]
	} else {
		tp = "0"
	}

	return year, tp
}

// NormalizeForMatch lowers a group label to a comparison key: diacritics
// stripped, everything except ASCII letters and digits removed. Stored
// subscription groups and configured display names must compare equal
// through arbitrary accent and punctuation differences.
func NormalizeForMatch(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	return alnumRe.ReplaceAllString(strings.ToLower(stripped), "")
}
