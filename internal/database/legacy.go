package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"planningwatch/internal/domain"
)

// legacyEntry accepts both historical shapes of a subscriptions.json
// value: a bare group string, or an object with optional preferences.
type legacyEntry struct {
	Group   string `json:"group"`
	Mention bool   `json:"mention"`
	DM      *bool  `json:"dm"`
}

func (e *legacyEntry) UnmarshalJSON(data []byte) error {
	var group string
	if err := json.Unmarshal(data, &group); err == nil {
		*e = legacyEntry{Group: group}

		return nil
	}

	type plain legacyEntry

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	*e = legacyEntry(p)

	return nil
}

func (e *legacyEntry) toSubscription(userID string) domain.Subscription {
	dm := true
	if e.DM != nil {
		dm = *e.DM
	}

	return domain.Subscription{
		UserID:  userID,
		Group:   strings.TrimSpace(e.Group),
		Mention: e.Mention,
		DM:      dm,
	}
}

// ImportLegacyJSON seeds the subscriptions table from the pre-database
// JSON file. Users that already have a stored record are left untouched
// and the file is never written back. A missing file is not an error.
func (d *Database) ImportLegacyJSON(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("read legacy subscriptions: %w", err)
	}

	var entries map[string]legacyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode legacy subscriptions: %w", err)
	}

	var imported int

	for userID, entry := range entries {
		sub := entry.toSubscription(userID)
		if sub.UserID == "" || sub.Group == "" {
			d.log.WarnContext(ctx, "Skipping malformed legacy subscription",
				"userID", userID)

			continue
		}

		existing, err := d.GetSubscription(ctx, sub.UserID)
		if err != nil {
			return fmt.Errorf("check existing subscription: %w", err)
		}

		if existing != nil {
			continue
		}

		if err := d.SaveSubscription(ctx, &sub); err != nil {
			return fmt.Errorf("save legacy subscription: %w", err)
		}

		imported++
	}

	d.log.InfoContext(ctx, "Imported legacy subscriptions",
		"path", path,
		"total", len(entries),
		"imported", imported)

	return nil
}
