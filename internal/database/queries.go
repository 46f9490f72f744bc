package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"planningwatch/internal/domain"
)

func (d *Database) SaveSubscription(ctx context.Context, sub *domain.Subscription) error {
	userID := strings.TrimSpace(sub.UserID)
	if userID == "" {
		return errors.New("user ID is empty")
	}

	groupName := strings.TrimSpace(sub.Group)
	if groupName == "" {
		return errors.New("group name is empty")
	}

	query := `insert into subscriptions (user_id, group_name, mention, dm)
	values (?, ?, ?, ?)
	on conflict (user_id) do update
	set group_name = excluded.group_name,
	mention = excluded.mention,
	dm = excluded.dm`

	_, err := d.db.ExecContext(ctx, query, userID, groupName, sub.Mention, sub.DM)

	return err
}

func (d *Database) UpdatePreferences(ctx context.Context, userID string, mention, dm bool) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user ID is empty")
	}

	query := "update subscriptions set mention = ?, dm = ? where user_id = ?"

	res, err := d.db.ExecContext(ctx, query, mention, dm, userID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("no subscription stored for user %s", userID)
	}

	return nil
}

// GetSubscription returns nil without error when the user has no stored
// record.
func (d *Database) GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := `select user_id, group_name, mention, dm
	from subscriptions
	where user_id = ?`

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"userID", userID,
				"operation", "GetSubscription")
		}
	}()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate rows: %w", err)
		}

		return nil, nil
	}

	var sub domain.Subscription
	if err = rows.Scan(&sub.UserID, &sub.Group, &sub.Mention, &sub.DM); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	sub.Group = strings.TrimSpace(sub.Group)

	return &sub, nil
}

func (d *Database) ListUserIDs(ctx context.Context) ([]string, error) {
	query := "select user_id from subscriptions"

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"operation", "ListUserIDs")
		}
	}()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err = rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		userIDs = append(userIDs, userID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return userIDs, nil
}
