// Package notify routes classified timetable changes to their audience: a
// role-scoped broadcast channel and the individually subscribed users
// whose stored preference matches the owning group.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"planningwatch/internal/domain"
)

// Messenger is the chat-platform boundary. Both sends are best-effort
// from the router's point of view: a failure is reported, never fatal.
type Messenger interface {
	// Broadcast posts the descriptor to the channel serving roleName,
	// mentioning the role.
	Broadcast(ctx context.Context, roleName string, d *Descriptor) error
	// DirectMessage delivers the descriptor privately to one user.
	DirectMessage(ctx context.Context, userID string, d *Descriptor) error
}

// SubscriberStore is the persistence boundary the router reads
// preferences from. GetSubscription returns nil without error when the
// user has no stored record.
type SubscriberStore interface {
	ListUserIDs(ctx context.Context) ([]string, error)
	GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error)
}

type Router struct {
	messenger Messenger
	store     SubscriberStore
	renderer  *Renderer
	roles     RoleTable
	log       *slog.Logger
}

func NewRouter(
	messenger Messenger,
	store SubscriberStore,
	renderer *Renderer,
	roles RoleTable,
	log *slog.Logger,
) *Router {
	return &Router{
		messenger: messenger,
		store:     store,
		renderer:  renderer,
		roles:     roles,
		log:       log,
	}
}

// Route renders the change once and delivers it through both channels.
// Per-recipient and broadcast failures are logged and aggregated; none of
// them stops the remaining deliveries.
func (r *Router) Route(ctx context.Context, change domain.Change, group domain.Group) error {
	eventGroup := group.Name
	if src := change.Source(); src != nil && src.Group != "" {
		eventGroup = src.Group
	}

	d := r.renderer.Render(change, eventGroup, group)

	var errs []error

	if err := r.sendDirectMessages(ctx, d, group); err != nil {
		errs = append(errs, fmt.Errorf("send direct messages: %w", err))
	}

	roleName, ok := r.roles[group.Key]
	if !ok {
		// The table is validated at startup; a miss means a group added
		// outside configuration, which broadcast cannot serve.
		r.log.ErrorContext(ctx, "No role mapped for group, skipping broadcast",
			"groupKey", group.Key,
			"groupName", group.Name,
			"changeType", change.Type.String())
	} else if err := r.messenger.Broadcast(ctx, roleName, d); err != nil {
		r.log.ErrorContext(ctx, "Failed to broadcast change",
			"error", err,
			"roleName", roleName,
			"groupName", group.Name,
			"changeType", change.Type.String())

		errs = append(errs, fmt.Errorf("broadcast: %w", err))
	}

	return errors.Join(errs...)
}

// sendDirectMessages delivers to every subscriber whose stored group
// matches the owning group after normalization and whose DM preference is
// enabled. Users without a stored record get nothing.
func (r *Router) sendDirectMessages(ctx context.Context, d *Descriptor, group domain.Group) error {
	userIDs, err := r.store.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list user ids: %w", err)
	}

	wantGroup := NormalizeForMatch(group.Name)

	var errs []error

	for _, userID := range userIDs {
		sub, err := r.store.GetSubscription(ctx, userID)
		if err != nil {
			r.log.ErrorContext(ctx, "Failed to get subscription",
				"error", err,
				"userID", userID)

			errs = append(errs, fmt.Errorf("get subscription: %w", err))

			continue
		}

		if sub == nil || !sub.DM || NormalizeForMatch(sub.Group) != wantGroup {
			continue
		}

		if err := r.messenger.DirectMessage(ctx, userID, d); err != nil {
			r.log.ErrorContext(ctx, "Failed to send direct message",
				"error", err,
				"userID", userID,
				"groupName", group.Name)

			errs = append(errs, fmt.Errorf("direct message: %w", err))
		}
	}

	return errors.Join(errs...)
}
