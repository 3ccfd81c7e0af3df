package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/idport/idport/domain"
	"github.com/idport/idport/queue"
)

// Reconciler folds user events into the derived profile store. Handlers
// are idempotent and tolerate replays and out-of-order delivery:
// applying the same event twice, or an update for a profile that does
// not exist yet, never corrupts state and never fails the delivery.
type Reconciler struct {
	profiles domain.ProfileRepository
}

func NewReconciler(profiles domain.ProfileRepository) *Reconciler {
	return &Reconciler{profiles: profiles}
}

// HandleEvent is the queue.Handler for the user events queue. Envelopes
// that cannot be decoded are permanent failures; unknown event types
// are logged and discarded without error.
func (r *Reconciler) HandleEvent(ctx context.Context, body []byte) error {
	var event domain.UserEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return queue.Permanent(fmt.Errorf("malformed event envelope: %w", err))
	}
	if event.EventType == "" || event.Data.ID == "" {
		return queue.Permanent(fmt.Errorf("event envelope missing event_type or user id"))
	}

	return r.Apply(ctx, &event)
}

// Apply dispatches a decoded event to the matching profile mutation.
func (r *Reconciler) Apply(ctx context.Context, event *domain.UserEvent) error {
	mirrored := domain.MirroredFields{
		Name:            event.Data.Name,
		Email:           event.Data.Email,
		EmailVerifiedAt: event.Data.EmailVerifiedAt,
	}

	switch event.EventType {
	case domain.EventUserCreated:
		if err := r.profiles.Upsert(ctx, event.Data.ID, mirrored); err != nil {
			return fmt.Errorf("failed to upsert profile: %w", err)
		}
		log.Info().Str("auth_user_id", event.Data.ID).Msg("Profile reconciled from created event")
		return nil

	case domain.EventUserUpdated:
		matched, err := r.profiles.UpdateMirrored(ctx, event.Data.ID, mirrored)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		if !matched {
			log.Warn().Str("auth_user_id", event.Data.ID).Msg("Updated event for unknown profile, skipping")
			return nil
		}
		log.Info().Str("auth_user_id", event.Data.ID).Msg("Profile reconciled from updated event")
		return nil

	case domain.EventUserVerified:
		matched, err := r.profiles.SetEmailVerified(ctx, event.Data.ID, event.Data.EmailVerifiedAt)
		if err != nil {
			return fmt.Errorf("failed to mark profile verified: %w", err)
		}
		if !matched {
			log.Warn().Str("auth_user_id", event.Data.ID).Msg("Verified event for unknown profile, skipping")
			return nil
		}
		log.Info().Str("auth_user_id", event.Data.ID).Msg("Profile reconciled from verified event")
		return nil

	default:
		log.Warn().Str("event_type", string(event.EventType)).Msg("Unknown event type, discarding")
		return nil
	}
}
