package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idport/idport/domain"
	"github.com/idport/idport/queue"
)

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.UserProfile // keyed by auth_user_id
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*domain.UserProfile)}
}

func (r *fakeProfileRepo) GetByAuthUserID(_ context.Context, authUserID string) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[authUserID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) Upsert(_ context.Context, authUserID string, m domain.MirroredFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[authUserID]
	if !ok {
		p = &domain.UserProfile{
			ID:         "profile-" + authUserID,
			AuthUserID: authUserID,
			CreatedAt:  time.Now(),
		}
		r.profiles[authUserID] = p
	}
	p.Name = m.Name
	p.Email = m.Email
	p.EmailVerifiedAt = m.EmailVerifiedAt
	p.UpdatedAt = time.Now()
	return nil
}

func (r *fakeProfileRepo) UpdateMirrored(_ context.Context, authUserID string, m domain.MirroredFields) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[authUserID]
	if !ok {
		return false, nil
	}
	p.Name = m.Name
	p.Email = m.Email
	p.EmailVerifiedAt = m.EmailVerifiedAt
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeProfileRepo) SetEmailVerified(_ context.Context, authUserID string, at *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[authUserID]
	if !ok {
		return false, nil
	}
	p.EmailVerifiedAt = at
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeProfileRepo) UpdateProfile(_ context.Context, authUserID string, upd domain.ProfileUpdate) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[authUserID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Bio != nil {
		p.Bio = *upd.Bio
	}
	cp := *p
	return &cp, nil
}

func encodeEvent(t *testing.T, event domain.UserEvent) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func userEvent(eventType domain.EventType, snapshot domain.UserSnapshot) domain.UserEvent {
	return domain.UserEvent{
		EventType: eventType,
		Data:      snapshot,
		Timestamp: time.Now(),
		Service:   "auth_service",
	}
}

func TestHandleEventMalformed(t *testing.T) {
	r := NewReconciler(newFakeProfileRepo())

	err := r.HandleEvent(context.Background(), []byte("{not json"))
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err), "decode failures must not be retried")
}

func TestHandleEventMissingFields(t *testing.T) {
	r := NewReconciler(newFakeProfileRepo())
	ctx := context.Background()

	err := r.HandleEvent(ctx, encodeEvent(t, domain.UserEvent{
		Data: domain.UserSnapshot{ID: "u1"},
	}))
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))

	err = r.HandleEvent(ctx, encodeEvent(t, domain.UserEvent{
		EventType: domain.EventUserCreated,
	}))
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))
}

func TestHandleEventCreatedIsIdempotent(t *testing.T) {
	repo := newFakeProfileRepo()
	r := NewReconciler(repo)
	ctx := context.Background()

	body := encodeEvent(t, userEvent(domain.EventUserCreated, domain.UserSnapshot{
		ID:    "u1",
		Name:  "Alice",
		Email: "alice@example.com",
	}))

	// At-least-once delivery: the same envelope may arrive repeatedly.
	for i := 0; i < 3; i++ {
		require.NoError(t, r.HandleEvent(ctx, body))
	}

	require.Len(t, repo.profiles, 1)
	profile, err := repo.GetByAuthUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Nil(t, profile.EmailVerifiedAt)
}

func TestHandleEventUpdatedBeforeCreated(t *testing.T) {
	repo := newFakeProfileRepo()
	r := NewReconciler(repo)
	ctx := context.Background()

	// The updated event arrives first; there is nothing to update yet
	// and the delivery still succeeds.
	err := r.HandleEvent(ctx, encodeEvent(t, userEvent(domain.EventUserUpdated, domain.UserSnapshot{
		ID:    "u1",
		Name:  "Alice Renamed",
		Email: "alice@example.com",
	})))
	require.NoError(t, err)
	assert.Empty(t, repo.profiles)

	err = r.HandleEvent(ctx, encodeEvent(t, userEvent(domain.EventUserCreated, domain.UserSnapshot{
		ID:    "u1",
		Name:  "Alice",
		Email: "alice@example.com",
	})))
	require.NoError(t, err)

	profile, err := repo.GetByAuthUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)
}

func TestHandleEventUpdatedMirrorsFields(t *testing.T) {
	repo := newFakeProfileRepo()
	r := NewReconciler(repo)
	ctx := context.Background()

	require.NoError(t, r.HandleEvent(ctx, encodeEvent(t, userEvent(domain.EventUserCreated, domain.UserSnapshot{
		ID:    "u1",
		Name:  "Alice",
		Email: "alice@example.com",
	}))))

	verifiedAt := time.Now().Truncate(time.Second)
	require.NoError(t, r.HandleEvent(ctx, encodeEvent(t, userEvent(domain.EventUserUpdated, domain.UserSnapshot{
		ID:              "u1",
		Name:            "Alice Renamed",
		Email:           "alice.renamed@example.com",
		EmailVerifiedAt: &verifiedAt,
	}))))

	profile, err := repo.GetByAuthUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Renamed", profile.Name)
	assert.Equal(t, "alice.renamed@example.com", profile.Email)
	require.NotNil(t, profile.EmailVerifiedAt)
	assert.True(t, profile.EmailVerifiedAt.Equal(verifiedAt))
}

func TestHandleEventVerified(t *testing.T) {
	repo := newFakeProfileRepo()
	r := NewReconciler(repo)
	ctx := context.Background()

	// Verified before created: a no-op, not a failure.
	verifiedAt := time.Now()
	verified := encodeEvent(t, userEvent(domain.EventUserVerified, domain.UserSnapshot{
		ID:              "u1",
		Name:            "Alice",
		Email:           "alice@example.com",
		EmailVerifiedAt: &verifiedAt,
	}))
	require.NoError(t, r.HandleEvent(ctx, verified))
	assert.Empty(t, repo.profiles)

	require.NoError(t, r.HandleEvent(ctx, encodeEvent(t, userEvent(domain.EventUserCreated, domain.UserSnapshot{
		ID:    "u1",
		Name:  "Alice",
		Email: "alice@example.com",
	}))))

	require.NoError(t, r.HandleEvent(ctx, verified))

	profile, err := repo.GetByAuthUserID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, profile.EmailVerifiedAt)
}

func TestHandleEventUnknownTypeDiscarded(t *testing.T) {
	repo := newFakeProfileRepo()
	r := NewReconciler(repo)

	err := r.HandleEvent(context.Background(), encodeEvent(t, userEvent("deleted", domain.UserSnapshot{
		ID: "u1",
	})))
	assert.NoError(t, err)
	assert.Empty(t, repo.profiles)
}
