package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/idport/idport/domain"
)

// ProfileRepository is the MongoDB implementation of
// domain.ProfileRepository. auth_user_id carries a unique index standing
// in for the cross-database foreign key that cannot exist.
type ProfileRepository struct {
	coll *mongo.Collection
}

// NewProfileRepository creates the repository and ensures the unique
// auth_user_id index the reconciler's upsert converges on.
func NewProfileRepository(ctx context.Context, db *mongo.Database) (*ProfileRepository, error) {
	coll := db.Collection(UserProfilesCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "auth_user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create auth_user_id index: %w", err)
	}

	return &ProfileRepository{coll: coll}, nil
}

func (r *ProfileRepository) GetByAuthUserID(ctx context.Context, authUserID string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	err := r.coll.FindOne(ctx, bson.M{"auth_user_id": authUserID}).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert creates the profile for authUserID or overwrites its mirrored
// fields. Replaying the same event any number of times converges to the
// same row.
func (r *ProfileRepository) Upsert(ctx context.Context, authUserID string, m domain.MirroredFields) error {
	now := time.Now().UTC()

	update := bson.M{
		"$set": bson.M{
			"name":              m.Name,
			"email":             m.Email,
			"email_verified_at": m.EmailVerifiedAt,
			"updated_at":        now,
		},
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"created_at": now,
		},
	}

	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"auth_user_id": authUserID},
		update,
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

// UpdateMirrored overwrites the mirrored fields of an existing profile.
// A missing profile is reported as matched=false, never as an error.
func (r *ProfileRepository) UpdateMirrored(ctx context.Context, authUserID string, m domain.MirroredFields) (bool, error) {
	result, err := r.coll.UpdateOne(
		ctx,
		bson.M{"auth_user_id": authUserID},
		bson.M{"$set": bson.M{
			"name":              m.Name,
			"email":             m.Email,
			"email_verified_at": m.EmailVerifiedAt,
			"updated_at":        time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// SetEmailVerified stamps the mirrored verification timestamp of an
// existing profile.
func (r *ProfileRepository) SetEmailVerified(ctx context.Context, authUserID string, at *time.Time) (bool, error) {
	result, err := r.coll.UpdateOne(
		ctx,
		bson.M{"auth_user_id": authUserID},
		bson.M{"$set": bson.M{
			"email_verified_at": at,
			"updated_at":        time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// UpdateProfile writes the profile-only fields. Mirrored fields are not
// reachable through this method.
func (r *ProfileRepository) UpdateProfile(ctx context.Context, authUserID string, upd domain.ProfileUpdate) (*domain.UserProfile, error) {
	set := bson.M{}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.Avatar != nil {
		set["avatar"] = *upd.Avatar
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.Address != nil {
		set["address"] = *upd.Address
	}
	if upd.Preferences != nil {
		set["preferences"] = *upd.Preferences
	}

	if len(set) == 0 {
		return r.GetByAuthUserID(ctx, authUserID)
	}
	set["updated_at"] = time.Now().UTC()

	var profile domain.UserProfile
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"auth_user_id": authUserID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

var _ domain.ProfileRepository = (*ProfileRepository)(nil)
