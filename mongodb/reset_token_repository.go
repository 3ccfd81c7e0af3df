package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/idport/idport/domain"
)

// PasswordResetRepository is the MongoDB implementation of
// domain.PasswordResetRepository. The email is the document id, so the
// one-live-token-per-email rule falls out of the key itself and two
// concurrent requests race on a plain last-writer-wins upsert.
type PasswordResetRepository struct {
	coll *mongo.Collection
}

func NewPasswordResetRepository(db *mongo.Database) *PasswordResetRepository {
	return &PasswordResetRepository{coll: db.Collection(PasswordResetTokensCollection)}
}

func (r *PasswordResetRepository) Replace(ctx context.Context, token *domain.PasswordResetToken) error {
	_, err := r.coll.ReplaceOne(
		ctx,
		bson.M{"_id": token.Email},
		token,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *PasswordResetRepository) GetByEmail(ctx context.Context, email string) (*domain.PasswordResetToken, error) {
	var token domain.PasswordResetToken
	err := r.coll.FindOne(ctx, bson.M{"_id": email}).Decode(&token)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *PasswordResetRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": email})
	return err
}

var _ domain.PasswordResetRepository = (*PasswordResetRepository)(nil)
