package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/idport/idport/domain"
)

// TokenRepository is the MongoDB implementation of domain.TokenRepository.
// Tokens are revoked by deletion; a TTL index sweeps leftovers once their
// expiry passes.
type TokenRepository struct {
	coll *mongo.Collection
}

func NewTokenRepository(ctx context.Context, db *mongo.Database) (*TokenRepository, error) {
	coll := db.Collection(TokensCollection)

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_value", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token indexes: %w", err)
	}

	return &TokenRepository{coll: coll}, nil
}

func (r *TokenRepository) StoreToken(ctx context.Context, token *domain.Token) error {
	_, err := r.coll.InsertOne(ctx, token)
	return err
}

func (r *TokenRepository) GetToken(ctx context.Context, tokenValue string) (*domain.Token, error) {
	var token domain.Token
	err := r.coll.FindOne(ctx, bson.M{
		"token_value": tokenValue,
		"expires_at":  bson.M{"$gt": time.Now().UTC()},
	}).Decode(&token)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepository) DeleteToken(ctx context.Context, tokenValue string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"token_value": tokenValue})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TokenRepository) DeleteExpiredTokens(ctx context.Context) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	return err
}

var _ domain.TokenRepository = (*TokenRepository)(nil)
