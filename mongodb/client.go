package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"

	"github.com/rs/zerolog/log"
)

// Collection names used by the two services. The credential authority
// owns users, tokens and password_reset_tokens; the profile service owns
// user_profiles. No service ever touches the other's collections.
const (
	UsersCollection               = "users"
	TokensCollection              = "tokens"
	PasswordResetTokensCollection = "password_reset_tokens"
	UserProfilesCollection        = "user_profiles"
)

// Connect dials MongoDB, verifies the connection with a ping and returns
// the database handle. The client is instrumented with the otel command
// monitor.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB primary: %w", err)
	}

	log.Info().Str("db", dbName).Msg("MongoDB connection established")

	return client.Database(dbName), nil
}

// Disconnect closes the underlying client of a database handle.
func Disconnect(ctx context.Context, db *mongo.Database) {
	if db == nil {
		return
	}
	if err := db.Client().Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("error closing MongoDB connection")
	}
}
