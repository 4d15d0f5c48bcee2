package store

import (
	"context"

	"chatting-demo-backend/internal/database"
	"chatting-demo-backend/internal/env"

	"github.com/rs/zerolog"
)

// OpenBackend connects the backend selected by cfg.StoreBackend. The
// returned func releases its connections.
func OpenBackend(ctx context.Context, cfg env.Config, logger zerolog.Logger) (Backend, func(), error) {
	switch cfg.StoreBackend {
	case env.BackendDynamo:
		db, err := database.NewDatabase(ctx, DynamoConfig(cfg))
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("table", cfg.DynamoTable).Msg("using dynamodb store")
		return NewDynamoBackend(db, cfg.DynamoTable), func() {}, nil

	case env.BackendMongo:
		client, err := database.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("using mongo store")
		return NewMongoBackend(client.Nodes()), func() {
			if err := client.Close(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("mongo disconnect failed")
			}
		}, nil

	default:
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return NewMemoryBackend(), func() {}, nil
	}
}

func DynamoConfig(cfg env.Config) database.DynamoConfig {
	return database.DynamoConfig{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		SessionToken:    cfg.AWSSessionToken,
		Endpoint:        cfg.DynamoEndpoint,
	}
}
