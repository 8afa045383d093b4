package cache

import (
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores groups the cache-backed collaborators of the event pipeline
type Stores struct {
	Idempotency shared.IdempotencyStore
	Documents   BillingDocumentStore
}

// NewStores picks Redis backed stores when a client is available and falls
// back to process memory otherwise. In-memory stores do not share state across
// instances, so a multi-instance deployment must configure Redis.
func NewStores(client *redis.Client, logger *zap.Logger) Stores {
	if client == nil {
		logger.Warn("redis not configured, using in-memory idempotency and billing document stores")
		return Stores{
			Idempotency: NewInMemoryIdempotencyStore(),
			Documents:   NewInMemoryBillingDocumentStore(),
		}
	}
	logger.Info("using redis idempotency and billing document stores")
	return Stores{
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Documents:   NewRedisBillingDocumentStore(client, 0),
	}
}
