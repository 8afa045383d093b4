package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultDocumentRetention keeps received billing payloads long enough to
// re-sync them until the period's declaration is filed.
const DefaultDocumentRetention = 90 * 24 * time.Hour

// BillingDocumentStore keeps the last payload received for each billing
// document so a sales book row can be re-synced by document id.
type BillingDocumentStore interface {
	fiscal.BillingDocumentResolver
	Save(ctx context.Context, doc *fiscal.BillingDocument) error
}

// RedisBillingDocumentStore stores payloads as JSON under
// fiscal:billing:<tenant>:<document>.
type RedisBillingDocumentStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

// NewRedisBillingDocumentStore creates a Redis backed store
func NewRedisBillingDocumentStore(client redis.UniversalClient, retention time.Duration) *RedisBillingDocumentStore {
	if retention <= 0 {
		retention = DefaultDocumentRetention
	}
	return &RedisBillingDocumentStore{client: client, retention: retention}
}

func billingKey(tenantID, documentID uuid.UUID) string {
	return "fiscal:billing:" + tenantID.String() + ":" + documentID.String()
}

// Save overwrites the stored payload
func (s *RedisBillingDocumentStore) Save(ctx context.Context, doc *fiscal.BillingDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode billing document: %w", err)
	}
	if err := s.client.Set(ctx, billingKey(doc.TenantID, doc.DocumentID), payload, s.retention).Err(); err != nil {
		return fmt.Errorf("failed to store billing document %s: %w", doc.DocumentID, err)
	}
	return nil
}

// Resolve returns the stored payload or shared.ErrNotFound
func (s *RedisBillingDocumentStore) Resolve(ctx context.Context, tenantID, documentID uuid.UUID) (*fiscal.BillingDocument, error) {
	payload, err := s.client.Get(ctx, billingKey(tenantID, documentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read billing document %s: %w", documentID, err)
	}

	var doc fiscal.BillingDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode billing document %s: %w", documentID, err)
	}
	return &doc, nil
}

// InMemoryBillingDocumentStore is the single-instance variant
type InMemoryBillingDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]fiscal.BillingDocument
}

// NewInMemoryBillingDocumentStore creates an empty store
func NewInMemoryBillingDocumentStore() *InMemoryBillingDocumentStore {
	return &InMemoryBillingDocumentStore{docs: make(map[string]fiscal.BillingDocument)}
}

// Save overwrites the stored payload
func (s *InMemoryBillingDocumentStore) Save(_ context.Context, doc *fiscal.BillingDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[billingKey(doc.TenantID, doc.DocumentID)] = *doc
	return nil
}

// Resolve returns a copy of the stored payload or shared.ErrNotFound
func (s *InMemoryBillingDocumentStore) Resolve(_ context.Context, tenantID, documentID uuid.UUID) (*fiscal.BillingDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[billingKey(tenantID, documentID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &doc, nil
}

var (
	_ BillingDocumentStore = (*RedisBillingDocumentStore)(nil)
	_ BillingDocumentStore = (*InMemoryBillingDocumentStore)(nil)
)
