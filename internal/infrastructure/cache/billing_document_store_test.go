package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryBillingDocumentStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryBillingDocumentStore()
	doc := &fiscal.BillingDocument{
		DocumentID:     uuid.New(),
		TenantID:       uuid.New(),
		Type:           fiscal.BillingInvoice,
		DocumentNumber: "FAC-0010",
		IssueDate:      time.Date(2026, time.April, 3, 0, 0, 0, 0, time.UTC),
		Total:          decimal.NewFromInt(116),
	}

	_, err := store.Resolve(ctx, doc.TenantID, doc.DocumentID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, store.Save(ctx, doc))
	got, err := store.Resolve(ctx, doc.TenantID, doc.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "FAC-0010", got.DocumentNumber)

	got.DocumentNumber = "mutated"
	again, _ := store.Resolve(ctx, doc.TenantID, doc.DocumentID)
	assert.Equal(t, "FAC-0010", again.DocumentNumber, "callers receive copies")

	_, err = store.Resolve(ctx, uuid.New(), doc.DocumentID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "documents are tenant scoped")
}

func TestNewStores_FallsBackToMemory(t *testing.T) {
	stores := NewStores(nil, zap.NewNop())
	defer stores.Idempotency.Close()

	assert.IsType(t, &InMemoryIdempotencyStore{}, stores.Idempotency)
	assert.IsType(t, &InMemoryBillingDocumentStore{}, stores.Documents)
}
