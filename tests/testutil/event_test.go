package testutil

import (
	"context"
	"testing"

	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingPublisher(t *testing.T) {
	tenantID := uuid.New()
	account, err := accounting.NewAccount(tenantID, "101", "Caja", accounting.AccountTypeAsset)
	require.NoError(t, err)

	t.Run("keeps events in publish order", func(t *testing.T) {
		p := NewRecordingPublisher()
		require.NoError(t, p.Publish(context.Background(), accounting.NewAccountCreatedEvent(account)))
		require.NoError(t, p.Publish(context.Background()))

		assert.Len(t, p.Events(), 1)
		assert.Equal(t, []string{accounting.EventTypeAccountCreated}, p.Types())
	})

	t.Run("configured error drops the events", func(t *testing.T) {
		p := NewRecordingPublisher()
		p.SetError(assert.AnError)

		err := p.Publish(context.Background(), accounting.NewAccountCreatedEvent(account))
		assert.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, p.Events())
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		p := NewRecordingPublisher()
		require.NoError(t, p.Publish(context.Background(), accounting.NewAccountCreatedEvent(account)))

		events := p.Events()
		events[0] = nil
		assert.NotNil(t, p.Events()[0])
	})
}
