package accounting_test

import (
	"context"
	"testing"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("numbers accounts after the highest code of the type", func(t *testing.T) {
		l := newLedger(t)
		l.account(t, "507", "Alquileres", accounting.AccountTypeExpense)

		created, err := l.accounts.Create(ctx, l.tenantID, appaccounting.CreateAccountRequest{
			Name: "Servicios Públicos",
			Type: "Gasto",
		})
		require.NoError(t, err)
		assert.Equal(t, "508", created.Code)
	})

	t.Run("first account of a type gets the 01 suffix", func(t *testing.T) {
		l := newLedger(t)

		created, err := l.accounts.Create(ctx, l.tenantID, appaccounting.CreateAccountRequest{
			Name: "Caja",
			Type: "Activo",
		})
		require.NoError(t, err)
		assert.Equal(t, "101", created.Code)
	})

	t.Run("rejects duplicate codes", func(t *testing.T) {
		l := newLedger(t)
		l.account(t, "101", "Caja", accounting.AccountTypeAsset)

		_, err := l.accounts.Create(ctx, l.tenantID, appaccounting.CreateAccountRequest{
			Code: "101",
			Name: "Caja Chica",
			Type: "Activo",
		})
		require.Error(t, err)
		assert.Equal(t, "ALREADY_EXISTS", shared.CodeOf(err))
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		l := newLedger(t)

		_, err := l.accounts.Create(ctx, l.tenantID, appaccounting.CreateAccountRequest{
			Name: "Otro",
			Type: "Orden",
		})
		require.Error(t, err)
		assert.Equal(t, "INVALID_ACCOUNT_TYPE", shared.CodeOf(err))
	})

	t.Run("publishes AccountCreated", func(t *testing.T) {
		l := newLedger(t)
		l.account(t, "101", "Caja", accounting.AccountTypeAsset)

		assert.Contains(t, l.publisher.Types(), accounting.EventTypeAccountCreated)
	})
}

func TestAccountService_EnsureSystemAccounts(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	first, err := l.accounts.EnsureSystemAccounts(ctx, l.tenantID)
	require.NoError(t, err)
	require.Len(t, first, len(accounting.SystemAccounts))

	second, err := l.accounts.EnsureSystemAccounts(ctx, l.tenantID)
	require.NoError(t, err)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "system account %s provisioned twice", first[i].Code)
		assert.True(t, second[i].IsSystem)
	}
}

func TestAccountService_Seed(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.account(t, "1", "Activo", accounting.AccountTypeAsset)

	result, err := l.accounts.Seed(ctx, l.tenantID, []appaccounting.SeedAccount{
		{Code: "1", Name: "Activo"},
		{Code: "11", Name: "Activo Circulante", Parent: "1"},
		{Code: "1101", Name: "Caja", Parent: "11"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"11", "1101"}, result.Created)
	assert.Equal(t, []string{"1"}, result.Skipped)

	cash, err := l.accounts.GetByCode(ctx, l.tenantID, "1101")
	require.NoError(t, err)
	assert.Equal(t, "Activo", cash.Type)
	require.NotNil(t, cash.ParentID)
}
