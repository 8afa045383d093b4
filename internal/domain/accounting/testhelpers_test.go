package accounting

import (
	"testing"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testActor(tenantID uuid.UUID) shared.Actor {
	return shared.UserActor(uuid.New(), tenantID)
}

func mustAccount(t *testing.T, tenantID uuid.UUID, code, name string, typ AccountType) *Account {
	t.Helper()
	a, err := NewAccount(tenantID, code, name, typ)
	require.NoError(t, err)
	return a
}
