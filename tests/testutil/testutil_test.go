package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/interfaces/http/middleware"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	mockDB.ExpectationsWereMet(t)
}

func TestTestContext_SetActor(t *testing.T) {
	tc := NewTestContext(t)
	tc.SetActor(TestActor())

	val, exists := tc.Context.Get(middleware.ActorKey)
	require.True(t, exists)
	actor := val.(shared.Actor)
	assert.Equal(t, TestTenantID(), actor.TenantID)
}

func TestTestContext_SetHeader(t *testing.T) {
	tc := NewTestContext(t)
	tc.SetHeader("X-Tenant-ID", "t-1")

	assert.Equal(t, "t-1", tc.Context.Request.Header.Get("X-Tenant-ID"))
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("seed"), NewTestUUID("seed"))
	assert.NotEqual(t, NewTestUUID("seed"), NewTestUUID("other"))
	assert.NotEqual(t, uuid.Nil, TestTenantID())
}

func TestContextWithTimeout(t *testing.T) {
	ctx := ContextWithTimeout(t, time.Second)

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.True(t, deadline.After(time.Now()))
}

func TestAssertEventually(t *testing.T) {
	start := time.Now()
	AssertEventually(t, func() bool {
		return time.Since(start) > 20*time.Millisecond
	}, time.Second, 5*time.Millisecond)
}

func TestAssertNever(t *testing.T) {
	AssertNever(t, func() bool { return false }, 30*time.Millisecond, 10*time.Millisecond)
}

func TestRunHTTPTestCases(t *testing.T) {
	actor := TestActor()
	handler := func(c *gin.Context) {
		if _, ok := c.Get(middleware.ActorKey); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"code": "UNAUTHORIZED"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"path": c.Request.URL.Path}})
	}

	RunHTTPTestCases(t, handler, []HTTPTestCase{
		{
			Name:           "anonymous",
			Path:           "/ledger",
			ExpectedStatus: http.StatusUnauthorized,
			ExpectedCode:   "UNAUTHORIZED",
		},
		{
			Name:           "authenticated",
			Path:           "/ledger",
			Actor:          &actor,
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, tc *TestContext) {
				AssertSuccessResponse(t, tc)
				data := JSONData[map[string]string](t, tc)
				assert.Equal(t, "/ledger", data["path"])
			},
		},
	})
}

func TestToJSONReader(t *testing.T) {
	require.NotNil(t, ToJSONReader(t, map[string]string{"key": "value"}))
}
