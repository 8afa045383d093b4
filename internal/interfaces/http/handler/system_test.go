package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/erp/fiscal/internal/interfaces/http/dto"
	"github.com/erp/fiscal/tests/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSystemHandler(t *testing.T) {
	h := NewSystemHandler("fiscal-ledger", "1.2.0")

	testutil.RunHTTPTestCase(t, h.GetSystemInfo, testutil.HTTPTestCase{
		Name:           "info",
		ExpectedStatus: http.StatusOK,
		Validate: func(t *testing.T, tc *testutil.TestContext) {
			info := testutil.JSONData[SystemInfoResponse](t, tc)
			assert.Equal(t, "fiscal-ledger", info.Name)
			assert.Equal(t, "1.2.0", info.Version)
			assert.NotEmpty(t, info.GoVersion)
		},
	})

	testutil.RunHTTPTestCase(t, h.Health, testutil.HTTPTestCase{
		Name:           "health",
		ExpectedStatus: http.StatusOK,
		Validate: func(t *testing.T, tc *testutil.TestContext) {
			assert.Equal(t, "healthy", testutil.JSONResponse(t, tc)["status"])
		},
	})

	testutil.RunHTTPTestCase(t, h.Ping, testutil.HTTPTestCase{
		Name:           "ping",
		ExpectedStatus: http.StatusOK,
	})
}

func TestSystemHandler_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }

	t.Run("every check passes", func(t *testing.T) {
		h := NewSystemHandler("fiscal-ledger", "dev").AddCheck("database", ok).AddCheck("redis", ok)

		testutil.RunHTTPTestCase(t, h.Ready, testutil.HTTPTestCase{
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				resp := testutil.JSONData[ReadinessResponse](t, tc)
				assert.Equal(t, "ready", resp.Status)
				assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, resp.Checks)
			},
		})
	})

	t.Run("a failing check makes the service unready", func(t *testing.T) {
		h := NewSystemHandler("fiscal-ledger", "dev").
			AddCheck("database", ok).
			AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })

		testutil.RunHTTPTestCase(t, h.Ready, testutil.HTTPTestCase{
			ExpectedStatus: http.StatusServiceUnavailable,
			ExpectedCode:   dto.ErrCodeUnavailable,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				data := testutil.JSONResponse(t, tc)["data"].(map[string]any)
				assert.Equal(t, "unready", data["status"])
				assert.Equal(t, "error", data["checks"].(map[string]any)["redis"])
			},
		})
	})

	t.Run("no checks", func(t *testing.T) {
		testutil.RunHTTPTestCase(t, NewSystemHandler("fiscal-ledger", "dev").Ready, testutil.HTTPTestCase{
			ExpectedStatus: http.StatusOK,
		})
	})
}
