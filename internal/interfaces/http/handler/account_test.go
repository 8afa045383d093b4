package handler

import (
	"net/http"
	"testing"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/erp/fiscal/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountHandler(t *testing.T) {
	t.Run("creates and fetches an account", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodPost, "/api/v1/accounts", map[string]any{"code": "1101", "name": "Caja", "type": "Activo"})
		requireStatus(t, w, http.StatusCreated)
		created := decodeData[appaccounting.AccountResponse](t, w)
		assert.Equal(t, "1101", created.Code)
		assert.Equal(t, s.tenantID, created.TenantID)

		w = s.do(t, http.MethodGet, "/api/v1/accounts/"+created.ID.String(), nil)
		requireStatus(t, w, http.StatusOK)
		assert.Equal(t, "Caja", decodeData[appaccounting.AccountResponse](t, w).Name)

		w = s.do(t, http.MethodGet, "/api/v1/accounts/code/1101", nil)
		requireStatus(t, w, http.StatusOK)
		assert.Equal(t, created.ID, decodeData[appaccounting.AccountResponse](t, w).ID)
	})

	t.Run("rejects an unknown account type", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodPost, "/api/v1/accounts", map[string]any{"name": "Caja", "type": "Asset"})
		requireStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
	})

	t.Run("malformed JSON", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodPost, "/api/v1/accounts", `{"name":`)
		requireStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, dto.ErrCodeInvalidJSON, errorCode(t, w))
	})

	t.Run("duplicate code is a conflict", func(t *testing.T) {
		s := newTestServer(t)

		body := map[string]any{"code": "1101", "name": "Caja", "type": "Activo"}
		requireStatus(t, s.do(t, http.MethodPost, "/api/v1/accounts", body), http.StatusCreated)
		w := s.do(t, http.MethodPost, "/api/v1/accounts", body)
		requireStatus(t, w, http.StatusConflict)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodGet, "/api/v1/accounts/"+uuid.NewString(), nil)
		requireStatus(t, w, http.StatusNotFound)
		assert.Equal(t, "NOT_FOUND", errorCode(t, w))
	})

	t.Run("invalid id", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodGet, "/api/v1/accounts/not-a-uuid", nil)
		requireStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, dto.ErrCodeBadRequest, errorCode(t, w))
	})

	t.Run("system accounts are provisioned once", func(t *testing.T) {
		s := newTestServer(t)

		first := s.do(t, http.MethodPost, "/api/v1/accounts/system", nil)
		requireStatus(t, first, http.StatusOK)
		second := s.do(t, http.MethodPost, "/api/v1/accounts/system", nil)
		requireStatus(t, second, http.StatusOK)

		w := s.do(t, http.MethodGet, "/api/v1/accounts?is_system=true&page_size=100", nil)
		requireStatus(t, w, http.StatusOK)
		assert.Len(t, decodeData[[]appaccounting.AccountResponse](t, w),
			len(decodeData[[]appaccounting.AccountResponse](t, first)))
	})

	t.Run("seeds a chart parents first", func(t *testing.T) {
		s := newTestServer(t)

		seed := []appaccounting.SeedAccount{
			{Code: "1", Name: "Activo", Type: "Activo"},
			{Code: "11", Name: "Activo Circulante", Type: "Activo", Parent: "1"},
		}
		w := s.do(t, http.MethodPost, "/api/v1/accounts/seed", seed)
		requireStatus(t, w, http.StatusOK)
		result := decodeData[appaccounting.SeedResult](t, w)
		assert.ElementsMatch(t, []string{"1", "11"}, result.Created)

		w = s.do(t, http.MethodGet, "/api/v1/accounts", nil)
		requireStatus(t, w, http.StatusOK)
		assert.EqualValues(t, 2, metaOf(t, w).Total)
	})

	t.Run("anonymous requests are rejected", func(t *testing.T) {
		s := newTestServer(t)
		s.anonymous = true

		w := s.do(t, http.MethodGet, "/api/v1/accounts", nil)
		requireStatus(t, w, http.StatusUnauthorized)
		assert.Equal(t, dto.ErrCodeUnauthorized, errorCode(t, w))
	})
}

func TestAccountHandler_UpdateKeepsCode(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/accounts", map[string]any{"code": "5101", "name": "Sueldos", "type": "Gasto"})
	requireStatus(t, w, http.StatusCreated)
	created := decodeData[appaccounting.AccountResponse](t, w)

	w = s.do(t, http.MethodPut, "/api/v1/accounts/"+created.ID.String(), map[string]any{"name": "Sueldos y Salarios"})
	requireStatus(t, w, http.StatusOK)
	updated := decodeData[appaccounting.AccountResponse](t, w)
	require.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Sueldos y Salarios", updated.Name)
	assert.Equal(t, "5101", updated.Code)
}
