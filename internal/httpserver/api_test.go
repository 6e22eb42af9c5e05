package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"customer-address-manager/internal/domain"
	"customer-address-manager/internal/observability"
	"customer-address-manager/internal/repository/memory"
	addresssvc "customer-address-manager/internal/service/address"
	"customer-address-manager/internal/service/consistency"
	customersvc "customer-address-manager/internal/service/customer"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse[T any] struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       T                   `json:"data"`
	Errors     []domain.FieldError `json:"errors"`
	Pagination *domain.Pagination  `json:"pagination"`
}

func decode[T any](t *testing.T, body []byte) apiResponse[T] {
	t.Helper()
	var out apiResponse[T]
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func memoryRouter(t *testing.T) *gin.Engine {
	t.Helper()
	st := memory.New()
	reg := prometheus.NewRegistry()
	metrics := observability.New(reg)
	m := consistency.NewMaintainer(logDiscard(), metrics)
	return testRouter(t, Deps{
		CustomerSvc: customersvc.New(st, m, customersvc.Config{}, logDiscard()),
		AddressSvc:  addresssvc.New(st, m, addresssvc.Config{}),
		Store:       st,
		Metrics:     metrics,
		Gatherer:    reg,
	})
}

func TestCustomerAddressLifecycleOverHTTP(t *testing.T) {
	router := memoryRouter(t)

	rec := serve(router, http.MethodPost, "/customers", `{
		"first_name": "Ann", "last_name": "Lee", "phone_number": "5551112222",
		"addresses": [{"address_line1": "12 Oak St", "city": "Springfield", "state": "IL", "pin_code": "620001", "is_primary": true}]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Customer](t, rec.Body.Bytes())
	assert.True(t, created.Success)
	customerID := created.Data.ID
	firstAddressID := created.Data.Addresses[0].ID

	rec = serve(router, http.MethodGet, fmt.Sprintf("/customers/%d", customerID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.Customer](t, rec.Body.Bytes())
	assert.True(t, got.Data.OnlyOneAddress)
	assert.False(t, got.Data.HasMultipleAddresses)
	require.Len(t, got.Data.Addresses, 1)
	assert.True(t, got.Data.Addresses[0].IsPrimary)

	rec = serve(router, http.MethodPost, "/addresses", fmt.Sprintf(`{
		"customer_id": %d, "address_line1": "400 Elm Street", "city": "Springfield", "state": "IL", "pin_code": "620002", "is_primary": true
	}`, customerID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decode[domain.Address](t, rec.Body.Bytes())

	rec = serve(router, http.MethodGet, fmt.Sprintf("/customers/%d", customerID), "")
	got = decode[domain.Customer](t, rec.Body.Bytes())
	require.Len(t, got.Data.Addresses, 2)
	assert.Equal(t, second.Data.ID, got.Data.Addresses[0].ID)
	assert.True(t, got.Data.Addresses[0].IsPrimary)
	assert.Equal(t, firstAddressID, got.Data.Addresses[1].ID)
	assert.False(t, got.Data.Addresses[1].IsPrimary)
	assert.True(t, got.Data.HasMultipleAddresses)
	assert.False(t, got.Data.OnlyOneAddress)

	rec = serve(router, http.MethodGet, "/customers/multiple-addresses", "")
	multi := decode[[]domain.Customer](t, rec.Body.Bytes())
	require.Len(t, multi.Data, 1)
	require.NotNil(t, multi.Data[0].AddressCount)
	assert.Equal(t, 2, *multi.Data[0].AddressCount)

	rec = serve(router, http.MethodDelete, fmt.Sprintf("/addresses/%d", second.Data.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, fmt.Sprintf("/addresses/customer/%d", customerID), "")
	remaining := decode[[]domain.Address](t, rec.Body.Bytes())
	require.Len(t, remaining.Data, 1)
	assert.False(t, remaining.Data[0].IsPrimary)

	rec = serve(router, http.MethodPost, "/customers", `{"first_name": "Bo", "last_name": "Ray", "phone_number": "5551112222"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	conflict := decode[any](t, rec.Body.Bytes())
	assert.False(t, conflict.Success)
	assert.Equal(t, "Customer with this phone number already exists", conflict.Message)

	rec = serve(router, http.MethodPut, fmt.Sprintf("/customers/%d", customerID), `{
		"first_name": "Ann", "last_name": "Lee", "phone_number": "5551112222", "addresses": []
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Customer](t, rec.Body.Bytes())
	assert.Empty(t, updated.Data.Addresses)
	assert.False(t, updated.Data.HasMultipleAddresses)
	assert.False(t, updated.Data.OnlyOneAddress)

	rec = serve(router, http.MethodDelete, fmt.Sprintf("/customers/%d", customerID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Customer deleted successfully", decode[any](t, rec.Body.Bytes()).Message)

	rec = serve(router, http.MethodGet, fmt.Sprintf("/customers/%d", customerID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, http.MethodGet, fmt.Sprintf("/addresses?customer_id=%d", customerID), "")
	list := decode[[]domain.AddressDetail](t, rec.Body.Bytes())
	assert.Empty(t, list.Data)
	require.NotNil(t, list.Pagination)
	assert.Zero(t, list.Pagination.Total)
}

func TestCreateCustomerValidationOverHTTP(t *testing.T) {
	router := memoryRouter(t)

	rec := serve(router, http.MethodPost, "/customers", `{
		"first_name": "Ann", "last_name": "Lee", "phone_number": "555-111-22",
		"addresses": [{"address_line1": "12", "city": "Springfield", "state": "IL", "pin_code": "620001"}]
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[any](t, rec.Body.Bytes())
	assert.Equal(t, "Validation failed", body.Message)

	fields := map[string]bool{}
	for _, f := range body.Errors {
		fields[f.Field] = true
	}
	assert.True(t, fields["phone_number"])
	assert.True(t, fields["addresses[0].address_line1"])

	rec = serve(router, http.MethodGet, "/dashboard/stats", "")
	stats := decode[domain.Stats](t, rec.Body.Bytes())
	assert.Zero(t, stats.Data.TotalCustomers)
}

func TestAddressForMissingCustomerOverHTTP(t *testing.T) {
	router := memoryRouter(t)

	rec := serve(router, http.MethodPost, "/addresses", `{
		"customer_id": 404, "address_line1": "400 Elm Street", "city": "Springfield", "state": "IL", "pin_code": "620002"
	}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Customer not found", decode[any](t, rec.Body.Bytes()).Message)

	rec = serve(router, http.MethodGet, "/addresses/customer/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "customer_address_http_requests_total")
}

func TestHugePageOverHTTP(t *testing.T) {
	router := memoryRouter(t)

	rec := serve(router, http.MethodPost, "/customers", `{"first_name": "Ann", "last_name": "Lee", "phone_number": "5551112222"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, path := range []string{
		"/customers?page=100000000000000001&limit=100",
		"/addresses?page=100000000000000001&limit=100",
	} {
		rec = serve(router, http.MethodGet, path, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		body := decode[any](t, rec.Body.Bytes())
		require.Len(t, body.Errors, 1, path)
		assert.Equal(t, "page", body.Errors[0].Field)
	}

	rec = serve(router, http.MethodGet, "/customers?page=1000000&limit=100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[[]domain.Customer](t, rec.Body.Bytes())
	assert.Empty(t, page.Data)
	assert.Equal(t, 1, page.Pagination.Total)
}

func TestWrongJSONTypeOverHTTP(t *testing.T) {
	router := memoryRouter(t)

	rec := serve(router, http.MethodPost, "/customers", `{"first_name": "Ann", "last_name": "Lee", "phone_number": 5551112222}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[any](t, rec.Body.Bytes())
	assert.Equal(t, "Validation failed", body.Message)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, domain.FieldError{Field: "phone_number", Message: "must be of type string"}, body.Errors[0])

	rec = serve(router, http.MethodPut, "/addresses/1", `{"address_line1": "12 Oak Street", "city": "Pune", "state": "MH", "pin_code": "411001", "is_primary": "yes"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body = decode[any](t, rec.Body.Bytes())
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "is_primary", body.Errors[0].Field)
}
