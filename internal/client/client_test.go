package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"citydesk/internal/adapters/cidades"
	"citydesk/internal/core"
	"citydesk/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *Client {
	t.Helper()
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	handler := cidades.NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(cidades.NewRouter(handler, nil))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", WithTimeout(5*time.Second))
}

func TestClientCityRoundTrip(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()

	cities, err := c.ListCities(ctx)
	require.NoError(t, err)
	assert.NotNil(t, cities)
	assert.Empty(t, cities)

	created, err := c.CreateCity(ctx, domain.City{ID: 42, Name: "Foz", Commerces: []domain.Commerce{}})
	require.NoError(t, err)
	assert.NotEqual(t, int64(42), created.ID)

	created.Name = "Foz do Iguacu"
	updated, err := c.UpdateCity(ctx, created.ID, created)
	require.NoError(t, err)
	assert.Equal(t, "Foz do Iguacu", updated.Name)

	got, err := c.GetCity(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	require.NoError(t, c.DeleteCity(ctx, created.ID))
	require.NoError(t, c.DeleteCity(ctx, created.ID), "deleting twice succeeds")

	_, err = c.GetCity(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "404")
}

func TestClientCommerceRoundTrip(t *testing.T) {
	c := newBackend(t)
	ctx := context.Background()
	city, err := c.CreateCity(ctx, domain.City{Name: "Rio"})
	require.NoError(t, err)

	commerce, err := c.CreateCommerce(ctx, domain.Commerce{Name: "Farmacia", Responsible: "Ana", Type: domain.CommercePharmacy, CityID: city.ID})
	require.NoError(t, err)
	assert.Equal(t, city.ID, commerce.CityID)

	commerce.Type = domain.CommerceSnackBar
	updated, err := c.UpdateCommerce(ctx, commerce.ID, commerce)
	require.NoError(t, err)
	assert.Equal(t, domain.CommerceSnackBar, updated.Type)

	all, err := c.ListCommerces(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, c.DeleteCommerce(ctx, commerce.ID))
	require.NoError(t, c.DeleteCommerce(ctx, commerce.ID))

	_, err = c.CreateCommerce(ctx, domain.Commerce{Name: "X", Responsible: "Y", Type: "BANCO", CityID: city.ID})
	assert.True(t, IsStatus(err, http.StatusBadRequest))
}

func TestClientSendsHeadersAndPayload(t *testing.T) {
	var (
		gotMethod, gotPath, gotID, gotType string
		gotBody                            domain.City
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotID = r.Header.Get(RequestIDHeader)
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gotBody)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithRequestIDs(func() string { return "fixed-id" }), WithHTTPClient(srv.Client()))
	payload := domain.City{ID: 5, Name: "SP", Commerces: []domain.Commerce{{ID: 9, Name: "Lanche", CityID: 5}}}
	_, err := c.UpdateCity(context.Background(), 5, payload)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/cidades/5", gotPath)
	assert.Equal(t, "fixed-id", gotID)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, payload, gotBody)
}

func TestClientReportsTransportAndDecodeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))
	c := New(srv.URL)
	_, err := c.ListCities(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")

	srv.Close()
	_, err = c.ListCities(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "performing request")
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestHTTPErrorMessage(t *testing.T) {
	assert.Equal(t, "citydesk API error: 502 Bad Gateway", (&HTTPError{StatusCode: 502, Status: "502 Bad Gateway"}).Error())
	assert.Equal(t, `citydesk API error 400 Bad Request: {"error":"x"}`,
		(&HTTPError{StatusCode: 400, Status: "400 Bad Request", Body: "{\"error\":\"x\"}\n"}).Error())
}
