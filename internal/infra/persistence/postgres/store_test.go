package postgres

import (
	"citydesk/internal/infra/persistence/postgres/testutil"
	"citydesk/pkg/domain"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStub(t *testing.T) *testutil.StubConn {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		assert.Equal(t, defaultDriver, driverName)
		assert.Equal(t, defaultDSN, dsn)
		return db, nil
	})
	t.Cleanup(restore)
	return conn
}

func TestStorePersistsSnapshotBuckets(t *testing.T) {
	conn := openStub(t)
	ctx := context.Background()

	store, err := NewStore(ctx, "", domain.NewRulesEngine())
	require.NoError(t, err)
	require.NotNil(t, store.DB())
	assert.Contains(t, conn.Statements()[0], "CREATE TABLE IF NOT EXISTS state")

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateCity(domain.City{Name: "Curitiba", Commerces: []domain.Commerce{
			{Name: "Posto", Responsible: "Lia", Type: domain.CommerceGasStation},
		}})
		return err
	})
	require.NoError(t, err)

	for _, bucket := range []string{"cities", "commerces", "sequences"} {
		_, ok := conn.Bucket(bucket)
		assert.True(t, ok, bucket)
	}
	payload, _ := conn.Bucket("sequences")
	var seq map[string]int64
	require.NoError(t, json.Unmarshal(payload, &seq))
	assert.Equal(t, int64(1), seq["city"])
	assert.Equal(t, int64(1), seq["commerce"])
}

func TestStoreHydratesFromExistingSnapshot(t *testing.T) {
	conn := openStub(t)
	conn.State["cities"] = []byte(`{"7":{"id":7,"nome":"Foz","comercios":[]}}`)
	conn.State["commerces"] = []byte(`{"3":{"id":3,"nome":"Padaria","responsavel":"Rui","tipo":"PADARIA","cidadeId":7}}`)

	store, err := NewStore(context.Background(), "", nil)
	require.NoError(t, err)
	city, ok := store.GetCity(7)
	require.True(t, ok)
	assert.Equal(t, "Foz", city.Name)
	require.Len(t, city.Commerces, 1)
	assert.Equal(t, domain.CommerceBakery, city.Commerces[0].Type)
}

func TestStoreOpenFailures(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) {
			return nil, errors.New("boom")
		})
		t.Cleanup(restore)
		_, err := NewStore(context.Background(), "postgres://x", nil)
		require.ErrorContains(t, err, "open postgres")
	})
	t.Run("ping", func(t *testing.T) {
		conn := openStub(t)
		conn.FailPing = true
		_, err := NewStore(context.Background(), "", nil)
		require.ErrorContains(t, err, "ping postgres")
	})
	t.Run("query", func(t *testing.T) {
		conn := openStub(t)
		conn.FailQuery = true
		_, err := NewStore(context.Background(), "", nil)
		require.ErrorContains(t, err, "select state")
	})
	t.Run("decode", func(t *testing.T) {
		conn := openStub(t)
		conn.State["cities"] = []byte(`not json`)
		_, err := NewStore(context.Background(), "", nil)
		require.ErrorContains(t, err, "decode cities")
	})
}

func TestStorePersistFailuresSurface(t *testing.T) {
	conn := openStub(t)
	ctx := context.Background()
	store, err := NewStore(ctx, "", nil)
	require.NoError(t, err)

	create := func(tx domain.Transaction) error {
		_, err := tx.CreateCity(domain.City{Name: "Rio"})
		return err
	}

	conn.FailBegin = true
	_, err = store.RunInTransaction(ctx, create)
	require.ErrorContains(t, err, "begin tx")
	conn.FailBegin = false

	conn.FailCommit = true
	_, err = store.RunInTransaction(ctx, create)
	require.ErrorContains(t, err, "commit")
	conn.FailCommit = false

	_, err = store.RunInTransaction(ctx, func(domain.Transaction) error { return errors.New("abort") })
	require.EqualError(t, err, "abort")
}
