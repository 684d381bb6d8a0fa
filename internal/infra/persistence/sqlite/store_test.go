package sqlite

import (
	"citydesk/pkg/domain"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "citydesk.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	ctx := context.Background()
	var created domain.City
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		created, err = tx.CreateCity(domain.City{Name: "Rio", Commerces: []domain.Commerce{
			{Name: "Padaria", Responsible: "Ana", Type: domain.CommerceBakery},
		}})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(path, domain.NewRulesEngine())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, ok := reopened.GetCity(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Rio", got.Name)
	require.Len(t, got.Commerces, 1)
	assert.Equal(t, created.ID, got.Commerces[0].CityID)

	var next domain.City
	_, err = reopened.RunInTransaction(ctx, func(tx domain.Transaction) error {
		next, err = tx.CreateCity(domain.City{Name: "Foz"})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID+1, next.ID, "sequence survives reopen")
}

func TestStoreDoesNotPersistFailedTransactions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citydesk.db")
	store, err := NewStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteCity(404)
	})
	require.Error(t, err)

	var count int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count))
	assert.Zero(t, count)
}
