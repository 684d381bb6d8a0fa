package memory

import (
	"citydesk/pkg/domain"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRule struct{}

func (blockingRule) Name() string { return "blocking" }

func (blockingRule) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, c := range view.ListCities() {
		if c.Name == "" {
			res.Violations = append(res.Violations, domain.Violation{Rule: "blocking", Severity: domain.SeverityBlock, Entity: domain.EntityCity, EntityID: c.ID})
		}
	}
	return res, nil
}

func createCity(t *testing.T, store *Store, city City) City {
	t.Helper()
	var created City
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		created, err = tx.CreateCity(city)
		return err
	})
	require.NoError(t, err)
	return created
}

func TestCreateCityAssignsIdentifiers(t *testing.T) {
	store := NewStore(nil)
	first := createCity(t, store, City{ID: 99, Name: "Rio", Commerces: []Commerce{
		{ID: 50, Name: "Farmacia Boa", Responsible: "Ana", Type: domain.CommercePharmacy, CityID: 42},
	}})

	assert.Equal(t, int64(1), first.ID, "incoming id must be ignored")
	require.Len(t, first.Commerces, 1)
	assert.Equal(t, int64(1), first.Commerces[0].ID)
	assert.Equal(t, first.ID, first.Commerces[0].CityID)

	second := createCity(t, store, City{Name: "Foz"})
	assert.Equal(t, int64(2), second.ID)
	assert.NotNil(t, second.Commerces)
	assert.Empty(t, second.Commerces)

	cities := store.ListCities()
	require.Len(t, cities, 2)
	assert.Equal(t, "Rio", cities[0].Name)
	assert.Equal(t, "Foz", cities[1].Name)
}

func TestUpdateCityReplacesCommerces(t *testing.T) {
	store := NewStore(nil)
	city := createCity(t, store, City{Name: "SP", Commerces: []Commerce{
		{Name: "Padaria", Responsible: "Joao", Type: domain.CommerceBakery},
		{Name: "Posto", Responsible: "Maria", Type: domain.CommerceGasStation},
	}})
	other := createCity(t, store, City{Name: "Curitiba", Commerces: []Commerce{{Name: "Lanche", Responsible: "Rui", Type: domain.CommerceSnackBar}}})
	kept := city.Commerces[0]
	stolen := other.Commerces[0]

	var updated City
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateCity(city.ID, func(c *City) error {
			c.ID = 1000
			c.Name = "Sao Paulo"
			kept.Name = "Padaria Nova"
			c.Commerces = []Commerce{kept, stolen, {Name: "Farmacia", Responsible: "Lia", Type: domain.CommercePharmacy}}
			return nil
		})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, city.ID, updated.ID)
	assert.Equal(t, "Sao Paulo", updated.Name)
	require.Len(t, updated.Commerces, 3)
	assert.Equal(t, kept.ID, updated.Commerces[0].ID)
	assert.Equal(t, "Padaria Nova", updated.Commerces[0].Name)
	for _, c := range updated.Commerces {
		assert.Equal(t, city.ID, c.CityID)
		assert.NotEqual(t, stolen.ID, c.ID, "a commerce owned by another city is inserted as new")
	}

	got, ok := store.GetCity(other.ID)
	require.True(t, ok)
	require.Len(t, got.Commerces, 1, "other city keeps its commerce")
	assert.Len(t, store.ListCommerces(), 4)
}

func TestDeleteCityCascadesCommerces(t *testing.T) {
	store := NewStore(nil)
	city := createCity(t, store, City{Name: "Rio", Commerces: []Commerce{{Name: "A"}, {Name: "B"}}})
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.DeleteCity(city.ID)
	})
	require.NoError(t, err)
	assert.Empty(t, store.ListCities())
	assert.Empty(t, store.ListCommerces())

	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.DeleteCity(city.ID)
	})
	var nf domain.ErrNotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, domain.EntityCity, nf.Entity)
}

func TestCommerceLifecycle(t *testing.T) {
	store := NewStore(nil)
	rio := createCity(t, store, City{Name: "Rio"})
	foz := createCity(t, store, City{Name: "Foz"})
	ctx := context.Background()

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateCommerce(Commerce{Name: "Orphan", CityID: 77})
		return err
	})
	var nf domain.ErrNotFound
	require.True(t, errors.As(err, &nf))

	var created Commerce
	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		created, err = tx.CreateCommerce(Commerce{ID: 5, Name: "Padaria", Responsible: "Ana", Type: domain.CommerceBakery, CityID: rio.ID})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdateCommerce(created.ID, func(c *Commerce) error {
			c.CityID = foz.ID
			return nil
		})
		return err
	})
	require.NoError(t, err)
	moved, ok := store.GetCity(foz.ID)
	require.True(t, ok)
	require.Len(t, moved.Commerces, 1)

	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdateCommerce(created.ID, func(c *Commerce) error {
			c.CityID = 404
			return nil
		})
		return err
	})
	require.Error(t, err)

	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteCommerce(created.ID)
	})
	require.NoError(t, err)
	assert.Empty(t, store.ListCommerces())

	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteCommerce(created.ID)
	})
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, domain.EntityCommerce, nf.Entity)
}

func TestRunInTransactionRollsBackOnErrorAndBlockingRule(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockingRule{})
	store := NewStore(engine)
	createCity(t, store, City{Name: "Rio"})

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateCity(City{Name: "Foz"}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")
	assert.Len(t, store.ListCities(), 1)

	res, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateCity(City{})
		return err
	})
	var violation domain.RuleViolationError
	require.True(t, errors.As(err, &violation))
	assert.True(t, res.HasBlocking())
	assert.Len(t, store.ListCities(), 1)
	assert.Same(t, engine, store.RulesEngine())
}

func TestSnapshotRoundTripRepairsState(t *testing.T) {
	store := NewStore(nil)
	city := createCity(t, store, City{Name: "Rio", Commerces: []Commerce{{Name: "A"}}})
	snap := store.ExportState()
	assert.Equal(t, Sequences{City: 1, Commerce: 1}, snap.Sequences)

	snap.Commerces[9] = Commerce{ID: 9, Name: "orphan", CityID: 55}
	snap.Sequences = Sequences{}

	restored := NewStore(nil)
	restored.ImportState(snap)
	assert.Len(t, restored.ListCommerces(), 1, "orphaned commerce dropped")

	next := createCity(t, restored, City{Name: "Foz"})
	assert.Equal(t, city.ID+1, next.ID, "sequence repaired from stored ids")
}

func TestViewAndTransactionFinders(t *testing.T) {
	store := NewStore(nil)
	city := createCity(t, store, City{Name: "Rio", Commerces: []Commerce{{Name: "A"}}})

	err := store.View(context.Background(), func(view TransactionView) error {
		got, ok := view.FindCity(city.ID)
		require.True(t, ok)
		assert.Len(t, got.Commerces, 1)
		_, ok = view.FindCity(404)
		assert.False(t, ok)
		c, ok := view.FindCommerce(got.Commerces[0].ID)
		require.True(t, ok)
		assert.Equal(t, "A", c.Name)
		assert.Len(t, view.ListCommerces(), 1)
		return nil
	})
	require.NoError(t, err)

	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, ok := tx.FindCity(city.ID)
		assert.True(t, ok)
		_, ok = tx.FindCommerce(404)
		assert.False(t, ok)
		assert.Len(t, tx.Snapshot().ListCities(), 1)
		return nil
	})
	require.NoError(t, err)
	assert.Contains(t, store.String(), "cities:1")
}

func TestReadsReturnCopies(t *testing.T) {
	store := NewStore(nil)
	city := createCity(t, store, City{Name: "Rio", Commerces: []Commerce{{Name: "A"}}})
	got, _ := store.GetCity(city.ID)
	got.Commerces[0].Name = "mutated"
	again, _ := store.GetCity(city.ID)
	assert.Equal(t, "A", again.Commerces[0].Name)
}
