package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateCity(City) (City, error)
	UpdateCity(id int64, mutator func(*City) error) (City, error)
	DeleteCity(id int64) error
	CreateCommerce(Commerce) (Commerce, error)
	UpdateCommerce(id int64, mutator func(*Commerce) error) (Commerce, error)
	DeleteCommerce(id int64) error
	FindCity(id int64) (City, bool)
	FindCommerce(id int64) (Commerce, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListCities() []City
	FindCity(id int64) (City, bool)
	ListCommerces() []Commerce
	FindCommerce(id int64) (Commerce, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCity(id int64) (City, bool)
	ListCities() []City
	ListCommerces() []Commerce
}
