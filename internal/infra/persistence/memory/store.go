// Package memory provides an in-memory implementation of the city persistence
// store used for tests, ephemeral environments, and as the transactional core
// of the snapshotting sqlite and postgres stores.
package memory

import (
	"citydesk/pkg/domain"
	"context"
	"fmt"
	"sort"
	"sync"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// City aliases domain.City for in-memory persistence operations.
	City = domain.City
	// Commerce aliases domain.Commerce.
	Commerce = domain.Commerce
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// cities hold only the city row; commerces are kept in their own table and
// joined on read so ownership is always derived from Commerce.CityID.
type memoryState struct {
	cities       map[int64]City
	commerces    map[int64]Commerce
	nextCity     int64
	nextCommerce int64
}

// Sequences records the identifier counters so persisted snapshots never
// reuse an id after a restart.
type Sequences struct {
	City     int64 `json:"city"`
	Commerce int64 `json:"commerce"`
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Cities    map[int64]City     `json:"cities"`
	Commerces map[int64]Commerce `json:"commerces"`
	Sequences Sequences          `json:"sequences"`
}

func newMemoryState() memoryState {
	return memoryState{
		cities:    make(map[int64]City),
		commerces: make(map[int64]Commerce),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.cities {
		cloned.cities[k] = cityRow(v)
	}
	for k, v := range s.commerces {
		cloned.commerces[k] = v
	}
	cloned.nextCity = s.nextCity
	cloned.nextCommerce = s.nextCommerce
	return cloned
}

// cityRow strips the embedded commerces; they live in the commerces table.
func cityRow(c City) City {
	return City{ID: c.ID, Name: c.Name}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Cities:    make(map[int64]City, len(state.cities)),
		Commerces: make(map[int64]Commerce, len(state.commerces)),
		Sequences: Sequences{City: state.nextCity, Commerce: state.nextCommerce},
	}
	for k, v := range state.cities {
		s.Cities[k] = cityRow(v)
	}
	for k, v := range state.commerces {
		s.Commerces[k] = v
	}
	return s
}

// memoryStateFromSnapshot drops orphaned commerces and repairs sequences that
// lag behind the highest stored identifier.
func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Cities {
		v.ID = k
		state.cities[k] = cityRow(v)
		if k > state.nextCity {
			state.nextCity = k
		}
	}
	for k, v := range s.Commerces {
		if _, ok := state.cities[v.CityID]; !ok {
			continue
		}
		v.ID = k
		state.commerces[k] = v
		if k > state.nextCommerce {
			state.nextCommerce = k
		}
	}
	if s.Sequences.City > state.nextCity {
		state.nextCity = s.Sequences.City
	}
	if s.Sequences.Commerce > state.nextCommerce {
		state.nextCommerce = s.Sequences.Commerce
	}
	return state
}

// assemble joins a city row with its commerces ordered by id.
func (s *memoryState) assemble(row City) City {
	out := cityRow(row)
	out.Commerces = s.commercesOf(row.ID)
	return out
}

func (s *memoryState) commercesOf(cityID int64) []Commerce {
	out := []Commerce{}
	for _, c := range s.commerces {
		if c.CityID == cityID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryState) listCities() []City {
	out := make([]City, 0, len(s.cities))
	for _, row := range s.cities {
		out = append(out, s.assemble(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryState) listCommerces() []Commerce {
	out := make([]Commerce, 0, len(s.commerces))
	for _, c := range s.commerces {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Store provides an in-memory transactional store for the city domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

type transaction struct {
	state   memoryState
	changes []Change
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListCities returns all cities with their commerces ordered by id.
func (v transactionView) ListCities() []City {
	return v.state.listCities()
}

// FindCity looks up a city within the snapshot.
func (v transactionView) FindCity(id int64) (City, bool) {
	row, ok := v.state.cities[id]
	if !ok {
		return City{}, false
	}
	return v.state.assemble(row), true
}

// ListCommerces returns all commerces ordered by id.
func (v transactionView) ListCommerces() []Commerce {
	return v.state.listCommerces()
}

// FindCommerce looks up a commerce within the snapshot.
func (v transactionView) FindCommerce(id int64) (Commerce, bool) {
	c, ok := v.state.commerces[id]
	return c, ok
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy only replaces committed state when fn succeeds and no blocking rule
// violation is reported.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(&tx.state), tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindCity exposes city lookup within the transaction scope.
func (tx *transaction) FindCity(id int64) (City, bool) {
	return newTransactionView(&tx.state).FindCity(id)
}

// FindCommerce exposes commerce lookup within the transaction scope.
func (tx *transaction) FindCommerce(id int64) (Commerce, bool) {
	c, ok := tx.state.commerces[id]
	return c, ok
}

// CreateCity stores a new city. Any incoming identifier is ignored; embedded
// commerces are created alongside it and bound to the new city id.
func (tx *transaction) CreateCity(c City) (City, error) {
	tx.state.nextCity++
	id := tx.state.nextCity
	tx.state.cities[id] = City{ID: id, Name: c.Name}
	for _, commerce := range c.Commerces {
		commerce.ID = 0
		commerce.CityID = id
		tx.insertCommerce(commerce)
	}
	created := tx.state.assemble(tx.state.cities[id])
	tx.recordChange(Change{Entity: domain.EntityCity, Action: domain.ActionCreate, After: created.Clone()})
	return created, nil
}

// UpdateCity mutates a city using the provided mutator. The commerces in the
// mutated value replace the city's current set: known ids owned by the city
// are kept, unknown or zero ids are inserted, and missing ones are removed.
func (tx *transaction) UpdateCity(id int64, mutator func(*City) error) (City, error) {
	row, ok := tx.state.cities[id]
	if !ok {
		return City{}, domain.ErrNotFound{Entity: domain.EntityCity, ID: id}
	}
	before := tx.state.assemble(row)
	current := before.Clone()
	if err := mutator(&current); err != nil {
		return City{}, err
	}
	tx.state.cities[id] = City{ID: id, Name: current.Name}

	keep := make(map[int64]struct{}, len(current.Commerces))
	for _, commerce := range current.Commerces {
		commerce.CityID = id
		if existing, ok := tx.state.commerces[commerce.ID]; ok && commerce.ID != 0 && existing.CityID == id {
			tx.state.commerces[commerce.ID] = commerce
			keep[commerce.ID] = struct{}{}
			continue
		}
		commerce.ID = 0
		keep[tx.insertCommerce(commerce).ID] = struct{}{}
	}
	for cid, commerce := range tx.state.commerces {
		if commerce.CityID != id {
			continue
		}
		if _, ok := keep[cid]; !ok {
			delete(tx.state.commerces, cid)
		}
	}

	updated := tx.state.assemble(tx.state.cities[id])
	tx.recordChange(Change{Entity: domain.EntityCity, Action: domain.ActionUpdate, Before: before, After: updated.Clone()})
	return updated, nil
}

// DeleteCity removes a city and every commerce it owns.
func (tx *transaction) DeleteCity(id int64) error {
	row, ok := tx.state.cities[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityCity, ID: id}
	}
	before := tx.state.assemble(row)
	for cid, commerce := range tx.state.commerces {
		if commerce.CityID == id {
			delete(tx.state.commerces, cid)
		}
	}
	delete(tx.state.cities, id)
	tx.recordChange(Change{Entity: domain.EntityCity, Action: domain.ActionDelete, Before: before})
	return nil
}

// CreateCommerce stores a new commerce under an existing city.
func (tx *transaction) CreateCommerce(c Commerce) (Commerce, error) {
	if _, ok := tx.state.cities[c.CityID]; !ok {
		return Commerce{}, domain.ErrNotFound{Entity: domain.EntityCity, ID: c.CityID}
	}
	c.ID = 0
	created := tx.insertCommerce(c)
	tx.recordChange(Change{Entity: domain.EntityCommerce, Action: domain.ActionCreate, After: created})
	return created, nil
}

// UpdateCommerce mutates a commerce; moving it requires the target city to exist.
func (tx *transaction) UpdateCommerce(id int64, mutator func(*Commerce) error) (Commerce, error) {
	current, ok := tx.state.commerces[id]
	if !ok {
		return Commerce{}, domain.ErrNotFound{Entity: domain.EntityCommerce, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Commerce{}, err
	}
	current.ID = id
	if _, ok := tx.state.cities[current.CityID]; !ok {
		return Commerce{}, domain.ErrNotFound{Entity: domain.EntityCity, ID: current.CityID}
	}
	tx.state.commerces[id] = current
	tx.recordChange(Change{Entity: domain.EntityCommerce, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteCommerce removes a commerce record.
func (tx *transaction) DeleteCommerce(id int64) error {
	current, ok := tx.state.commerces[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityCommerce, ID: id}
	}
	delete(tx.state.commerces, id)
	tx.recordChange(Change{Entity: domain.EntityCommerce, Action: domain.ActionDelete, Before: current})
	return nil
}

func (tx *transaction) insertCommerce(c Commerce) Commerce {
	tx.state.nextCommerce++
	c.ID = tx.state.nextCommerce
	tx.state.commerces[c.ID] = c
	return c
}

// Read helpers ---------------------------------------------------------------

// GetCity retrieves a city by ID from committed state.
func (s *Store) GetCity(id int64) (City, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.state.cities[id]
	if !ok {
		return City{}, false
	}
	return s.state.assemble(row), true
}

// ListCities returns all cities from committed state ordered by id.
func (s *Store) ListCities() []City {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listCities()
}

// ListCommerces returns all commerces from committed state ordered by id.
func (s *Store) ListCommerces() []Commerce {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listCommerces()
}

// String renders a short summary useful in logs.
func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("memory.Store{cities:%d commerces:%d}", len(s.state.cities), len(s.state.commerces))
}
