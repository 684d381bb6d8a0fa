package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCityJSONUsesResourceFieldNames(t *testing.T) {
	city := City{ID: 1, Name: "Rio", Commerces: []Commerce{{ID: 2, Name: "Padaria Sol", Responsible: "Ana", Type: CommerceBakery, CityID: 1}}}
	raw, err := json.Marshal(city)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"nome":"Rio","comercios":[{"id":2,"nome":"Padaria Sol","responsavel":"Ana","tipo":"PADARIA","cidadeId":1}]}`, string(raw))

	var decoded City
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"nome":"Rio","comercios":[]}`), &decoded))
	assert.Equal(t, City{ID: 1, Name: "Rio", Commerces: []Commerce{}}, decoded)
}

func TestNewCityEncodesEmptyCommerceList(t *testing.T) {
	raw, err := json.Marshal(NewCity())
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":0,"nome":"","comercios":[]}`, string(raw))
	assert.True(t, NewCity().IsNew())
}

func TestCityCloneDoesNotShareCommerces(t *testing.T) {
	original := City{ID: 5, Name: "SP", Commerces: []Commerce{{ID: 9, Name: "Posto", CityID: 5}}}
	cp := original.Clone()
	cp.Name = "Sao Paulo"
	cp.Commerces[0].Name = "Posto Central"
	cp.Commerces = append(cp.Commerces, Commerce{Name: "extra"})

	assert.Equal(t, "SP", original.Name)
	assert.Equal(t, "Posto", original.Commerces[0].Name)
	assert.Len(t, original.Commerces, 1)

	var nilCommerces City
	assert.NotNil(t, nilCommerces.Clone().Commerces)
}

func TestCloneCitiesPreservesOrder(t *testing.T) {
	in := []City{{ID: 3}, {ID: 1}, {ID: 2}}
	out := CloneCities(in)
	require.Len(t, out, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{out[0].ID, out[1].ID, out[2].ID})
}

func TestCommerceTypeValidation(t *testing.T) {
	for _, ct := range CommerceTypes() {
		assert.True(t, ct.Valid(), ct)
	}
	assert.False(t, CommerceType("MERCADO").Valid())
	assert.Equal(t, CommerceGasStation, ParseCommerceType(" posto_gasolina "))
}

func TestResultBlockingAndErrors(t *testing.T) {
	var res Result
	assert.False(t, res.HasBlocking())
	res.Merge(Result{Violations: []Violation{{Rule: "r", Severity: SeverityWarn, Message: "warn"}}})
	assert.False(t, res.HasBlocking())
	res.Merge(Result{Violations: []Violation{{Rule: "r", Severity: SeverityBlock, Message: "nome is required"}}})
	assert.True(t, res.HasBlocking())

	err := RuleViolationError{Result: res}
	assert.Contains(t, err.Error(), "nome is required")
	assert.Equal(t, "transaction blocked by rules", RuleViolationError{}.Error())

	var nf error = ErrNotFound{Entity: EntityCity, ID: 7}
	assert.Equal(t, "city 7 not found", nf.Error())
	var target ErrNotFound
	assert.True(t, errors.As(nf, &target))
}

type staticRule struct {
	name string
	res  Result
	err  error
}

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, TransactionView, []Change) (Result, error) {
	return r.res, r.err
}

func TestRulesEngineAggregates(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{name: "a", res: Result{Violations: []Violation{{Rule: "a"}}}})
	engine.Register(staticRule{name: "b", res: Result{Violations: []Violation{{Rule: "b"}}}})
	require.Len(t, engine.Rules(), 2)

	res, err := engine.Evaluate(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, res.Violations, 2)

	engine.Register(staticRule{name: "c", err: errors.New("boom")})
	_, err = engine.Evaluate(context.Background(), nil, nil)
	assert.EqualError(t, err, "boom")
}
