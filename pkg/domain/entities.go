// Package domain defines the city and commerce records shared by the backend
// service, the HTTP client, and the form manager, together with the rule
// evaluation primitives applied when records are persisted.
package domain

import (
	"fmt"
	"strings"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCity identifies a city record.
	EntityCity EntityType = "city"
	// EntityCommerce identifies a commerce record owned by a city.
	EntityCommerce EntityType = "commerce"
)

// CommerceType tags the kind of business a commerce record describes. The
// wire value is free text; the backend accepts only the canonical values.
type CommerceType string

// Canonical commerce types accepted by the backend.
const (
	CommercePharmacy   CommerceType = "FARMACIA"
	CommerceBakery     CommerceType = "PADARIA"
	CommerceGasStation CommerceType = "POSTO_GASOLINA"
	CommerceSnackBar   CommerceType = "LANCHONETE"
)

// CommerceTypes returns the canonical commerce types in declaration order.
func CommerceTypes() []CommerceType {
	return []CommerceType{CommercePharmacy, CommerceBakery, CommerceGasStation, CommerceSnackBar}
}

// Valid reports whether t is one of the canonical commerce types.
func (t CommerceType) Valid() bool {
	for _, known := range CommerceTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ParseCommerceType normalises user input into a CommerceType. Unknown values
// are returned upper-cased so the backend can reject them.
func ParseCommerceType(raw string) CommerceType {
	return CommerceType(strings.ToUpper(strings.TrimSpace(raw)))
}

// City is the top-level record of the /cidades resource. An ID of zero marks a
// record that has not been persisted yet.
type City struct {
	ID        int64      `json:"id"`
	Name      string     `json:"nome"`
	Commerces []Commerce `json:"comercios"`
}

// Commerce is always embedded in a City; CityID must match the owning city
// once persisted.
type Commerce struct {
	ID          int64        `json:"id"`
	Name        string       `json:"nome"`
	Responsible string       `json:"responsavel"`
	Type        CommerceType `json:"tipo"`
	CityID      int64        `json:"cidadeId"`
}

// NewCity returns the empty, unsaved city used as the initial form draft.
func NewCity() City {
	return City{Commerces: []Commerce{}}
}

// IsNew reports whether the city has not been assigned a backend identifier.
func (c City) IsNew() bool { return c.ID == 0 }

// Clone returns a deep copy so callers never share the commerce backing array.
func (c City) Clone() City {
	cp := c
	cp.Commerces = make([]Commerce, len(c.Commerces))
	copy(cp.Commerces, c.Commerces)
	return cp
}

// CloneCities deep-copies a slice of cities preserving order.
func CloneCities(in []City) []City {
	out := make([]City, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// Change describes a modification applied within a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID int64      `json:"entity_id,omitempty"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("transaction blocked by rules: %s", v.Message)
		}
	}
	return "transaction blocked by rules"
}

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     int64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}
