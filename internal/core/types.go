package core

import "citydesk/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	City               = domain.City
	Commerce           = domain.Commerce
	CommerceType       = domain.CommerceType
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	ErrNotFound        = domain.ErrNotFound
)

const (
	EntityCity     = domain.EntityCity
	EntityCommerce = domain.EntityCommerce
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
