package core

import (
	"citydesk/pkg/domain"
	"context"
	"fmt"
	"strings"
)

// NewRequiredFieldsRule returns the rule rejecting cities without a name and
// commerces missing name, responsible or type.
func NewRequiredFieldsRule() domain.Rule {
	return requiredFieldsRule{}
}

type requiredFieldsRule struct{}

func (requiredFieldsRule) Name() string { return "required_fields" }

func (r requiredFieldsRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			continue
		}
		if city, ok := change.After.(domain.City); ok && strings.TrimSpace(city.Name) == "" {
			res.Violations = append(res.Violations, r.violation(domain.EntityCity, city.ID, "nome"))
		}
	}
	for _, commerce := range changedCommerces(changes) {
		fields := [...][2]string{
			{"nome", commerce.Name},
			{"responsavel", commerce.Responsible},
			{"tipo", string(commerce.Type)},
		}
		for _, field := range fields {
			if strings.TrimSpace(field[1]) == "" {
				res.Violations = append(res.Violations, r.violation(domain.EntityCommerce, commerce.ID, field[0]))
			}
		}
	}
	return res, nil
}

func (requiredFieldsRule) violation(entity domain.EntityType, id int64, field string) domain.Violation {
	return domain.Violation{
		Rule:     "required_fields",
		Severity: domain.SeverityBlock,
		Message:  fmt.Sprintf("%s %d: %s is required", entity, id, field),
		Entity:   entity,
		EntityID: id,
	}
}
