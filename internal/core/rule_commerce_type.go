package core

import (
	"citydesk/pkg/domain"
	"context"
	"fmt"
)

// NewCommerceTypeRule returns the rule restricting commerce types to the
// canonical set. Empty types are left to the required fields rule.
func NewCommerceTypeRule() domain.Rule {
	return commerceTypeRule{}
}

type commerceTypeRule struct{}

func (commerceTypeRule) Name() string { return "commerce_type" }

func (commerceTypeRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, commerce := range changedCommerces(changes) {
		if commerce.Type == "" || commerce.Type.Valid() {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "commerce_type",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("commerce %d: unknown tipo %q (expected one of %v)", commerce.ID, commerce.Type, domain.CommerceTypes()),
			Entity:   domain.EntityCommerce,
			EntityID: commerce.ID,
		})
	}
	return res, nil
}
