package core

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewRequiredFieldsRule())
	engine.Register(NewCommerceTypeRule())
	return engine
}

// changedCommerces collects the commerces written by create and update
// changes, including those embedded in a city payload.
func changedCommerces(changes []Change) []Commerce {
	var out []Commerce
	for _, change := range changes {
		if change.Action == ActionDelete {
			continue
		}
		switch after := change.After.(type) {
		case City:
			out = append(out, after.Commerces...)
		case Commerce:
			out = append(out, after)
		}
	}
	return out
}
