package scenario

import "slices"

// Catalog returns every scenario, grouped by actor and screen.
func Catalog() []Scenario {
	return slices.Concat(
		loginScenarios(),
		inventoryScenarios(),
		detailScenarios(),
		visualScenarios(),
		problemScenarios(),
		errorScenarios(),
		glitchScenarios(),
	)
}
