package checker

// DefaultStrategies maps platform ids to their classification strategy.
// Platforms not listed use the plain HeuristicStrategy.
func DefaultStrategies() map[string]Strategy {
	return map[string]Strategy{
		"instagram": NewInstagramStrategy(),
		"twitter":   NewTwitterStrategy(),
		"reddit": &HeuristicStrategy{NotFoundMarkers: []string{
			"sorry, nobody on reddit goes by that name",
			"page not found",
		}},
		"tiktok": &HeuristicStrategy{NotFoundMarkers: []string{
			"couldn't find this account",
			"couldn’t find this account",
			"account not found",
			"this account could not be found",
		}},
	}
}
