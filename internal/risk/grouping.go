package risk

import (
	"strings"

	"github.com/flowboard/backend/internal/flow"
)

// Grouping is the result of partitioning screens into feature buckets.
// Keys preserves first-encounter order so downstream output is deterministic;
// Skipped lists the ids of screens excluded for missing product, section or
// feature.
type Grouping struct {
	Keys    []string
	Buckets map[string][]flow.Screen
	Skipped []string
}

// FeatureKey builds the bucket key for a (product, section, feature) triple.
func FeatureKey(product, section, feature string) string {
	return strings.Join([]string{product, section, feature}, ":")
}

// GroupByFeature partitions screens into buckets keyed by their
// (product, section, feature) triple. Screens missing any of the three are
// excluded from aggregation but reported in Skipped rather than dropped
// silently.
func GroupByFeature(screens []flow.Screen) Grouping {
	grouping := Grouping{
		Buckets: make(map[string][]flow.Screen),
	}

	for _, screen := range screens {
		if screen.Product == "" || screen.Section == "" || screen.Feature == "" {
			grouping.Skipped = append(grouping.Skipped, screen.ID)
			continue
		}

		key := FeatureKey(screen.Product, screen.Section, screen.Feature)
		if _, exists := grouping.Buckets[key]; !exists {
			grouping.Keys = append(grouping.Keys, key)
		}
		grouping.Buckets[key] = append(grouping.Buckets[key], screen)
	}

	return grouping
}
