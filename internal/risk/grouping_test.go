package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowboard/backend/internal/flow"
)

func screen(id, product, section, feature string) flow.Screen {
	return flow.Screen{
		ID:      id,
		Label:   id,
		Role:    flow.RoleForm,
		Product: product,
		Section: section,
		Feature: feature,
	}
}

func TestGroupByFeaturePartitions(t *testing.T) {
	screens := []flow.Screen{
		screen("s1", "shop", "checkout", "payment"),
		screen("s2", "shop", "checkout", "payment"),
		screen("s3", "shop", "account", "signup"),
		screen("s4", "", "checkout", "payment"),
		screen("s5", "shop", "checkout", ""),
	}

	grouping := GroupByFeature(screens)

	require.Len(t, grouping.Keys, 2)
	assert.Equal(t, "shop:checkout:payment", grouping.Keys[0])
	assert.Equal(t, "shop:account:signup", grouping.Keys[1])

	payment := grouping.Buckets["shop:checkout:payment"]
	require.Len(t, payment, 2)
	assert.Equal(t, "s1", payment[0].ID)
	assert.Equal(t, "s2", payment[1].ID)

	assert.Equal(t, []string{"s4", "s5"}, grouping.Skipped)

	// The union of bucket screens is exactly the fully classified subset.
	total := 0
	for _, key := range grouping.Keys {
		for _, s := range grouping.Buckets[key] {
			total++
			assert.Equal(t, key, FeatureKey(s.Product, s.Section, s.Feature))
		}
	}
	assert.Equal(t, len(screens)-len(grouping.Skipped), total)
}

func TestGroupByFeatureEmptyInput(t *testing.T) {
	grouping := GroupByFeature(nil)

	assert.Empty(t, grouping.Keys)
	assert.Empty(t, grouping.Buckets)
	assert.Empty(t, grouping.Skipped)
}

func TestGroupByFeatureEncounterOrderStable(t *testing.T) {
	screens := []flow.Screen{
		screen("a", "p", "s", "f3"),
		screen("b", "p", "s", "f1"),
		screen("c", "p", "s", "f2"),
		screen("d", "p", "s", "f1"),
	}

	grouping := GroupByFeature(screens)

	assert.Equal(t, []string{"p:s:f3", "p:s:f1", "p:s:f2"}, grouping.Keys)
}
