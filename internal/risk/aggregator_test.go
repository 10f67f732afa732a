package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowboard/backend/internal/flow"
	"github.com/flowboard/backend/internal/metrics"
)

type fakeBugProvider struct {
	bugs map[string][]BugRecord // keyed by feature + "/" + status
	fail map[string]bool        // features whose fetches error
}

func (f *fakeBugProvider) BugsByStatus(_ context.Context, _ string, status BugStatus, _, feature string) ([]BugRecord, error) {
	if f.fail[feature] {
		return nil, errors.New("bug store unavailable")
	}
	return f.bugs[feature+"/"+string(status)], nil
}

type fakeTestProvider struct {
	stats map[string]*TestStats // keyed by feature
	fail  map[string]bool
}

func (f *fakeTestProvider) TestStats(_ context.Context, _, _, feature string) (*TestStats, error) {
	if f.fail[feature] {
		return nil, errors.New("test service unavailable")
	}
	return f.stats[feature], nil
}

func newTestAggregator(bugs *fakeBugProvider, tests *fakeTestProvider) *Aggregator {
	if bugs.bugs == nil {
		bugs.bugs = map[string][]BugRecord{}
	}
	if bugs.fail == nil {
		bugs.fail = map[string]bool{}
	}
	if tests.stats == nil {
		tests.stats = map[string]*TestStats{}
	}
	if tests.fail == nil {
		tests.fail = map[string]bool{}
	}
	return NewAggregator(bugs, tests, zap.NewNop())
}

func TestFeatureOverviewSortsByScoreDescending(t *testing.T) {
	bugs := &fakeBugProvider{
		bugs: map[string][]BugRecord{
			"payment/open": repeatBugs(SeverityCritical, 3),
		},
	}
	tests := &fakeTestProvider{
		stats: map[string]*TestStats{
			"payment": {Total: 2},
			"signup":  {Total: 20},
		},
	}
	agg := newTestAggregator(bugs, tests)

	screens := []flow.Screen{
		screen("s1", "shop", "account", "signup"),
		screen("s2", "shop", "checkout", "payment"),
	}

	overview := agg.FeatureOverview(context.Background(), screens)

	require.Len(t, overview.Buckets, 2)
	assert.Equal(t, "payment", overview.Buckets[0].Feature)
	assert.Equal(t, "signup", overview.Buckets[1].Feature)
	assert.Greater(t, overview.Buckets[0].Score.Composite, overview.Buckets[1].Score.Composite)
	assert.False(t, overview.Partial)
}

func TestFeatureOverviewStableTieOrder(t *testing.T) {
	// Every bucket scores identically, so encounter order must survive.
	agg := newTestAggregator(&fakeBugProvider{}, &fakeTestProvider{})

	screens := []flow.Screen{
		screen("a", "p", "s", "f3"),
		screen("b", "p", "s", "f1"),
		screen("c", "p", "s", "f2"),
	}

	overview := agg.FeatureOverview(context.Background(), screens)

	require.Len(t, overview.Buckets, 3)
	assert.Equal(t, "f3", overview.Buckets[0].Feature)
	assert.Equal(t, "f1", overview.Buckets[1].Feature)
	assert.Equal(t, "f2", overview.Buckets[2].Feature)
}

func TestFeatureOverviewIsolatesProviderFailure(t *testing.T) {
	bugs := &fakeBugProvider{
		bugs: map[string][]BugRecord{
			"signup/open":   repeatBugs(SeverityHigh, 2),
			"signup/closed": repeatBugs(SeverityLow, 1),
		},
		fail: map[string]bool{"payment": true},
	}
	tests := &fakeTestProvider{
		stats: map[string]*TestStats{
			"signup":  {Total: 8},
			"payment": {Total: 8},
		},
	}
	agg := newTestAggregator(bugs, tests)

	screens := []flow.Screen{
		screen("s1", "shop", "checkout", "payment"),
		screen("s2", "shop", "account", "signup"),
	}

	overview := agg.FeatureOverview(context.Background(), screens)
	require.Len(t, overview.Buckets, 2)

	var payment, signup FeatureBucket
	for _, b := range overview.Buckets {
		switch b.Feature {
		case "payment":
			payment = b
		case "signup":
			signup = b
		}
	}

	// The failing bucket degrades to empty bug data but still scores.
	assert.Empty(t, payment.OpenBugs)
	assert.Empty(t, payment.ClosedBugs)
	assert.Equal(t, 8, payment.TestCount)
	assert.Equal(t, ScoreFeature(nil, 8, 1), payment.Score)

	// The healthy bucket is untouched.
	assert.Len(t, signup.OpenBugs, 2)
	assert.Len(t, signup.ClosedBugs, 1)
	assert.Equal(t, ScoreFeature(signup.OpenBugs, 8, 1), signup.Score)

	assert.True(t, overview.Partial)
}

func TestFeatureOverviewTotalProviderFailure(t *testing.T) {
	bugs := &fakeBugProvider{fail: map[string]bool{"payment": true, "signup": true}}
	tests := &fakeTestProvider{fail: map[string]bool{"payment": true, "signup": true}}
	agg := newTestAggregator(bugs, tests)

	screens := []flow.Screen{
		screen("s1", "shop", "checkout", "payment"),
		screen("s2", "shop", "account", "signup"),
	}

	bugFailures := testutil.ToFloat64(metrics.ProviderFailures.WithLabelValues("bugs"))
	testFailures := testutil.ToFloat64(metrics.ProviderFailures.WithLabelValues("tests"))

	overview := agg.FeatureOverview(context.Background(), screens)

	// Maximally conservative but well defined: empty bugs, zero tests.
	require.Len(t, overview.Buckets, 2)
	for _, bucket := range overview.Buckets {
		assert.Equal(t, ScoreFeature(nil, 0, 1), bucket.Score)
	}
	assert.True(t, overview.Partial)

	// Per bucket: one open and one closed bug fetch failed, plus the stats arm.
	assert.Equal(t, bugFailures+4, testutil.ToFloat64(metrics.ProviderFailures.WithLabelValues("bugs")))
	assert.Equal(t, testFailures+2, testutil.ToFloat64(metrics.ProviderFailures.WithLabelValues("tests")))
}

func TestFeatureOverviewReportsSkippedScreens(t *testing.T) {
	agg := newTestAggregator(&fakeBugProvider{}, &fakeTestProvider{})

	screens := []flow.Screen{
		screen("classified", "shop", "checkout", "payment"),
		screen("orphan", "", "", ""),
	}

	overview := agg.FeatureOverview(context.Background(), screens)

	require.Len(t, overview.Buckets, 1)
	assert.Equal(t, []string{"orphan"}, overview.SkippedScreens)
}

func TestFeatureOverviewAttachesQualitySnapshot(t *testing.T) {
	bugs := &fakeBugProvider{
		bugs: map[string][]BugRecord{
			"payment/open": repeatBugs(SeverityMedium, 2),
		},
	}
	tests := &fakeTestProvider{stats: map[string]*TestStats{"payment": {Total: 12}}}
	agg := newTestAggregator(bugs, tests)

	screens := []flow.Screen{screen("s1", "shop", "checkout", "payment")}

	overview := agg.FeatureOverview(context.Background(), screens)
	require.Len(t, overview.Buckets, 1)

	bucket := overview.Buckets[0]
	require.Len(t, bucket.Screens, 1)
	require.NotNil(t, bucket.Screens[0].Quality)
	assert.Equal(t, 2, bucket.Screens[0].Quality.BugCount)
	assert.Equal(t, string(bucket.Score.Level), bucket.Screens[0].Quality.RiskLevel)

	// The input screens stay untouched; only the bucket copies get snapshots.
	assert.Nil(t, screens[0].Quality)
}

func TestFeatureRisk(t *testing.T) {
	bugs := &fakeBugProvider{
		bugs: map[string][]BugRecord{
			"payment/open": repeatBugs(SeverityLow, 1),
		},
	}
	agg := newTestAggregator(bugs, &fakeTestProvider{})

	screens := []flow.Screen{
		screen("s1", "shop", "checkout", "payment"),
		screen("s2", "shop", "checkout", "payment"),
	}

	bucket, ok := agg.FeatureRisk(context.Background(), screens, "shop:checkout:payment")
	require.True(t, ok)
	assert.Equal(t, "payment", bucket.Feature)
	assert.Len(t, bucket.Screens, 2)
	assert.Equal(t, ScoreFeature(bucket.OpenBugs, 0, 2), bucket.Score)

	_, ok = agg.FeatureRisk(context.Background(), screens, "shop:checkout:refunds")
	assert.False(t, ok)
}

func TestScreenRiskUsesSingleScreenMode(t *testing.T) {
	bugs := &fakeBugProvider{
		bugs: map[string][]BugRecord{
			"payment/open": repeatBugs(SeverityCritical, 1),
		},
	}
	tests := &fakeTestProvider{stats: map[string]*TestStats{"payment": {Total: 3}}}
	agg := newTestAggregator(bugs, tests)

	result := agg.ScreenRisk(context.Background(), screen("s1", "shop", "checkout", "payment"))

	assert.Equal(t, "s1", result.ScreenID)
	assert.Equal(t, 3, result.TestCount)
	assert.Equal(t, 0.0, result.Score.ComplexityRisk)
	assert.Equal(t, ScoreScreen(result.OpenBugs, 3), result.Score)
	assert.False(t, result.Partial)
}

func TestScreenRiskSkipsProvidersForUnclassifiedScreens(t *testing.T) {
	// A store queried with empty filter fields matches every record it
	// holds, so screens without a full classification triple must never
	// reach the providers at all.
	bugs := &fakeBugProvider{
		bugs: map[string][]BugRecord{
			"/open": repeatBugs(SeverityCritical, 3),
		},
	}
	tests := &fakeTestProvider{stats: map[string]*TestStats{"": {Total: 9}}}
	agg := newTestAggregator(bugs, tests)

	for _, s := range []flow.Screen{
		screen("done", "", "", ""),
		screen("half", "shop", "", ""),
		screen("most", "shop", "checkout", ""),
	} {
		result := agg.ScreenRisk(context.Background(), s)

		assert.Equal(t, s.ID, result.ScreenID)
		assert.Empty(t, result.OpenBugs)
		assert.Equal(t, 0, result.TestCount)
		assert.Equal(t, ScoreScreen(nil, 0), result.Score)
		assert.False(t, result.Partial)
	}
}

func TestScreenRiskDegradesSoftly(t *testing.T) {
	bugs := &fakeBugProvider{fail: map[string]bool{"payment": true}}
	agg := newTestAggregator(bugs, &fakeTestProvider{})

	result := agg.ScreenRisk(context.Background(), screen("s1", "shop", "checkout", "payment"))

	assert.Empty(t, result.OpenBugs)
	assert.Equal(t, 0, result.TestCount)
	assert.True(t, result.Partial)
	assert.Equal(t, ScoreScreen(nil, 0), result.Score)
}
