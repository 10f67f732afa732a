package risk

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowboard/backend/internal/flow"
	"github.com/flowboard/backend/internal/metrics"
)

// BugProvider fetches defect reports for a feature. Implementations surface
// transport and query failures as plain errors; the aggregator treats any
// error as "no data".
type BugProvider interface {
	BugsByStatus(ctx context.Context, product string, status BugStatus, section, feature string) ([]BugRecord, error)
}

// TestProvider fetches test statistics for a feature. A nil result with a nil
// error means the service knows nothing about the feature (total = 0).
type TestProvider interface {
	TestStats(ctx context.Context, product, section, feature string) (*TestStats, error)
}

// Aggregator drives the full risk pipeline: grouping, concurrent provider
// fetches, scoring and sorting. It holds no state between runs and caches
// nothing.
type Aggregator struct {
	bugs   BugProvider
	tests  TestProvider
	logger *zap.Logger
}

func NewAggregator(bugs BugProvider, tests TestProvider, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		bugs:   bugs,
		tests:  tests,
		logger: logger,
	}
}

// FeatureOverview produces the sorted dashboard rows for the given screens.
// Buckets are processed concurrently; a provider failure inside one bucket
// degrades that bucket to empty data and raises the Partial flag without
// touching any other bucket. Output order is composite score descending,
// ties stable in first-encounter order.
func (a *Aggregator) FeatureOverview(ctx context.Context, screens []flow.Screen) Overview {
	runID := uuid.New().String()
	start := time.Now()

	grouping := GroupByFeature(screens)

	a.logger.Info("Risk aggregation started",
		zap.String("run_id", runID),
		zap.Int("screens", len(screens)),
		zap.Int("buckets", len(grouping.Keys)),
		zap.Int("skipped", len(grouping.Skipped)),
	)

	buckets := make([]FeatureBucket, len(grouping.Keys))
	degraded := make([]bool, len(grouping.Keys))

	var wg sync.WaitGroup
	for i, key := range grouping.Keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			buckets[i], degraded[i] = a.buildBucket(ctx, key, grouping.Buckets[key])
		}(i, key)
	}
	wg.Wait()

	partial := false
	for _, d := range degraded {
		if d {
			partial = true
			break
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Score.Composite > buckets[j].Score.Composite
	})

	a.logger.Info("Risk aggregation finished",
		zap.String("run_id", runID),
		zap.Int("buckets", len(buckets)),
		zap.Bool("partial", partial),
		zap.Duration("elapsed", time.Since(start)),
	)

	return Overview{
		Buckets:        buckets,
		SkippedScreens: grouping.Skipped,
		Partial:        partial,
	}
}

// FeatureRisk materializes a single bucket for the detail modal. The second
// return is false when no screen belongs to the key.
func (a *Aggregator) FeatureRisk(ctx context.Context, screens []flow.Screen, key string) (FeatureBucket, bool) {
	grouping := GroupByFeature(screens)
	bucketScreens, ok := grouping.Buckets[key]
	if !ok {
		return FeatureBucket{}, false
	}

	bucket, _ := a.buildBucket(ctx, key, bucketScreens)
	return bucket, true
}

// ScreenRisk scores one screen independently of feature aggregation, with the
// screen count pinned at one. Screens missing any part of the classification
// triple never reach the providers; an empty filter field would match every
// record in the store, so they score against empty data instead.
func (a *Aggregator) ScreenRisk(ctx context.Context, screen flow.Screen) ScreenRisk {
	if screen.Product == "" || screen.Section == "" || screen.Feature == "" {
		return ScreenRisk{
			ScreenID: screen.ID,
			Score:    ScoreScreen(nil, 0),
		}
	}

	fetched := a.fetch(ctx, screen.Product, screen.Section, screen.Feature, false)

	return ScreenRisk{
		ScreenID:  screen.ID,
		Score:     ScoreScreen(fetched.openBugs, fetched.testCount()),
		OpenBugs:  fetched.openBugs,
		TestCount: fetched.testCount(),
		Partial:   fetched.degraded,
	}
}

// buildBucket fetches and scores one feature bucket. Every screen slice
// entering here is non-empty and shares one (product, section, feature)
// triple, so the bucket's display identity comes from the first screen.
func (a *Aggregator) buildBucket(ctx context.Context, key string, screens []flow.Screen) (FeatureBucket, bool) {
	first := screens[0]

	fetched := a.fetch(ctx, first.Product, first.Section, first.Feature, true)
	score := ScoreFeature(fetched.openBugs, fetched.testCount(), len(screens))

	now := time.Now()
	for i := range screens {
		screens[i].Quality = &flow.QualitySnapshot{
			BugCount:   len(fetched.openBugs),
			RiskLevel:  string(score.Level),
			ComputedAt: now,
		}
	}

	return FeatureBucket{
		Key:        key,
		Feature:    first.Feature,
		Product:    first.Product,
		Section:    first.Section,
		Screens:    screens,
		Score:      score,
		OpenBugs:   fetched.openBugs,
		ClosedBugs: fetched.closedBugs,
		TestCount:  fetched.testCount(),
	}, fetched.degraded
}

type fetchResult struct {
	openBugs   []BugRecord
	closedBugs []BugRecord
	stats      *TestStats
	degraded   bool
}

func (f fetchResult) testCount() int {
	if f.stats == nil {
		return 0
	}
	return f.stats.Total
}

// fetch issues the provider lookups for one feature concurrently: open bugs,
// test stats and, when wantClosed is set, closed bugs. Each arm is isolated;
// a failure in one never prevents the others from populating and is absorbed
// into an empty substitute plus the degraded flag.
func (a *Aggregator) fetch(ctx context.Context, product, section, feature string, wantClosed bool) fetchResult {
	var (
		result    fetchResult
		openErr   error
		closedErr error
		statsErr  error
		wg        sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		result.openBugs, openErr = a.bugs.BugsByStatus(ctx, product, StatusOpen, section, feature)
	}()
	go func() {
		defer wg.Done()
		result.stats, statsErr = a.tests.TestStats(ctx, product, section, feature)
	}()
	if wantClosed {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result.closedBugs, closedErr = a.bugs.BugsByStatus(ctx, product, StatusClosed, section, feature)
		}()
	}
	wg.Wait()

	if openErr != nil {
		a.logger.Warn("Open bug fetch failed, scoring with empty list",
			zap.String("product", product),
			zap.String("feature", feature),
			zap.Error(openErr),
		)
		result.openBugs = nil
		result.degraded = true
		metrics.ProviderFailures.WithLabelValues("bugs").Inc()
	}
	if closedErr != nil {
		a.logger.Warn("Closed bug fetch failed",
			zap.String("product", product),
			zap.String("feature", feature),
			zap.Error(closedErr),
		)
		result.closedBugs = nil
		result.degraded = true
		metrics.ProviderFailures.WithLabelValues("bugs").Inc()
	}
	if statsErr != nil {
		a.logger.Warn("Test stats fetch failed, scoring with zero tests",
			zap.String("product", product),
			zap.String("feature", feature),
			zap.Error(statsErr),
		)
		result.stats = nil
		result.degraded = true
		metrics.ProviderFailures.WithLabelValues("tests").Inc()
	}

	return result
}
