package risk

// Scoring constants. These are business rules shared by every call site
// (overview list, screen panel, feature modal); they must never be duplicated
// elsewhere.
const (
	bugVolumePointsPerBug = 3.0
	bugVolumeCap          = 30.0

	severityPointsCritical = 20.0
	severityPointsHigh     = 12.0
	severityPointsMedium   = 6.0
	severityPointsLow      = 2.0

	weightBug        = 0.50
	weightCoverage   = 0.40
	weightComplexity = 0.10

	levelLowCeiling    = 20.0
	levelMediumCeiling = 40.0
)

// ScoreFeature computes the composite risk score for a feature from its open
// bugs, test count and screen count. Pure and total: an empty bug list, zero
// tests and a single screen are all valid inputs.
func ScoreFeature(openBugs []BugRecord, testCount, screenCount int) Score {
	bug := bugRisk(openBugs)
	coverage := coverageRisk(testCount)
	complexity := complexityRisk(screenCount)

	composite := bug*weightBug + coverage*weightCoverage + complexity*weightComplexity

	return Score{
		Composite:      composite,
		Level:          Classify(composite),
		BugRisk:        bug,
		CoverageRisk:   coverage,
		ComplexityRisk: complexity,
	}
}

// ScoreScreen scores a single screen outside feature aggregation, with the
// screen count fixed at one so the complexity sub-score is always zero.
func ScoreScreen(openBugs []BugRecord, testCount int) Score {
	return ScoreFeature(openBugs, testCount, 1)
}

// Classify maps a composite score onto the three-way risk level.
func Classify(composite float64) Level {
	switch {
	case composite <= levelLowCeiling:
		return LevelLow
	case composite <= levelMediumCeiling:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// bugRisk is a capped volume component plus a severity-weighted sum.
func bugRisk(openBugs []BugRecord) float64 {
	volume := float64(len(openBugs)) * bugVolumePointsPerBug
	if volume > bugVolumeCap {
		volume = bugVolumeCap
	}

	var severitySum float64
	for _, bug := range openBugs {
		severitySum += severityPoints(bug.Severity)
	}

	return volume + severitySum
}

func severityPoints(severity Severity) float64 {
	switch severity {
	case SeverityCritical:
		return severityPointsCritical
	case SeverityHigh:
		return severityPointsHigh
	case SeverityLow:
		return severityPointsLow
	case SeverityMedium:
		return severityPointsMedium
	default:
		// Unrecognized severities count as medium.
		return severityPointsMedium
	}
}

// coverageRisk is a step function of the test count: fewer tests, more risk.
func coverageRisk(testCount int) float64 {
	switch {
	case testCount == 0:
		return 30
	case testCount <= 5:
		return 20
	case testCount <= 10:
		return 10
	default:
		return 0
	}
}

// complexityRisk is a step function of how many screens the feature spans.
func complexityRisk(screenCount int) float64 {
	switch {
	case screenCount <= 1:
		return 0
	case screenCount == 2:
		return 5
	case screenCount <= 4:
		return 10
	default:
		return 15
	}
}
