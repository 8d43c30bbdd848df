package timesteward

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/timesteward/timesteward")
var meter = otel.Meter("github.com/timesteward/timesteward")

var (
	// eventsCommitted counts events the driver has committed, across every
	// Engine instance in process.
	eventsCommitted metric.Int64Counter
	// predictorReruns counts predictor invocations performed by the
	// work-list (spec §4.4), including ones that yield no candidate.
	predictorReruns metric.Int64Counter
	// advanceBudgetExhausted counts AdvanceTo calls that returned early
	// because their WorkBudget was exhausted (spec §5).
	advanceBudgetExhausted metric.Int64Counter
	// rewindDepth records how many committed events a single rewind had to
	// undo (spec §4.6 step 3), the direct cost measure of a retroactive
	// edit's blast radius.
	rewindDepth metric.Float64Histogram
)

func init() {
	var err error

	eventsCommitted, err = meter.Int64Counter(
		"timesteward.events.committed",
		metric.WithDescription("Number of events committed by the invalidation/repair driver."),
	)
	if err != nil {
		panic("timesteward: failed to init 'timesteward.events.committed' instrument")
	}

	predictorReruns, err = meter.Int64Counter(
		"timesteward.predictor.reruns",
		metric.WithDescription("Number of predictor invocations performed off the re-run work-list."),
	)
	if err != nil {
		panic("timesteward: failed to init 'timesteward.predictor.reruns' instrument")
	}

	advanceBudgetExhausted, err = meter.Int64Counter(
		"timesteward.advance.budget_exhausted",
		metric.WithDescription("Number of AdvanceTo calls that returned early due to an exhausted work budget."),
	)
	if err != nil {
		panic("timesteward: failed to init 'timesteward.advance.budget_exhausted' instrument")
	}

	rewindDepth, err = meter.Float64Histogram(
		"timesteward.rewind.depth",
		metric.WithDescription("Number of committed events undone by a single rewind."),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		panic("timesteward: failed to init 'timesteward.rewind.depth' instrument")
	}
}
