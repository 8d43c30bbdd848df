package synctest

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/timesteward/timesteward/synctest")

var (
	// reportsReceived counts Reports a Coordinator has processed that did
	// not diverge: the first Report for an ExtendedTime, and every later one
	// that agreed with it.
	reportsReceived metric.Int64Counter
	// reportsDiverged counts Reports that disagreed with the prior Report
	// for the same ExtendedTime, i.e. detected divergences.
	reportsDiverged metric.Int64Counter
)

func init() {
	var err error

	reportsReceived, err = meter.Int64Counter(
		"timesteward.synctest.reports_received",
		metric.WithDescription("Number of synctest Reports processed that did not diverge from the first report for the same position."),
	)
	if err != nil {
		panic("synctest: failed to init 'timesteward.synctest.reports_received' instrument")
	}

	reportsDiverged, err = meter.Int64Counter(
		"timesteward.synctest.reports_diverged",
		metric.WithDescription("Number of synctest Reports that disagreed with the prior report for the same position."),
	)
	if err != nil {
		panic("synctest: failed to init 'timesteward.synctest.reports_diverged' instrument")
	}
}
