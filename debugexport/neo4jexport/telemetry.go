package neo4jexport

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/timesteward/timesteward/debugexport/neo4jexport")
var meter = otel.Meter("github.com/timesteward/timesteward/debugexport/neo4jexport")

var edgesExported metric.Int64Counter

func init() {
	var err error
	edgesExported, err = meter.Int64Counter(
		"timesteward.neo4jexport.edges_exported",
		metric.WithDescription("Number of dependency-graph edges mirrored into Neo4j."),
	)
	if err != nil {
		panic(fmt.Sprintf("neo4jexport: failed to init 'timesteward.neo4jexport.edges_exported' instrument: %v", err))
	}
}
