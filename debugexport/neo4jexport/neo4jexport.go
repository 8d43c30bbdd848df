/*
Package neo4jexport mirrors a [timesteward.Engine]'s dependency graph into a
Neo4j database for operator inspection. It is debug tooling only: nothing in
the core scheduler depends on it, and it is never on the hot path of
AdvanceTo.

Each (accessor)--reads/writes-->(timeline, key) edge becomes a MERGEd
relationship between an :Accessor node and a :Field node, carrying the
ExtendedTime the edge was recorded at. Re-exporting is idempotent: exporting
the same edge set twice leaves the graph unchanged.
*/
package neo4jexport

import (
	"context"
	"fmt"

	"github.com/danielorbach/go-component"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/timesteward/timesteward"
)

// Exporter writes GraphEdge snapshots into a Neo4j database reached through
// driver, using the named database.
type Exporter struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// Export MERGEs every edge in edges into the graph. Edges absent from a
// given call are left untouched; callers that want a faithful mirror of the
// current graph should clear the database (or use a fresh one) before the
// first export of a run.
func (x Exporter) Export(ctx context.Context, edges []timesteward.GraphEdge) (err error) {
	ctx, span := tracer.Start(ctx, "neo4jexport.Export")
	defer span.End()

	s := x.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: x.Database})
	defer func() { _ = s.Close(ctx) }()

	_, err = s.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, e := range edges {
			if err := mergeEdge(ctx, tx, e); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("neo4jexport: export: %w", err)
	}

	edgesExported.Add(ctx, int64(len(edges)))
	span.SetStatus(codes.Ok, "")
	return nil
}

func mergeEdge(ctx context.Context, tx neo4j.ManagedTransaction, e timesteward.GraphEdge) error {
	rel := "READS"
	if e.Kind == "write" {
		rel = "WRITES"
	}

	query := `
		MERGE (a:Accessor {_contentAddress: $accessor})
		ON CREATE SET a._created_at = datetime()

		MERGE (f:Field {_contentAddress: $field})
		ON CREATE SET f._created_at = datetime()
		SET f.timeline = $timeline, f.key = $key

		MERGE (a)-[r:` + rel + `]->(f)
		SET r.at = $at, r.last_seen = datetime()

		RETURN count(r) AS edges
	`
	result, err := tx.Run(ctx, query, map[string]any{
		"accessor": e.Accessor,
		"field":    e.Timeline.String() + "/" + e.Key.String(),
		"timeline": e.Timeline.String(),
		"key":      e.Key.String(),
		"at":       e.At.String(),
	})
	if err != nil {
		return fmt.Errorf("run cypher: %w", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return fmt.Errorf("query single result: %w", err)
	}
	n, err := record.Get("edges")
	if err != nil {
		return fmt.Errorf("get edges: %w", err)
	}
	if count, ok := n.(int64); !ok || count != 1 {
		panicWithCorruptedGraph(ctx, fmt.Sprintf("merge-edge modified %v edges instead of 1", n))
	}
	return nil
}

// panicWithCorruptedGraph matches the teacher's defensive style for the
// "this should be geometrically impossible" case: log, mark the span
// failed, then panic, since continuing to write to a graph whose own
// MERGE invariant already broke would only compound the damage.
func panicWithCorruptedGraph(ctx context.Context, reason string) {
	component.Logger(ctx).ErrorContext(ctx, "neo4jexport: mirrored graph violates its own MERGE invariant", "error", reason)
	trace.SpanFromContext(ctx).SetStatus(codes.Error, reason)
	panic(fmt.Errorf("neo4jexport: corrupted mirror graph: %v", reason))
}
