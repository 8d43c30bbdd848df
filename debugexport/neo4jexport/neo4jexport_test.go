package neo4jexport_test

import (
	"context"
	"testing"

	"github.com/timesteward/timesteward"
	"github.com/timesteward/timesteward/debugexport/neo4jexport"
	"github.com/timesteward/timesteward/internal/dbtest"
)

func TestExportIsIdempotent(t *testing.T) {
	driver := dbtest.SetupNeo4j(t)
	ctx := context.Background()

	const database = "timesteward_export_test"
	if err := neo4jexport.BootstrapDatabase(ctx, driver, database); err != nil {
		t.Fatalf("BootstrapDatabase: %v", err)
	}

	x := neo4jexport.Exporter{Driver: driver, Database: database}

	edges := []timesteward.GraphEdge{
		{
			Accessor: "predictor:1/row-a",
			Timeline: timesteward.TypeID(7),
			Key:      timesteward.RowID{0x01},
			At:       timesteward.NewExtendedTime(10, timesteward.RowID{0x02}),
			Kind:     "read",
		},
		{
			Accessor: "event@10",
			Timeline: timesteward.TypeID(7),
			Key:      timesteward.RowID{0x01},
			At:       timesteward.NewExtendedTime(10, timesteward.RowID{0x02}),
			Kind:     "write",
		},
	}

	if err := x.Export(ctx, edges); err != nil {
		t.Fatalf("first export: %v", err)
	}
	// Exporting the same edges again must not create duplicate nodes or
	// relationships, since the MERGE keys are the content addresses.
	if err := x.Export(ctx, edges); err != nil {
		t.Fatalf("second export: %v", err)
	}
}
