package qdrantDB

import (
	"context"
	"testing"

	"github.com/plantdex/plantdex/internal/vectorStore"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("proj-1:obj-1:D1:B:p1.c1")
	b := PointID("proj-1:obj-1:D1:B:p1.c1")
	if a != b {
		t.Errorf("same chunk produced %s and %s", a, b)
	}
	if a == PointID("proj-1:obj-1:D1:B:p1.c2") {
		t.Error("distinct chunks must map to distinct points")
	}
}

func TestSearch_NoRolesReturnsNothing(t *testing.T) {
	// the client is never dialed: both guards fire before any RPC
	db := &ClientHolder{logger: logger_i.NewLogger("QdrantTest")}

	hits, err := db.Search(context.Background(), "ae_text_test", []float32{0.1}, 10, vectorStore.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if hits != nil {
		t.Errorf("hits = %v, want nil for a role-less caller", hits)
	}

	hits, err = db.Search(context.Background(), "ae_text_test", []float32{0.1}, 0,
		vectorStore.Filter{RolesAny: []string{"engineer"}})
	if err != nil || hits != nil {
		t.Errorf("k=0 should short-circuit, got %v, %v", hits, err)
	}
}

func TestBuildFilter_AlwaysConstrainsPermissions(t *testing.T) {
	filter := buildFilter(vectorStore.Filter{RolesAny: []string{"engineer"}})
	if filter == nil || len(filter.Must) != 1 {
		t.Fatalf("filter = %+v, want exactly the permissions condition", filter)
	}

	min := 40.0
	filter = buildFilter(vectorStore.Filter{
		ProjectID: "proj-1",
		TagsAny:   []string{"pump"},
		RolesAny:  []string{"engineer", "lead"},
		Numeric:   []vectorStore.NumericRange{{Key: "flow_rate", Min: &min}},
	})
	if len(filter.Must) != 4 {
		t.Fatalf("conditions = %d, want 4", len(filter.Must))
	}
	var hasPermissions bool
	for _, cond := range filter.Must {
		field := cond.GetField()
		if field != nil && field.Key == "permissions" {
			hasPermissions = true
		}
	}
	if !hasPermissions {
		t.Error("permissions condition missing from filter")
	}
}
