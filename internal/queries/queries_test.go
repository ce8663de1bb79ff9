// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package queries

import (
	"context"
	"testing"

	"github.com/qualisight/qualisight/internal/cache"
)

func countingFactory(v any, calls *int) cache.Factory {
	return func(ctx context.Context) (any, error) {
		*calls++
		return v, nil
	}
}

func TestRepo_ProductsCached(t *testing.T) {
	repo := NewRepo(cache.NewService(100))

	calls := 0
	factory := countingFactory([]string{"P-100", "P-200"}, &calls)

	for i := 0; i < 3; i++ {
		got, err := repo.Products(context.Background(), factory)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("Expected product list")
		}
	}
	if calls != 1 {
		t.Errorf("Expected 1 database load across 3 reads, got %d", calls)
	}
}

func TestRepo_ParameterizedLookupsAreDistinct(t *testing.T) {
	repo := NewRepo(cache.NewService(100))

	callsA, callsB := 0, 0
	a, _ := repo.WorkstationsByLine(context.Background(), "line-1", countingFactory("ws-1", &callsA))
	b, _ := repo.WorkstationsByLine(context.Background(), "line-2", countingFactory("ws-2", &callsB))

	if a == b {
		t.Error("Expected distinct cache entries per production line")
	}
	if callsA != 1 || callsB != 1 {
		t.Errorf("Expected one load per line, got %d and %d", callsA, callsB)
	}
}

func TestRepo_InvalidateProductsDropsAllShapes(t *testing.T) {
	repo := NewRepo(cache.NewService(100))

	calls := 0
	repo.Products(context.Background(), countingFactory("list", &calls))
	repo.ProductByNumber(context.Background(), "P-100", countingFactory("detail", &calls))
	repo.ProductByNumber(context.Background(), "P-200", countingFactory("detail", &calls))

	if removed := repo.InvalidateProducts(); removed != 3 {
		t.Fatalf("Expected 3 entries dropped, got %d", removed)
	}

	// Every read shape reloads after invalidation.
	repo.Products(context.Background(), countingFactory("list", &calls))
	repo.ProductByNumber(context.Background(), "P-100", countingFactory("detail", &calls))
	if calls != 5 {
		t.Errorf("Expected reloads after invalidation, got %d total loads", calls)
	}
}

func TestRepo_InvalidateProductsLeavesMachines(t *testing.T) {
	repo := NewRepo(cache.NewService(100))

	calls := 0
	repo.Machines(context.Background(), countingFactory("machines", &calls))
	repo.Products(context.Background(), countingFactory("products", &calls))

	repo.InvalidateProducts()

	repo.Machines(context.Background(), countingFactory("machines", &calls))
	if calls != 2 {
		t.Errorf("Expected machine list to survive product invalidation, got %d loads", calls)
	}
}

// Workstation listings embed line membership, so dropping the line list must
// drop them too.
func TestRepo_InvalidateProductionLinesCascades(t *testing.T) {
	repo := NewRepo(cache.NewService(100))

	calls := 0
	repo.ProductionLines(context.Background(), countingFactory("lines", &calls))
	repo.WorkstationsByLine(context.Background(), "line-1", countingFactory("ws", &calls))
	repo.WorkstationsByLine(context.Background(), "line-2", countingFactory("ws", &calls))

	if removed := repo.InvalidateProductionLines(); removed != 3 {
		t.Errorf("Expected line list and both workstation listings dropped, got %d", removed)
	}
}

func TestRepo_InvalidateSpecLimitsScoped(t *testing.T) {
	repo := NewRepo(cache.NewService(100))

	calls := 0
	repo.SpecLimits(context.Background(), "P-100", countingFactory("limits", &calls))
	repo.FixturesByMachine(context.Background(), "M-1", countingFactory("fixtures", &calls))

	if removed := repo.InvalidateSpecLimits(); removed != 1 {
		t.Fatalf("Expected 1 entry dropped, got %d", removed)
	}

	repo.FixturesByMachine(context.Background(), "M-1", countingFactory("fixtures", &calls))
	if calls != 2 {
		t.Errorf("Expected fixture config to survive spec-limit invalidation, got %d loads", calls)
	}
}

func TestWarmupQueries_SkipsNilFactories(t *testing.T) {
	factory := func(ctx context.Context) (any, error) { return "v", nil }

	queries := WarmupQueries(factory, nil, factory)
	if len(queries) != 2 {
		t.Fatalf("Expected 2 warmup queries, got %d", len(queries))
	}
	if queries[0].QueryID != "product_list" || queries[1].QueryID != "production_line_list" {
		t.Errorf("Unexpected warmup set: %v, %v", queries[0].QueryID, queries[1].QueryID)
	}
}

func TestWarmupQueries_EndToEnd(t *testing.T) {
	svc := cache.NewService(100)
	repo := NewRepo(svc)

	loads := 0
	factory := countingFactory("warm", &loads)

	warmed := svc.Warmup(context.Background(), WarmupQueries(factory, factory, factory))
	if warmed != 3 {
		t.Fatalf("Expected 3 queries warmed, got %d", warmed)
	}

	// Reads after warmup are served from cache.
	repo.Products(context.Background(), factory)
	repo.Machines(context.Background(), factory)
	repo.ProductionLines(context.Background(), factory)
	if loads != 3 {
		t.Errorf("Expected no loads after warmup, got %d total", loads)
	}
}
