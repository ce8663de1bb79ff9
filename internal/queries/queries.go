// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

// Package queries binds the generic cache service to the named domain
// lookups the dashboard issues constantly: products, machines, workstations,
// production lines, fixtures, and spec limits.
//
// Each wrapper owns a fixed query-id prefix whose category places it in the
// right TTL tier (machine-type and spec-limit lookups are config-tier and
// long-lived, per-line workstation listings are list-tier and medium-lived).
// The database layer is consumed only as factory closures; this package makes
// no assumption about result types beyond JSON-serializability.
//
// Every write path for an entity must call the matching Invalidate* hook so
// all parameterized read shapes of that entity are dropped together.
package queries

import (
	"context"

	"github.com/qualisight/qualisight/internal/cache"
)

// Query identifiers. The portion before the first '_' doubles as the
// statistics grouping; the full id drives TTL-tier resolution.
const (
	productListQuery    = "product_list"
	productDetailQuery  = "product_detail"
	machineListQuery    = "machine_list"
	machineTypeQuery    = "machine_type_config"
	workstationQuery    = "workstation_list"
	productionLineQuery = "production_line_list"
	fixtureQuery        = "fixture_config"
	specLimitQuery      = "spec_limit_settings"
)

// Repo exposes the pre-bound cached lookups. Construct one over the shared
// cache service and pass it to the query handlers.
type Repo struct {
	cache *cache.Service
}

// NewRepo creates the cached query bindings.
func NewRepo(c *cache.Service) *Repo {
	return &Repo{cache: c}
}

// Products returns the cached product list, loading it via factory on a miss.
func (r *Repo) Products(ctx context.Context, factory cache.Factory) (any, error) {
	return r.cache.GetOrSet(ctx, productListQuery, nil, factory)
}

// ProductByNumber returns one cached product lookup keyed by part number.
func (r *Repo) ProductByNumber(ctx context.Context, productNumber string, factory cache.Factory) (any, error) {
	return r.cache.GetOrSet(ctx, productDetailQuery, map[string]any{"product": productNumber}, factory)
}

// Machines returns the cached machine list.
func (r *Repo) Machines(ctx context.Context, factory cache.Factory) (any, error) {
	return r.cache.GetOrSet(ctx, machineListQuery, nil, factory)
}

// MachineTypes returns the cached machine-type catalog. Machine types change
// rarely, so the id sits in the config TTL tier.
func (r *Repo) MachineTypes(ctx context.Context, factory cache.Factory) (any, error) {
	return r.cache.GetOrSet(ctx, machineTypeQuery, nil, factory)
}

// WorkstationsByLine returns the cached workstation listing for one
// production line.
func (r *Repo) WorkstationsByLine(ctx context.Context, lineID string, factory cache.Factory) (any, error) {
	return r.cache.GetOrSet(ctx, workstationQuery, map[string]any{"line": lineID}, factory)
}

// ProductionLines returns the cached production-line list.
func (r *Repo) ProductionLines(ctx context.Context, factory cache.Factory) (any, error) {
	return r.cache.GetOrSet(ctx, productionLineQuery, nil, factory)
}

// FixturesByMachine returns the cached fixture configuration for one machine.
func (r *Repo) FixturesByMachine(ctx context.Context, machineID string, factory cache.Factory) (any, error) {
	return r.cache.GetOrSet(ctx, fixtureQuery, map[string]any{"machine": machineID}, factory)
}

// SpecLimits returns the cached specification limits for one product.
func (r *Repo) SpecLimits(ctx context.Context, productNumber string, factory cache.Factory) (any, error) {
	return r.cache.GetOrSet(ctx, specLimitQuery, map[string]any{"product": productNumber}, factory)
}

// InvalidateProducts drops every cached product read shape. Call after any
// product create, update, or delete.
func (r *Repo) InvalidateProducts() int {
	return r.cache.InvalidateQuery(productListQuery) +
		r.cache.InvalidateQuery(productDetailQuery)
}

// InvalidateMachines drops every cached machine read shape, including the
// machine-type catalog.
func (r *Repo) InvalidateMachines() int {
	return r.cache.InvalidateQuery(machineListQuery) +
		r.cache.InvalidateQuery(machineTypeQuery)
}

// InvalidateWorkstations drops all per-line workstation listings.
func (r *Repo) InvalidateWorkstations() int {
	return r.cache.InvalidateQuery(workstationQuery)
}

// InvalidateProductionLines drops the line list and its dependent
// workstation listings, which embed line membership.
func (r *Repo) InvalidateProductionLines() int {
	return r.cache.InvalidateQuery(productionLineQuery) +
		r.cache.InvalidateQuery(workstationQuery)
}

// InvalidateFixtures drops all per-machine fixture configurations.
func (r *Repo) InvalidateFixtures() int {
	return r.cache.InvalidateQuery(fixtureQuery)
}

// InvalidateSpecLimits drops all per-product specification limits.
func (r *Repo) InvalidateSpecLimits() int {
	return r.cache.InvalidateQuery(specLimitQuery)
}

// WarmupQueries declares the lookups worth pre-populating at startup, bound
// to the supplied factories. Factories may be nil to skip a query.
func WarmupQueries(products, machines, lines cache.Factory) []cache.WarmupQuery {
	var queries []cache.WarmupQuery
	if products != nil {
		queries = append(queries, cache.WarmupQuery{QueryID: productListQuery, Factory: products})
	}
	if machines != nil {
		queries = append(queries, cache.WarmupQuery{QueryID: machineListQuery, Factory: machines})
	}
	if lines != nil {
		queries = append(queries, cache.WarmupQuery{QueryID: productionLineQuery, Factory: lines})
	}
	return queries
}
