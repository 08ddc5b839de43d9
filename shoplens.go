// Package shoplens analyses e-commerce transaction datasets.
//
// Usage:
//
//	import "github.com/spektr-org/shoplens/engine"
//
//	store, err := helpers.ParseCSVStore(file)
//	report, err := engine.Analyze(store, engine.FilterSpec{Category: "Electronics"},
//	    engine.WithPeriod(engine.PeriodMonth),
//	    engine.WithTopN(5),
//	)
//
// The engine takes an immutable Store and a FilterSpec and returns a Report:
// summary metrics, time buckets, categorical breakdowns, customer insights
// and orders flagged by explainable threshold heuristics. It never mutates
// the store and makes no external calls.
//
// Loading and persistence live in helpers (CSV, cache) and storage
// (PostgreSQL). The server package exposes the engine over HTTP with
// per-session filters, and cmd/shoplens is the command-line front end.
package shoplens
