// Package repository provides bun-backed repositories: CRUD, paging and
// slicing, derived queries parsed from method names, specifications, query
// by example, projections, named and native queries, pessimistic locking,
// entity graphs, and a session with a per-transaction identity cache.
package repository
