// Package resolver produces the initial value of every variable of a manifest.
//
// Each source kind has its own strategy: static values are returned verbatim,
// environment values are coerced to the declared type, record values are
// fetched once per (store, collection, lookup key) batch, and derived values
// start at their default. All strategies run concurrently and are joined
// before the result is returned; an overall timeout makes the whole bootstrap
// fail rather than return an incomplete set.
package resolver
