/*
Package observability turns engine lifecycle hooks into Prometheus metrics and
structured log records.

Both helpers return a domain.LifecycleHooks value; combine them with
LifecycleHooks.Merge and pass the result to the engine with WithHooks.
*/
package observability
