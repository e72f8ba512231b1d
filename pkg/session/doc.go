/*
Package session assembles and manages live session contexts.

Start runs the bootstrap pipeline for one session:

	gate.Filter -> resolver.Resolve -> gate.Apply(pre) -> store.New
	  -> trigger engine loop -> gate.Apply(post) -> exposure.New

A fatal bootstrap error never yields a partially built session: Start returns
an empty session (no values, no subscriptions) together with the error, so
callers that choose to proceed do so with predictable emptiness.

Manager keeps the live sessions of a process keyed by (scope, session id) and
guarantees that concurrent opens of the same key bootstrap once, optionally
coordinating across replicas through a ports.DistributedLocker.
*/
package session
