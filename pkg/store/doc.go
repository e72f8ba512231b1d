/*
Package store holds the live key/value context of one conversation session.

A Context is shared by reference with every agent and tool of the session.
Reads are lock-free: each mutation publishes a new immutable state through an
atomic pointer, so readers always observe a consistent view. Writes go through
a Writer, a separate capability handed out only by New; holding a *Context
never grants write access. All Writer methods are serialized.

Snapshot returns a bounded, redacted copy suitable for logs and APIs.
*/
package store
