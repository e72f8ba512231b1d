/*
Package trigger implements the derived trigger engine of a session.

Derived variables start pending and become satisfied once every declared
trigger has fired at least once. Agent text triggers are driven by the event
loop (Publish + Run, or Process for synchronous replay); UI response triggers
are driven only by ApplyUIResponse. Both paths go through the same
mark-then-check procedure and are serialized with each other, so a given
event order always yields the same flips.

Publish never blocks: events are kept in an unbounded FIFO queue until the
loop consumes them.
*/
package trigger
