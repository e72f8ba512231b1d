/*
Package mozaiks resolves, gates and derives the context variables of multi-agent
conversation sessions.

A manifest declares named, typed variables and where each one comes from:

  - static: a literal value.
  - environment: a process environment variable, coerced to the declared type.
  - record: a field of a tenant-scoped document fetched once at session start.
  - derived: a value that starts at a default and flips when every declared
    trigger has been observed on the agent message stream.

# Concept

An Engine owns one validated manifest. Start bootstraps a session: sources are
resolved concurrently under a deadline, the production gate removes
environment-sourced (and optionally record-sourced) variables, and a trigger
loop begins consuming events. Agents only see the variables listed for them in
the manifest.

# Usage

	eng, err := mozaiks.New("./workflow.yaml",
		mozaiks.WithMode(domain.ModeProduction),
		mozaiks.WithRecordStore(records),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	s, err := eng.Start(ctx, domain.SessionInputs{SessionID: "s-1", EnterpriseScope: "acme"})
	if err != nil {
		// s is an empty, usable context
		log.Printf("bootstrap: %v", err)
	}

	_ = s.Publish(domain.Event{SenderName: "InterviewAgent", TextContent: "NEXT"})
	vars := s.VisibleTo("PlannerAgent")

A manifest that fails validation yields no Engine. Callers that must keep the
conversation going can fall back to an engine over an empty manifest, whose
sessions hold no variables and answer every query with emptiness:

	eng, err := mozaiks.New("./workflow.yaml")
	if err != nil {
		log.Printf("manifest: %v", err)
		eng, _ = mozaiks.New("", mozaiks.WithManifest(manifest.Empty()))
	}

Ports and adapters live under pkg/: pkg/ports defines the RecordStore port and
pkg/adapters provides memory, redis and loam backends plus HTTP and MCP surfaces.
*/
package mozaiks
