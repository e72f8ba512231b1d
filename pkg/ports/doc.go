/*
Package ports defines the driven ports (interfaces) for the context engine.

These interfaces decouple bootstrap and session management from external
implementations, allowing record-sourced variables to be served by various
storage backends.

# Key Interfaces

  - RecordStore: Fetches fields of one document for a tenant scope (e.g., from Redis, Loam or Memory).
  - RecordWriter: Seeds documents; used by tooling and tests.
  - DistributedLocker: Provides distributed locking so that concurrent replicas bootstrap a session once.
*/
package ports
