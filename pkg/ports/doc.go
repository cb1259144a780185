/*
Package ports defines the driven ports (interfaces) for workflow storage.

These interfaces decouple the engine and API layers from concrete backends,
so the same server code runs against an in-memory map, a SQLite file, or a
Redis instance.

# Key Interfaces

  - GraphStore: persists graph definitions keyed by ID.
  - RunStore: persists run outcomes with their execution logs.
  - Store: the union implemented by every adapter.

The tests subpackage carries a reusable contract suite; every adapter runs
it so behavior cannot drift between backends.
*/
package ports
