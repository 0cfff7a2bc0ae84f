/*
Package ports defines the driven ports (interfaces) of the consultation engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various storage backends, graph sources and directories.

# Key Interfaces

  - GraphLoader: loads the decision graph definition (file, Loam vault, memory).
  - SessionStore: persists consultations with optimistic versioning.
  - DistributedLocker: coordinates access to one consultation across replicas.
  - Directory: answers whether patient and doctor identifiers are known.
*/
package ports
