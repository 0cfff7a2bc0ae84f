/*
Package consultation implements the consultation lifecycle.

A Service ties the decision graph, the traversal engine and the session manager together:
every mutation is validated against the status machine, applied under the consultation's
lock and persisted before the caller sees the result.

	active ──► draft ──► active
	   │         │
	   ├─────────┴──► canceled
	   └────────────► completed
*/
package consultation
