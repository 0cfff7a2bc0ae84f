/*
Package session serializes access to consultations.

The Manager pairs a per-consultation local lock (reference counted, so idle sessions
hold no memory) with an optional distributed lock, and performs every mutation as a
fresh read-modify-write guarded by the store's optimistic version check.
*/
package session
