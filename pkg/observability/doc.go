/*
Package observability turns consultation lifecycle events into Prometheus metrics
and structured log lines.

Both are delivered as domain.LifecycleHooks; Combine merges several hook sets so
a service can feed metrics and logs at once.
*/
package observability
