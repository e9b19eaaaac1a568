// Package wordpress is the content gateway in front of the WordPress REST API.
//
// Every exported Client method degrades to an empty value (0, empty slice, empty map, or
// a false "found" flag) instead of returning an error, so page rendering never breaks on an
// upstream outage. Failures are logged and counted; nothing is retried or cached.
//
// Internally each request produces a Result that records why a value is empty, which keeps
// "nothing upstream" and "transport failed" distinguishable in tests.
package wordpress
