// Package resilience provides a circuit breaker for outbound calls.
//
// The playground depends on the public npm registry for package search.
// When the registry degrades, the breaker fails those calls fast instead
// of holding request goroutines on a slow upstream.
package resilience
