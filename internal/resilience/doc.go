// Package resilience provides reliability patterns for calls to external
// services: the AI composer APIs, the SMS transport, and the roster
// endpoint.
//
// The package supports:
//   - Circuit breakers that shield a degraded upstream across recipients
//   - Retry execution with a fixed backoff schedule per operation kind
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.SMSConfig())
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return callExternalService()
//	})
//
//	text, err := retry.Do(ctx, retry.GenerationConfig(), func() (string, error) {
//	    return generate(ctx)
//	})
package resilience
