// Package iugu provides a typed HTTP client for the Iugu payment gateway.
//
// The client exposes the customer, payment method, charge, invoice and
// subscription resources as explicit request/response structs instead of
// dynamic maps, so callers only ever see the fields they actually consume.
//
// Gateway rejections (invalid plan, declined card, validation failures) are
// returned as *APIError so they can be distinguished from transport failures.
// Transient failures (network errors, 5xx responses) are retried with
// exponential backoff behind a circuit breaker.
//
// Usage:
//
//	var cfg iugu.Config
//	config.MustLoad(&cfg)
//
//	client, err := iugu.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	customer, err := client.CreateCustomer(ctx, "user@example.com", nil)
package iugu
