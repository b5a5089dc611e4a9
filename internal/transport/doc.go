// Package transport is the HTTP layer the Vimeo client dispatches through.
//
// A Library exposes one VerbFunc per HTTP verb. The default implementation,
// HTTP, sends requests through a RoundTripper chain:
//
//	rate limit → trace context propagation → debug logging → net/http
//
// wrapped by a retrying client. Authentication is not decided here: callers
// pass an AuthStrategy in Options and the transport applies it right before
// the request leaves.
//
//	lib := transport.New(transport.WithRetry(3, time.Second, 10*time.Second))
//	get, _ := lib.Lookup("get")
//	resp, err := get(ctx, "https://api.vimeo.com/me", transport.NewOptions(
//	  transport.WithHeader("Accept", "application/json"),
//	))
package transport
