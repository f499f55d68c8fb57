/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/acronis/go-governor/ratelimit"
)

// ExampleNewRateLimitingRoundTripperWithOpts demonstrates the use of RateLimitingRoundTripper.
func ExampleNewRateLimitingRoundTripperWithOpts() {
	// Note: error handling is intentionally omitted so as not to overcomplicate the example.
	// It is strictly necessary to handle all errors in real code.

	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	// Let's allow maximum 2 requests per minute to the "github" service.
	reg := ratelimit.NewRegistry()
	_ = reg.Configure("github", ratelimit.Config{MaxRequests: 2, Window: time.Minute})

	tr, _ := NewRateLimitingRoundTripperWithOpts(http.DefaultTransport, reg, "github", RateLimitingRoundTripperOpts{
		WaitTimeout: time.Millisecond * 100, // Wait maximum 100ms.
	})
	httpClient := &http.Client{Transport: tr}

	for i := 0; i < 3; i++ {
		resp, err := httpClient.Get(server.URL)
		if err != nil {
			var waitErr *RateLimitingWaitError
			if errors.As(err, &waitErr) {
				fmt.Printf("[Req#%d] too many requests to %s\n", i+1, waitErr.Service)
			}
			continue
		}
		_ = resp.Body.Close()
		fmt.Printf("[Req#%d] %d\n", i+1, resp.StatusCode)
	}

	// Output:
	// [Req#1] 204
	// [Req#2] 204
	// [Req#3] too many requests to github
}
