// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across provider executors.
package httputil

import (
	"context"
	"net/http"
	"time"
)

// RetryBaseDelay is the pause before a transient-error retry. Tests override
// this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

const defaultMaxRetries = 1

// DoWithRetry executes an HTTP request and retries transient transport
// errors (connection reset, DNS hiccough) with a short delay. The retry
// budget is fixed and small: providers run under a per-provider timeout, so a
// slow retry loop would only convert an error into a timeout.
//
// When maxRetries is 0 the default (1) is used. Rate-limit and quota
// responses (429, 402) are returned as ordinary responses so the executor can
// classify them into a provider status; they are never retried here. If the
// context is cancelled during the backoff wait the function returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(RetryBaseDelay):
			}
		}

		resp, err := client.Do(req.Clone(ctx))
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, lastErr
}
