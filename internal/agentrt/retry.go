package agentrt

import (
	"context"
	"time"

	"github.com/git-iris/gitiris/internal/agentrt/providermodel"
	"github.com/git-iris/gitiris/internal/girerr"
)

// retryBaseDelay and retryFactor implement the spec's exponential backoff:
// base 10ms, factor 2, at most two attempts total for provider-transient
// errors. A 429 carries no provider-advised delay in providermodel.Response
// (the trimmed part set has no headers to round-trip), so it is retried
// under the same schedule as other transient errors rather than a bespoke
// one-shot delay.
const (
	retryBaseDelay = 10 * time.Millisecond
	retryFactor    = 2
	retryAttempts  = 2
)

// complete issues one provider call, retrying provider-transient failures
// per the policy above and applying the per-request timeout to each
// attempt independently.
func (r *Runtime) complete(ctx context.Context, req providermodel.Request) (*providermodel.Response, error) {
	delay := retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
		resp, err := r.client.Complete(callCtx, &req)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, r.timeoutOrCancel(ctx.Err())
		}
		if girerr.KindOf(err) != girerr.KindProviderTransient || attempt == retryAttempts {
			return nil, err
		}

		r.logger.Warn(ctx, "retrying transient provider error", "attempt", attempt, "delay_ms", delay.Milliseconds())
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, r.timeoutOrCancel(ctx.Err())
		}
		delay *= retryFactor
	}
	return nil, lastErr
}
