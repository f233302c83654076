// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sourcing

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/sourcing-engine/internal/provider"
	"github.com/pdiddy/sourcing-engine/internal/secrets"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// executionSlot is one provider's fan-out slot. The provider task is the only
// writer; the collector reads a slot only after its index arrives on the done
// channel, so a straggler writing past the deadline is never observed.
type executionSlot struct {
	query types.ProviderQuery
	exec  types.ProviderExecutionResult
}

// fanOut runs every provider concurrently through a worker pool and joins on
// completion or the overall deadline, whichever comes first. Providers that
// have not answered by the deadline are recorded as timed out; the rest still
// contribute, so a slow upstream degrades the result set instead of the
// search.
func fanOut(ctx context.Context, providers []provider.Provider, in types.SearchIntent, cfg types.SearchConfig, redactor *secrets.Redactor, log *logrus.Entry) (map[string]types.ProviderQuery, []types.ProviderExecutionResult) {
	poolSize := cfg.PoolSize
	if poolSize < len(providers) {
		poolSize = len(providers)
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		log.WithError(err).Warn("worker pool unavailable, falling back to unbounded goroutines")
	} else {
		defer pool.Release()
	}

	slots := make([]executionSlot, len(providers))
	done := make(chan int, len(providers))

	for i, p := range providers {
		i, p := i, p
		task := func() {
			slots[i] = runProvider(ctx, p, in, cfg, redactor, log)
			done <- i
		}
		if pool == nil || pool.Submit(task) != nil {
			go task()
		}
	}

	queries := make(map[string]types.ProviderQuery, len(providers))
	execs := make([]types.ProviderExecutionResult, len(providers))
	received := make([]bool, len(providers))

	for range providers {
		select {
		case i := <-done:
			received[i] = true
			queries[slots[i].query.ProviderID] = slots[i].query
			execs[i] = slots[i].exec
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	for i, p := range providers {
		if received[i] {
			continue
		}
		log.WithField("provider", p.ID()).Warn("provider missed the overall deadline")
		execs[i] = types.ProviderExecutionResult{
			ProviderID: p.ID(),
			Status:     types.StatusTimeout,
			Message:    "Provider timed out",
			LatencyMS:  cfg.OverallDeadline.Milliseconds(),
		}
	}
	return queries, execs
}

// runProvider executes one provider under its per-provider timeout and
// finalizes its execution result.
func runProvider(ctx context.Context, p provider.Provider, in types.SearchIntent, cfg types.SearchConfig, redactor *secrets.Redactor, log *logrus.Entry) executionSlot {
	query := p.BuildQuery(in)

	pctx, cancel := context.WithTimeout(ctx, cfg.ProviderTimeout)
	defer cancel()

	start := time.Now()
	records, err := p.Execute(pctx, query)
	latency := time.Since(start).Milliseconds()

	status := provider.StatusOf(err)
	exec := types.ProviderExecutionResult{
		ProviderID: p.ID(),
		Status:     status,
		Records:    records,
		Message:    statusMessage(status),
		LatencyMS:  latency,
	}
	if err != nil {
		log.WithFields(logrus.Fields{
			"provider": p.ID(),
			"status":   status,
			"latency":  latency,
		}).Warn(redactor.Redact(err.Error()))
	}
	return executionSlot{query: query, exec: exec}
}

// statusMessage maps a non-ok status to its caller-facing message. Upstream
// error text never reaches the snapshot; it may carry credentials.
func statusMessage(status types.ProviderStatus) string {
	switch status {
	case types.StatusOK:
		return ""
	case types.StatusExhausted:
		return "API quota exhausted"
	case types.StatusRateLimited:
		return "Rate limit exceeded"
	case types.StatusTimeout:
		return "Provider timed out"
	default:
		return "Search failed"
	}
}
