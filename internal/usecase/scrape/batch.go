package scrape

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"relaypool/internal/observability/metrics"
	"relaypool/internal/observability/tracing"
)

// BatchConfig holds the batch scheduler tuning.
type BatchConfig struct {
	// Concurrency is the chunk size: at most this many targets run at once.
	Concurrency int

	// BaseDelay is the inter-chunk pause before adaptation. The effective
	// pause is BaseDelay * (2 - successRate), so a failing batch slows down
	// to twice the base and a clean one speeds up to the base itself.
	BaseDelay time.Duration
}

// DefaultBatchConfig returns the default batch tuning.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Concurrency: 3,
		BaseDelay:   2 * time.Second,
	}
}

// TargetResult is the settled outcome of one target in a batch.
type TargetResult struct {
	Target   string
	Result   *Result
	Err      error
	Duration time.Duration
}

// BatchSummary aggregates a batch run. Total always equals
// Succeeded + Failed.
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []TargetResult
	Duration  time.Duration
}

// RunBatch processes the targets in chunks of cfg.Concurrency. Every target
// in a chunk settles (success or terminal failure) before the next chunk
// starts, and failures never abort the batch. Between chunks the scheduler
// pauses for an adaptive delay driven by the success rate so far. Context
// cancellation stops scheduling new chunks; targets already in flight finish
// under their own attempt timeouts.
func (s *Service) RunBatch(ctx context.Context, targets []string, cfg BatchConfig) *BatchSummary {
	ctx, span := tracing.GetTracer().Start(ctx, "scrape.RunBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("targets", len(targets)))

	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	start := s.clock.Now()
	summary := &BatchSummary{
		Total:   len(targets),
		Results: make([]TargetResult, len(targets)),
	}

	for offset := 0; offset < len(targets); offset += cfg.Concurrency {
		if ctx.Err() != nil {
			s.cancelRemaining(ctx, summary, targets, offset)
			break
		}

		end := offset + cfg.Concurrency
		if end > len(targets) {
			end = len(targets)
		}

		var wg sync.WaitGroup
		for i := offset; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				targetStart := s.clock.Now()
				result, err := s.RunWithRetry(ctx, targets[idx])
				summary.Results[idx] = TargetResult{
					Target:   targets[idx],
					Result:   result,
					Err:      err,
					Duration: s.clock.Now().Sub(targetStart),
				}
			}(i)
		}
		wg.Wait()

		for i := offset; i < end; i++ {
			settled := summary.Results[i]
			metrics.RecordBatchTarget(settled.Err == nil)
			if settled.Err == nil {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
		}

		if end < len(targets) {
			processed := summary.Succeeded + summary.Failed
			pause := adaptiveDelay(cfg.BaseDelay, summary.Succeeded, processed)
			slog.Debug("batch chunk settled",
				slog.Int("processed", processed),
				slog.Int("succeeded", summary.Succeeded),
				slog.Duration("pause", pause))
			if err := s.wait(ctx, pause); err != nil {
				s.cancelRemaining(ctx, summary, targets, end)
				break
			}
		}
	}

	summary.Duration = s.clock.Now().Sub(start)
	metrics.RecordBatchDuration(summary.Duration)
	span.SetAttributes(
		attribute.Int("succeeded", summary.Succeeded),
		attribute.Int("failed", summary.Failed))

	slog.Info("batch completed",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", summary.Duration))

	return summary
}

// adaptiveDelay scales the base pause by (2 - successRate): a fully failing
// batch waits twice the base, a fully succeeding one waits exactly the base.
func adaptiveDelay(base time.Duration, succeeded, processed int) time.Duration {
	if processed <= 0 {
		return base
	}
	successRate := float64(succeeded) / float64(processed)
	return time.Duration(float64(base) * (2 - successRate))
}

// cancelRemaining settles every unscheduled target as failed with the
// cancellation error so Total still equals Succeeded + Failed.
func (s *Service) cancelRemaining(ctx context.Context, summary *BatchSummary, targets []string, from int) {
	for i := from; i < len(targets); i++ {
		summary.Results[i] = TargetResult{Target: targets[i], Err: ctx.Err()}
		metrics.RecordBatchTarget(false)
		summary.Failed++
	}
}
