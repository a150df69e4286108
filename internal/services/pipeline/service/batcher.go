package service

import (
	"context"
	"time"

	"warden/internal/platform/metrics"
)

// Run implements domain.RunnerPort. Exactly one Run loop may be active
// per service
func (s *Service) Run(ctx context.Context) error {
	buf := make([]item, 0, s.Cfg.QueueSize)

	var timer *time.Timer
	var timerC <-chan time.Time
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}
	defer stopTimer()

	flush := func(ctx context.Context, trigger string) {
		stopTimer()
		// an empty buffer still flushes when a requeued batch is waiting
		if len(buf) == 0 && len(s.pending) == 0 {
			return
		}
		batch := buf
		buf = make([]item, 0, s.Cfg.QueueSize)

		if len(batch) > 0 {
			s.flushed.Add(int64(len(batch)))
			metrics.BatchesFlushed.WithLabelValues(trigger).Inc()
			metrics.BatchSize.Observe(float64(len(batch)))
			s.Log.Debug().Int("size", len(batch)).Str("trigger", trigger).Msg("flushing batch")
		}

		s.process(ctx, batch)
		metrics.QueueUtilization.Set(float64(len(s.queue)) / float64(cap(s.queue)))

		// requeued batches retry on the next tick even with no new traffic
		if len(s.pending) > 0 {
			timer = time.NewTimer(s.Cfg.Timeout)
			timerC = timer.C
		}
	}

	for {
		select {
		case <-ctx.Done():
			// drain whatever already made it onto the queue, then flush
			// once with a fresh context so shutdown is not lossy
			for {
				select {
				case it := <-s.queue:
					buf = append(buf, it)
					continue
				default:
				}
				break
			}
			flush(context.WithoutCancel(ctx), "shutdown")
			return nil

		case it := <-s.queue:
			buf = append(buf, it)
			if timer == nil {
				// timer runs from the oldest buffered message
				timer = time.NewTimer(s.Cfg.Timeout)
				timerC = timer.C
			}
			if len(buf) >= s.Cfg.QueueSize {
				flush(ctx, "size")
			}

		case <-timerC:
			timer = nil
			timerC = nil
			flush(ctx, "timeout")
		}
	}
}
