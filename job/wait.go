package job

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// PollInterval is the default granularity of every bounded wait.
const PollInterval = 100 * time.Millisecond

var errDeadline = errors.New("deadline exceeded")

// Predicate is evaluated on every poll tick. It must not have side effects.
type Predicate func(j *Job) bool

// HasOutputLine is true once the job produced at least one stdout line.
func HasOutputLine(j *Job) bool {
	return j.OutputLen() > 0
}

// HasExited is true once the job left Running.
func HasExited(j *Job) bool {
	return !j.Running()
}

// Waiter blocks on jobs with a fixed poll granularity.
type Waiter struct {
	Interval time.Duration
}

// DefaultWaiter polls at PollInterval.
var DefaultWaiter = Waiter{Interval: PollInterval}

func (w Waiter) interval() time.Duration {
	if w.Interval <= 0 {
		return PollInterval
	}
	return w.Interval
}

// Wait blocks until j leaves Running or timeout elapses.
//
// Returns true if the job completed in time.
func Wait(j *Job, timeout time.Duration) bool {
	return DefaultWaiter.Wait(context.Background(), j, timeout)
}

// WaitFor polls pred until it holds or timeout elapses.
//
// Returns true if pred was satisfied. The job may still be running.
func WaitFor(j *Job, timeout time.Duration, pred Predicate) bool {
	return DefaultWaiter.WaitFor(context.Background(), j, timeout, pred)
}

// WaitAll returns true iff every job leaves Running before the shared
// deadline. A single straggler makes the whole call return false.
func WaitAll(timeout time.Duration, jobs ...*Job) bool {
	return DefaultWaiter.WaitAll(context.Background(), timeout, jobs...)
}

// Wait blocks until j leaves Running, timeout elapses or ctx is done.
func (w Waiter) Wait(ctx context.Context, j *Job, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-j.Done():
		return true
	case <-timer.C:
		return !j.Running()
	case <-ctx.Done():
		return !j.Running()
	}
}

// WaitFor evaluates pred now, on every tick, when the job completes and
// once more at the deadline.
func (w Waiter) WaitFor(ctx context.Context, j *Job, timeout time.Duration, pred Predicate) bool {
	if pred(j) {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()

	done := j.Done()
	for {
		select {
		case <-ticker.C:
		case <-done:
			// evaluate once against the final state, then keep ticking
			done = nil
		case <-timer.C:
			return pred(j)
		case <-ctx.Done():
			return pred(j)
		}
		if pred(j) {
			return true
		}
	}
}

// WaitAll is a conjunctive gate over a shared deadline.
func (w Waiter) WaitAll(ctx context.Context, timeout time.Duration, jobs ...*Job) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			select {
			case <-j.Done():
				return nil
			case <-ctx.Done():
				if !j.Running() {
					return nil
				}
				return errDeadline
			}
		})
	}
	return g.Wait() == nil
}
