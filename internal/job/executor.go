package job

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 4

type task struct {
	job Job
	ok  bool
}

// Executor is a fixed pool of workers running Execute. Submit, Drain,
// WaitIdle and Close belong to the owning goroutine; completed jobs come back
// over a single results channel and are finalized only inside Drain or
// WaitIdle.
type Executor struct {
	log     *zap.Logger
	scratch *Scratch
	jobs    chan *task
	results chan *task
	group   *errgroup.Group
	cancel  context.CancelFunc

	workers  int
	depth    int
	inFlight int
	closed   bool
}

// NewExecutor starts workers goroutines. depth bounds the number of jobs that
// may be submitted and not yet finalized before Submit blocks.
func NewExecutor(ctx context.Context, log *zap.Logger, workers, depth int) *Executor {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if depth < workers {
		depth = workers
	}
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	e := &Executor{
		log:     log.With(zap.String("component", "executor")),
		scratch: NewScratch(),
		jobs:    make(chan *task, depth),
		results: make(chan *task, depth),
		group:   g,
		cancel:  cancel,
		workers: workers,
		depth:   depth,
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error { return e.work(ctx) })
	}
	return e
}

func (e *Executor) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t, ok := <-e.jobs:
			if !ok {
				return nil
			}
			t.ok = e.execute(t.job)
			select {
			case e.results <- t:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (e *Executor) execute(j Job) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("job panicked in execute", zap.String("panic", fmt.Sprint(r)))
			ok = false
		}
	}()
	return j.Execute(e.scratch)
}

// Submit runs Prepare on the caller and queues Execute. A job whose Prepare
// fails is finalized immediately and Submit reports false. Submit blocks while
// Full; callers that must not block check Full first.
func (e *Executor) Submit(j Job) bool {
	if e.closed {
		j.Finalize(false)
		return false
	}
	if !j.Prepare() {
		j.Finalize(false)
		return false
	}
	e.inFlight++
	e.jobs <- &task{job: j}
	return true
}

// Drain finalizes every job that has completed, without blocking, and
// returns how many it finalized.
func (e *Executor) Drain() int {
	n := 0
	for {
		select {
		case t := <-e.results:
			e.finish(t)
			n++
		default:
			return n
		}
	}
}

func (e *Executor) finish(t *task) {
	e.inFlight--
	t.job.Finalize(t.ok)
}

// WaitIdle blocks, finalizing results as they arrive, until no job is in
// flight or ctx is done.
func (e *Executor) WaitIdle(ctx context.Context) error {
	for e.inFlight > 0 {
		select {
		case t := <-e.results:
			e.finish(t)
		case <-ctx.Done():
			return fmt.Errorf("wait idle with %d jobs in flight: %w", e.inFlight, ctx.Err())
		}
	}
	return nil
}

// InFlight is the number of submitted jobs not yet finalized.
func (e *Executor) InFlight() int { return e.inFlight }

// Full reports whether depth jobs are awaiting Finalize. Jobs count until
// Drain or WaitIdle finalizes them, even after their owner stopped caring.
func (e *Executor) Full() bool { return e.inFlight >= e.depth }

func (e *Executor) Workers() int { return e.workers }

func (e *Executor) Scratch() *Scratch { return e.scratch }

// Close stops the workers. Call WaitIdle first; jobs still queued are
// abandoned without Finalize.
func (e *Executor) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.jobs)
	e.cancel()
	return e.group.Wait()
}
