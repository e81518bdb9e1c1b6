// Package jobs runs deferred background work: unique one-time and periodic
// jobs with retry backoff and a network constraint.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"busdriver/internal/remote"
)

// Result is the outcome of one worker run
type Result int

const (
	ResultSuccess Result = iota
	// ResultRetry runs the work again after the backoff delay
	ResultRetry
	// ResultFailure gives up on this run
	ResultFailure
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultRetry:
		return "retry"
	case ResultFailure:
		return "failure"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Worker does one unit of background work
type Worker interface {
	DoWork(ctx context.Context) Result
}

// WorkerFunc adapts a function to Worker
type WorkerFunc func(ctx context.Context) Result

func (f WorkerFunc) DoWork(ctx context.Context) Result { return f(ctx) }

// Options configures a Scheduler. Zero values take the defaults.
type Options struct {
	BackoffInitial   time.Duration              // default 30s
	BackoffMax       time.Duration              // default 5h
	Connectivity     remote.ConnectivityChecker // nil means always online
	ConnectivityPoll time.Duration              // default 5s
}

type work struct {
	name     string
	tag      string
	worker   Worker
	periodic bool
	interval time.Duration

	cancel  context.CancelFunc
	running bool
	rerun   bool
}

// Scheduler owns the goroutines of all enqueued work. Work is keyed by a
// unique name; at most one goroutine exists per name.
type Scheduler struct {
	opts Options
	log  *zap.SugaredLogger

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	works  map[string]*work
	closed bool
}

func NewScheduler(opts Options, log *zap.SugaredLogger) *Scheduler {
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = 30 * time.Second
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = 5 * time.Hour
	}
	if opts.BackoffMax < opts.BackoffInitial {
		opts.BackoffMax = opts.BackoffInitial
	}
	if opts.Connectivity == nil {
		opts.Connectivity = remote.AlwaysOnline{}
	}
	if opts.ConnectivityPoll <= 0 {
		opts.ConnectivityPoll = 5 * time.Second
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Scheduler{
		opts:  opts,
		log:   log,
		ctx:   ctx,
		stop:  stop,
		works: make(map[string]*work),
	}
}

// EnqueueUniqueWork schedules a one-time run under name. If work with that
// name is running, one more run is appended after it. If it is still
// waiting to run, the request is dropped.
func (s *Scheduler) EnqueueUniqueWork(name, tag string, w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if existing, ok := s.works[name]; ok {
		if existing.running {
			existing.rerun = true
			s.log.Debugf("Work %s running, appended another run", name)
		}
		return
	}

	s.start(&work{name: name, tag: tag, worker: w})
}

// EnqueueUniquePeriodicWork runs w every interval under name. An existing
// periodic work with the same name is kept as is.
func (s *Scheduler) EnqueueUniquePeriodicWork(name, tag string, interval time.Duration, w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if _, ok := s.works[name]; ok {
		return
	}

	s.start(&work{name: name, tag: tag, worker: w, periodic: true, interval: interval})
}

// CancelAllWorkByTag stops every work carrying tag. Running workers see
// their context cancelled.
func (s *Scheduler) CancelAllWorkByTag(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for name, w := range s.works {
		if w.tag == tag {
			w.cancel()
			delete(s.works, name)
			n++
		}
	}
	if n > 0 {
		s.log.Infof("🛑 Cancelled %d work(s) tagged %s", n, tag)
	}
	return n
}

// Scheduled returns the unique names currently known to the scheduler
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.works))
	for name := range s.works {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsScheduled reports whether work with name is pending or running
func (s *Scheduler) IsScheduled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.works[name]
	return ok
}

// WaitOneTime blocks until no one-time work is pending or running. It
// returns false when ctx ends first. Periodic work is ignored.
func (s *Scheduler) WaitOneTime(ctx context.Context) bool {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if !s.hasOneTime() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) hasOneTime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.works {
		if !w.periodic {
			return true
		}
	}
	return false
}

// Stop cancels all work and waits for every goroutine to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	s.works = make(map[string]*work)
	s.mu.Unlock()

	s.stop()
	s.wg.Wait()
}

// start must be called with s.mu held
func (s *Scheduler) start(w *work) {
	ctx, cancel := context.WithCancel(s.ctx)
	w.cancel = cancel
	s.works[w.name] = w

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if w.periodic {
			s.runPeriodic(ctx, w)
		} else {
			s.runOnce(ctx, w)
		}
	}()
}

func (s *Scheduler) runOnce(ctx context.Context, w *work) {
	attempt := 0
	for {
		if !s.waitConnected(ctx, w) {
			return
		}

		res := s.execute(ctx, w)

		s.mu.Lock()
		w.running = false
		if ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		if res == ResultRetry {
			w.rerun = false
			s.mu.Unlock()

			attempt++
			delay := s.backoff(attempt)
			s.log.Infof("🔄 Work %s will retry in %v (attempt %d)", w.name, delay, attempt)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		attempt = 0
		if w.rerun {
			w.rerun = false
			s.mu.Unlock()
			continue
		}
		if s.works[w.name] == w {
			delete(s.works, w.name)
		}
		s.mu.Unlock()
		return
	}
}

func (s *Scheduler) runPeriodic(ctx context.Context, w *work) {
	attempt := 0
	for {
		if !s.waitConnected(ctx, w) {
			return
		}

		res := s.execute(ctx, w)

		s.mu.Lock()
		w.running = false
		s.mu.Unlock()

		delay := w.interval
		if res == ResultRetry {
			attempt++
			delay = s.backoff(attempt)
			s.log.Infof("🔄 Periodic work %s will retry in %v (attempt %d)", w.name, delay, attempt)
		} else {
			attempt = 0
		}

		if !sleep(ctx, delay) {
			return
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, w *work) (res Result) {
	s.mu.Lock()
	w.running = true
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("❌ Work %s panicked: %v", w.name, r)
			res = ResultFailure
		}
	}()

	start := time.Now()
	res = w.worker.DoWork(ctx)
	s.log.Debugf("Work %s finished: %s in %v", w.name, res, time.Since(start))
	return res
}

// waitConnected blocks until the connectivity checker reports online
func (s *Scheduler) waitConnected(ctx context.Context, w *work) bool {
	logged := false
	for {
		if ctx.Err() != nil {
			return false
		}
		if s.opts.Connectivity.Connected(ctx) {
			return true
		}
		if !logged {
			s.log.Infof("📡 Work %s waiting for network", w.name)
			logged = true
		}
		if !sleep(ctx, s.opts.ConnectivityPoll) {
			return false
		}
	}
}

// backoff returns initial * 2^(attempt-1), capped at BackoffMax
func (s *Scheduler) backoff(attempt int) time.Duration {
	delay := s.opts.BackoffInitial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= s.opts.BackoffMax {
			return s.opts.BackoffMax
		}
	}
	if delay > s.opts.BackoffMax {
		return s.opts.BackoffMax
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
