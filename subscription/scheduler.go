package subscription

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrAlreadySubscribed is returned by Scheduler.Add when a schedule
	// for the same Key has already been registered.
	ErrAlreadySubscribed = errors.New("subscription: already subscribed")

	// ErrNotSubscribed is returned when the Key targeted by an operation
	// has no schedule registered.
	ErrNotSubscribed = errors.New("subscription: not subscribed")

	// ErrSchedulerClosed is returned when registering a schedule
	// on a Scheduler that has been closed.
	ErrSchedulerClosed = errors.New("subscription: scheduler is closed")
)

// TickFunc is called by the Scheduler every time the schedule of a Key fires.
type TickFunc func(ctx context.Context, key Key)

// IntervalChangedFunc is called by the Scheduler when the interval of
// a schedule has been set, or changed.
type IntervalChangedFunc func(key Key, interval time.Duration)

// Subscription is a snapshot of a schedule registered in the Scheduler.
type Subscription struct {
	Key      Key
	Interval time.Duration
	Paused   bool
}

type schedule struct {
	key               Key
	interval          time.Duration
	paused            bool
	timer             *time.Timer
	done              chan struct{}
	onTick            TickFunc
	onIntervalChanged IntervalChangedFunc
}

// Scheduler owns the recurring schedules of all the subscriptions.
//
// Every schedule runs in its own goroutine, firing its TickFunc after every
// interval. The next tick is armed only after the previous TickFunc returned,
// so ticks of the same schedule never overlap.
//
// All state mutations are guarded by a single mutex, which is never held
// while a TickFunc runs.
//
// Use NewScheduler to create a new instance.
type Scheduler struct {
	mx        sync.Mutex
	schedules map[Key]*schedule
	leases    map[Key]*Lease
	closed    bool

	ctx    context.Context //nolint:containedctx // Root context of all ticks, canceled on Close.
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler returns a new Scheduler with no schedules registered.
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		schedules: make(map[Key]*schedule),
		leases:    make(map[Key]*Lease),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Add registers a new schedule for the Key, calling onTick every interval.
//
// onIntervalChanged is optional: if specified, it is called with
// the effective interval of the schedule once registered.
func (s *Scheduler) Add(key Key, interval time.Duration, onTick TickFunc, onIntervalChanged IntervalChangedFunc) error {
	if interval <= 0 {
		return fmt.Errorf("subscription.Scheduler: invalid interval for '%s', %s", key, interval)
	}

	if onTick == nil {
		return fmt.Errorf("subscription.Scheduler: tick function is required for '%s'", key)
	}

	s.mx.Lock()

	if s.closed {
		s.mx.Unlock()
		return ErrSchedulerClosed
	}

	if _, ok := s.schedules[key]; ok {
		s.mx.Unlock()
		return fmt.Errorf("subscription.Scheduler: failed to add '%s', %w", key, ErrAlreadySubscribed)
	}

	sch := &schedule{
		key:               key,
		interval:          interval,
		timer:             time.NewTimer(interval),
		done:              make(chan struct{}),
		onTick:            onTick,
		onIntervalChanged: onIntervalChanged,
	}

	s.schedules[key] = sch
	s.wg.Add(1)

	s.mx.Unlock()

	go s.run(sch)

	if onIntervalChanged != nil {
		onIntervalChanged(key, interval)
	}

	return nil
}

func (s *Scheduler) run(sch *schedule) {
	defer s.wg.Done()
	defer sch.timer.Stop()

	for {
		select {
		case <-sch.done:
			return
		case <-s.ctx.Done():
			return
		case <-sch.timer.C:
			sch.onTick(s.ctx, sch.key)
			s.rearm(sch)
		}
	}
}

func (s *Scheduler) rearm(sch *schedule) {
	s.mx.Lock()
	defer s.mx.Unlock()

	if s.schedules[sch.key] == sch && !sch.paused {
		sch.timer.Reset(sch.interval)
	}
}

// Remove cancels and discards the schedule of the Key.
// Removing a Key that has no schedule is a no-op.
//
// Remove does not wait for an in-flight tick to complete, so that it can
// be safely called from within a TickFunc.
func (s *Scheduler) Remove(key Key) bool {
	s.mx.Lock()
	defer s.mx.Unlock()

	sch, ok := s.schedules[key]
	if !ok {
		return false
	}

	delete(s.schedules, key)
	sch.timer.Stop()
	close(sch.done)

	return true
}

// Has reports whether a schedule is registered for the Key.
func (s *Scheduler) Has(key Key) bool {
	s.mx.Lock()
	defer s.mx.Unlock()

	_, ok := s.schedules[key]

	return ok
}

// Lease is the exclusive right to work on behalf of a schedule,
// obtained with Scheduler.Pause and released with Resume.
//
// A Lease is bound to the schedule instance it has been taken on, not to its Key:
// removing the schedule and adding a new one for the same Key does not
// transfer the Lease, and no other Lease can be taken on the Key until
// this one is released.
type Lease struct {
	scheduler *Scheduler
	schedule  *schedule
}

// Active reports whether the leased schedule is still registered.
// It returns false once the schedule has been removed, even if the same Key
// has been registered again since.
func (l *Lease) Active() bool {
	l.scheduler.mx.Lock()
	defer l.scheduler.mx.Unlock()

	return l.scheduler.schedules[l.schedule.key] == l.schedule
}

// Resume releases the Lease, resuming the leased schedule if still registered.
// Resuming a released Lease is a no-op.
func (l *Lease) Resume() {
	s := l.scheduler

	s.mx.Lock()
	defer s.mx.Unlock()

	key := l.schedule.key
	if s.leases[key] != l {
		return
	}

	delete(s.leases, key)
	s.resume(l.schedule)
}

// resume must be called with the mutex held.
func (s *Scheduler) resume(sch *schedule) {
	if s.schedules[sch.key] != sch || !sch.paused {
		return
	}

	sch.paused = false
	sch.timer.Reset(sch.interval)
}

// Pause suspends the schedule of the Key, until the returned Lease is resumed.
//
// Pause reports whether the schedule has been moved from active to paused:
// false is returned if the Key has no schedule, if it was paused already,
// or if a Lease taken on a previous schedule of the same Key is still held.
func (s *Scheduler) Pause(key Key) (*Lease, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()

	sch, ok := s.schedules[key]
	if !ok || sch.paused {
		return nil, false
	}

	if _, held := s.leases[key]; held {
		return nil, false
	}

	sch.paused = true
	sch.timer.Stop()

	lease := &Lease{scheduler: s, schedule: sch}
	s.leases[key] = lease

	return lease, true
}

// Resume continues the schedule currently registered for the Key, releasing
// the Lease taken on it, if any: the next tick fires after a full interval.
// Resuming an active schedule is a no-op.
//
// Leases taken on previous schedules of the same Key are not released.
func (s *Scheduler) Resume(key Key) {
	s.mx.Lock()
	defer s.mx.Unlock()

	sch, ok := s.schedules[key]
	if !ok {
		return
	}

	if lease, held := s.leases[key]; held && lease.schedule == sch {
		delete(s.leases, key)
	}

	s.resume(sch)
}

// Reschedule changes the interval of the schedule of the Key.
// The new interval is effective from the next tick.
func (s *Scheduler) Reschedule(key Key, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("subscription.Scheduler: invalid interval for '%s', %s", key, interval)
	}

	s.mx.Lock()

	sch, ok := s.schedules[key]
	if !ok {
		s.mx.Unlock()
		return fmt.Errorf("subscription.Scheduler: failed to reschedule '%s', %w", key, ErrNotSubscribed)
	}

	sch.interval = interval
	if !sch.paused {
		sch.timer.Reset(interval)
	}

	onIntervalChanged := sch.onIntervalChanged

	s.mx.Unlock()

	if onIntervalChanged != nil {
		onIntervalChanged(key, interval)
	}

	return nil
}

// Subscriptions returns a snapshot of all the registered schedules,
// sorted by stream name and subscriber id.
func (s *Scheduler) Subscriptions() []Subscription {
	s.mx.Lock()

	result := make([]Subscription, 0, len(s.schedules))
	for key, sch := range s.schedules {
		result = append(result, Subscription{Key: key, Interval: sch.interval, Paused: sch.paused})
	}

	s.mx.Unlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Key.Stream != result[j].Key.Stream {
			return result[i].Key.Stream < result[j].Key.Stream
		}

		return result[i].Key.SubscriberID < result[j].Key.SubscriberID
	})

	return result
}

// Close removes all the schedules, cancels the context passed to
// the in-flight ticks and waits for them to return.
//
// Close must not be called from within a TickFunc.
func (s *Scheduler) Close() {
	s.mx.Lock()

	if !s.closed {
		s.closed = true

		for key, sch := range s.schedules {
			delete(s.schedules, key)
			sch.timer.Stop()
			close(sch.done)
		}
	}

	s.mx.Unlock()

	s.cancel()
	s.wg.Wait()
}
