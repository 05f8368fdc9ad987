package overlay

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Task is a unit of work queued on a Looper.
type Task struct {
	fn      func()
	due     time.Time
	seq     uint64
	index   int
	removed bool
}

// Looper runs posted functions one at a time on a single goroutine.
// Everything the overlay controller does happens inside a Looper task,
// so controller state needs no locking.
type Looper struct {
	clock Clock

	mu    sync.Mutex
	queue taskQueue
	seq   uint64
	wake  chan struct{}
}

// NewLooper creates an empty looper driven by clock.
func NewLooper(clock Clock) *Looper {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Looper{
		clock: clock,
		wake:  make(chan struct{}, 1),
	}
}

// Clock returns the looper's time source.
func (l *Looper) Clock() Clock {
	return l.clock
}

// Post queues fn to run as soon as possible, after already due tasks.
func (l *Looper) Post(fn func()) *Task {
	return l.PostDelayed(fn, 0)
}

// PostDelayed queues fn to run once d has elapsed.
func (l *Looper) PostDelayed(fn func(), d time.Duration) *Task {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	l.seq++
	t := &Task{fn: fn, due: l.clock.Now().Add(d), seq: l.seq}
	heap.Push(&l.queue, t)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return t
}

// Remove cancels a queued task. A removed task never runs, even if it is already due.
// Removing a task that already ran or was removed is a no-op.
// It reports whether the task was still queued.
func (l *Looper) Remove(t *Task) bool {
	if t == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.removed {
		return false
	}
	t.removed = true
	if t.index >= 0 && t.index < len(l.queue) && l.queue[t.index] == t {
		heap.Remove(&l.queue, t.index)
	}
	return true
}

// Pending returns the number of queued tasks.
func (l *Looper) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Call runs fn on the looper and waits for it to finish.
// If ctx ends before fn was picked up, fn never runs and ctx's error is returned.
// Once fn has started, Call waits for it and returns nil.
// It must not be called from a looper task.
func (l *Looper) Call(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	t := l.Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if l.Remove(t) {
			return ctx.Err()
		}
		<-done
		return nil
	}
}

// RunPending runs every task that is due now, in due order, on the calling goroutine.
// It returns the number of tasks run.
func (l *Looper) RunPending() int {
	n := 0
	for {
		t := l.popDue(l.clock.Now())
		if t == nil {
			return n
		}
		t.fn()
		n++
	}
}

// Run processes tasks until ctx is cancelled.
func (l *Looper) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		l.RunPending()

		var timeout <-chan time.Time
		if d, ok := l.nextDelay(); ok {
			timer.Reset(d)
			timeout = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		case <-timeout:
		}
	}
}

func (l *Looper) popDue(now time.Time) *Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 || l.queue[0].due.After(now) {
		return nil
	}
	t := heap.Pop(&l.queue).(*Task)
	t.removed = true
	return t
}

func (l *Looper) nextDelay() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return 0, false
	}
	d := l.queue[0].due.Sub(l.clock.Now())
	if d < 0 {
		d = 0
	}
	return d, true
}

// taskQueue orders tasks by due time, then by posting order.
type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
