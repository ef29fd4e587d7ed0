// SPDX-License-Identifier: MPL-2.0

package lifecycle

// Scheduler defers work to the host's task scheduler. Schedule must not run
// fn before returning.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(fn func())

// Schedule calls f(fn).
func (f SchedulerFunc) Schedule(fn func()) { f(fn) }

// GoScheduler runs each scheduled function on its own goroutine.
var GoScheduler Scheduler = SchedulerFunc(func(fn func()) { go fn() })

// QueueScheduler collects scheduled functions until Drain is called. It is
// the in-process scheduler used when the host provides none.
type QueueScheduler struct {
	queue []func()
}

// Schedule enqueues fn.
func (q *QueueScheduler) Schedule(fn func()) {
	q.queue = append(q.queue, fn)
}

// Pending returns the number of queued functions.
func (q *QueueScheduler) Pending() int {
	return len(q.queue)
}

// Drain runs queued functions in order, including any scheduled while
// draining, and returns how many ran.
func (q *QueueScheduler) Drain() int {
	n := 0
	for len(q.queue) > 0 {
		fn := q.queue[0]
		q.queue = q.queue[1:]
		fn()
		n++
	}
	return n
}
