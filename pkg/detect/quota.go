package detect

import (
	"sync/atomic"
	"time"
)

// QuotaCounter is a lock-free daily call budget. The count resets when the
// local calendar date changes; the reset is resolved with a compare-and-swap
// on the day anchor so concurrent callers at midnight roll over exactly once
// and no call is double-counted or lost.
type QuotaCounter struct {
	limit int64
	used  atomic.Int64
	day   atomic.Int64 // yyyymmdd of the period the counter belongs to

	// now is replaceable for tests.
	now func() time.Time
}

// NewQuotaCounter creates a counter with the given daily limit. A limit of
// zero or less disables the budget entirely.
func NewQuotaCounter(limit int) *QuotaCounter {
	q := &QuotaCounter{
		limit: int64(limit),
		now:   time.Now,
	}
	q.day.Store(q.today())
	return q
}

func (q *QuotaCounter) today() int64 {
	t := q.now()
	return int64(t.Year())*10000 + int64(t.Month())*100 + int64(t.Day())
}

// rollover resets the counter if the date changed since the last call.
// Only the caller whose CAS wins performs the reset.
func (q *QuotaCounter) rollover() {
	today := q.today()
	stored := q.day.Load()
	if stored == today {
		return
	}
	if q.day.CompareAndSwap(stored, today) {
		q.used.Store(0)
	}
}

// TryAcquire consumes one unit of today's budget. Returns false when the
// budget is exhausted; the counter is not incremented in that case.
func (q *QuotaCounter) TryAcquire() bool {
	if q.limit <= 0 {
		return true
	}
	q.rollover()
	if q.used.Add(1) > q.limit {
		q.used.Add(-1)
		return false
	}
	return true
}

// Release returns one unit, for calls that were admitted but never reached
// the backend (for example a concurrency-slot refusal).
func (q *QuotaCounter) Release() {
	if q.limit <= 0 {
		return
	}
	if q.used.Add(-1) < 0 {
		q.used.Store(0)
	}
}

// Used reports how many units of today's budget are consumed.
func (q *QuotaCounter) Used() int64 {
	q.rollover()
	return q.used.Load()
}

// Limit reports the configured daily limit (0 means unlimited).
func (q *QuotaCounter) Limit() int64 {
	return q.limit
}
