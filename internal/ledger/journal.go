package ledger

import "sync"

// ChangeEvent records a single mutation applied to a company's inventory.
// Events exist for auditing and for the per-tick broadcast delta payload,
// never for gameplay logic.
type ChangeEvent struct {
	CompanyID string `json:"company_id"`
	GoodID    string `json:"good_id,omitempty"`
	Qty       int64  `json:"qty,omitempty"`
	CashDelta int64  `json:"cash_delta,omitempty"`
	Reason    string `json:"reason"`
	Tick      int64  `json:"tick"`
	TradeID   string `json:"trade_id,omitempty"`

	// Seq is the journal's monotone append counter. Consumers that need
	// every event exactly once cursor on it; ticks alone cannot
	// distinguish events journaled before and after a cutoff within the
	// same tick.
	Seq int64 `json:"-"`
}

// Journal is a bounded ring buffer of change events. Once the buffer is
// full the oldest events are overwritten.
type Journal struct {
	mu    sync.Mutex
	buf   []ChangeEvent
	next  int   // index of the next write
	count int   // number of valid events, ≤ len(buf)
	seq   int64 // total events ever appended
}

// NewJournal creates a journal retaining up to capacity events.
func NewJournal(capacity int) *Journal {
	if capacity < 1 {
		capacity = 1
	}
	return &Journal{buf: make([]ChangeEvent, capacity)}
}

// Append records an event, overwriting the oldest if the buffer is full.
func (j *Journal) Append(ev ChangeEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.seq++
	ev.Seq = j.seq
	j.buf[j.next] = ev
	j.next = (j.next + 1) % len(j.buf)
	if j.count < len(j.buf) {
		j.count++
	}
}

// Events returns the retained events in chronological order.
func (j *Journal) Events() []ChangeEvent {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]ChangeEvent, 0, j.count)
	start := j.next - j.count
	if start < 0 {
		start += len(j.buf)
	}
	for i := 0; i < j.count; i++ {
		out = append(out, j.buf[(start+i)%len(j.buf)])
	}
	return out
}

// EventsSince returns retained events with Tick >= tick, chronological.
func (j *Journal) EventsSince(tick int64) []ChangeEvent {
	all := j.Events()
	// Events are appended tick order; find the first match.
	for i, ev := range all {
		if ev.Tick >= tick {
			return all[i:]
		}
	}
	return nil
}

// EventsAfter returns retained events with Seq > seq, chronological.
// Passing the last event's Seq back on the next call yields every
// retained event exactly once, regardless of tick boundaries.
func (j *Journal) EventsAfter(seq int64) []ChangeEvent {
	all := j.Events()
	for i, ev := range all {
		if ev.Seq > seq {
			return all[i:]
		}
	}
	return nil
}

// Len returns the number of retained events.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}
