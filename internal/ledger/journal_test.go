package ledger

import "testing"

func TestJournal_AppendAndEvents(t *testing.T) {
	j := NewJournal(4)
	for i := int64(0); i < 3; i++ {
		j.Append(ChangeEvent{CompanyID: "c", Tick: i})
	}

	events := j.Events()
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	for i, ev := range events {
		if ev.Tick != int64(i) {
			t.Errorf("events[%d].Tick = %d, want %d", i, ev.Tick, i)
		}
	}
}

func TestJournal_OverwritesOldest(t *testing.T) {
	j := NewJournal(4)
	for i := int64(0); i < 10; i++ {
		j.Append(ChangeEvent{Tick: i})
	}

	events := j.Events()
	if len(events) != 4 {
		t.Fatalf("len(events) = %d, want 4", len(events))
	}
	// Oldest retained event is tick 6.
	if events[0].Tick != 6 || events[3].Tick != 9 {
		t.Errorf("retained window = [%d..%d], want [6..9]", events[0].Tick, events[3].Tick)
	}
	if j.Len() != 4 {
		t.Errorf("Len() = %d, want 4", j.Len())
	}
}

func TestJournal_EventsSince(t *testing.T) {
	j := NewJournal(8)
	for i := int64(0); i < 5; i++ {
		j.Append(ChangeEvent{Tick: i})
	}

	since := j.EventsSince(3)
	if len(since) != 2 {
		t.Fatalf("EventsSince(3) returned %d events, want 2", len(since))
	}
	if since[0].Tick != 3 {
		t.Errorf("first event tick = %d, want 3", since[0].Tick)
	}

	if got := j.EventsSince(99); got != nil {
		t.Errorf("EventsSince(99) = %v, want nil", got)
	}
}

func TestJournal_EventsAfterCursorsExactlyOnce(t *testing.T) {
	j := NewJournal(8)
	// Events sharing a tick cannot be split by a tick-based cutoff.
	j.Append(ChangeEvent{Reason: "a", Tick: 1})
	j.Append(ChangeEvent{Reason: "b", Tick: 1})

	first := j.EventsAfter(0)
	if len(first) != 2 {
		t.Fatalf("EventsAfter(0) returned %d events, want 2", len(first))
	}
	cursor := first[len(first)-1].Seq

	j.Append(ChangeEvent{Reason: "c", Tick: 1})
	j.Append(ChangeEvent{Reason: "d", Tick: 2})

	second := j.EventsAfter(cursor)
	if len(second) != 2 {
		t.Fatalf("EventsAfter(%d) returned %d events, want 2", cursor, len(second))
	}
	if second[0].Reason != "c" || second[1].Reason != "d" {
		t.Errorf("second batch = [%s %s], want [c d]", second[0].Reason, second[1].Reason)
	}

	cursor = second[len(second)-1].Seq
	if got := j.EventsAfter(cursor); got != nil {
		t.Errorf("EventsAfter(%d) = %v, want nil", cursor, got)
	}
}
