package discovery

import (
	"testing"
	"time"
)

func TestList_UpsertDeduplicatesByIP(t *testing.T) {
	l := NewList()

	if !l.Upsert(Device{IP: "10.0.0.5", Name: "duck1"}) {
		t.Error("first Upsert() = false, want true")
	}
	l.Upsert(Device{IP: "10.0.0.7", Name: "duck2"})
	if l.Upsert(Device{IP: "10.0.0.5", Name: "duck1-renamed"}) {
		t.Error("repeat Upsert() = true, want false")
	}

	got := l.Snapshot()
	if len(got) != 2 {
		t.Fatalf("Len = %d, want 2", len(got))
	}
	if got[0].IP != "10.0.0.5" || got[0].Name != "duck1-renamed" {
		t.Errorf("got[0] = %+v, want latest reply in original position", got[0])
	}
	if got[1].Name != "duck2" {
		t.Errorf("got[1].Name = %q, want duck2", got[1].Name)
	}
}

func TestList_LookupAndClear(t *testing.T) {
	l := NewList()
	l.Upsert(Device{IP: "10.0.0.5", Name: "duck1"})

	d, ok := l.Lookup("duck1")
	if !ok || d.IP != "10.0.0.5" {
		t.Errorf("Lookup(duck1) = %+v, %v", d, ok)
	}
	if _, ok := l.Lookup("duck9"); ok {
		t.Error("Lookup(duck9) found a device")
	}

	l.Clear()
	if l.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", l.Len())
	}
	if !l.Upsert(Device{IP: "10.0.0.5", Name: "duck1"}) {
		t.Error("Upsert after Clear is not treated as new")
	}
}

func TestList_SnapshotIsCopy(t *testing.T) {
	l := NewList()
	l.Upsert(Device{IP: "10.0.0.5", Name: "duck1"})

	snap := l.Snapshot()
	snap[0].Name = "mutated"

	if d, _ := l.Lookup("duck1"); d.Name != "duck1" {
		t.Error("Snapshot shares storage with the list")
	}
}

func TestList_Watch(t *testing.T) {
	l := NewList()
	l.Upsert(Device{IP: "10.0.0.5", Name: "duck1"})

	ch, cancel := l.Watch()
	defer cancel()

	initial := <-ch
	if len(initial) != 1 {
		t.Fatalf("initial snapshot has %d devices, want 1", len(initial))
	}

	// Two changes without reading: only the latest survives
	l.Upsert(Device{IP: "10.0.0.6", Name: "duck2"})
	l.Upsert(Device{IP: "10.0.0.7", Name: "duck3"})

	select {
	case snap := <-ch:
		if len(snap) != 3 {
			t.Errorf("snapshot has %d devices, want 3", len(snap))
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after change")
	}

	select {
	case snap := <-ch:
		t.Errorf("unexpected extra snapshot %+v", snap)
	default:
	}
}

func TestList_WatchCancel(t *testing.T) {
	l := NewList()
	ch, cancel := l.Watch()
	<-ch

	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel still open after cancel")
	}

	// Changes after cancel must not panic on the closed channel
	l.Upsert(Device{IP: "10.0.0.5"})
}
