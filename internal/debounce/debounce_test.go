package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CollapsesBurst(t *testing.T) {
	d := New(30 * time.Millisecond)
	defer d.Stop()

	var mu sync.Mutex
	var calls []int
	fired := make(chan struct{}, 10)

	for i := 0; i < 5; i++ {
		i := i
		d.Schedule("a", func() {
			mu.Lock()
			calls = append(calls, i)
			mu.Unlock()
			fired <- struct{}{}
		})
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("debounced function never ran")
	}
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 || calls[0] != 4 {
		t.Errorf("calls = %v, want [4]", calls)
	}
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	d := New(20 * time.Millisecond)
	defer d.Stop()

	var a, b atomic.Int32
	d.Schedule("a", func() { a.Add(1) })
	d.Schedule("b", func() { b.Add(1) })
	if d.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", d.Pending())
	}

	time.Sleep(80 * time.Millisecond)
	d.Wait()
	if a.Load() != 1 || b.Load() != 1 {
		t.Errorf("a = %d, b = %d, want 1, 1", a.Load(), b.Load())
	}
	if d.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", d.Pending())
	}
}

func TestDebouncer_Flush(t *testing.T) {
	d := New(time.Hour)
	defer d.Stop()

	var n atomic.Int32
	d.Schedule("a", func() { n.Add(1) })
	d.Schedule("b", func() { n.Add(10) })
	d.Flush()

	if n.Load() != 11 {
		t.Errorf("after Flush() n = %d, want 11", n.Load())
	}
	if d.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", d.Pending())
	}
}

func TestDebouncer_CancelAndStop(t *testing.T) {
	d := New(10 * time.Millisecond)

	var n atomic.Int32
	d.Schedule("a", func() { n.Add(1) })
	if !d.Cancel("a") {
		t.Fatal("Cancel() = false for pending key")
	}
	if d.Cancel("a") {
		t.Error("Cancel() = true for key already cancelled")
	}

	d.Schedule("b", func() { n.Add(1) })
	d.Stop()
	if d.Schedule("c", func() { n.Add(1) }) {
		t.Error("Schedule() accepted work after Stop()")
	}

	time.Sleep(40 * time.Millisecond)
	if n.Load() != 0 {
		t.Errorf("n = %d, want 0", n.Load())
	}
}
