package core

import (
	"errors"
	"testing"
)

func TestDispatcherSpawnOnce(t *testing.T) {
	resetClock(t)
	d := NewDispatcher()
	runs := 0
	id, err := d.Register(Task{Name: "work", Priority: 1, Handler: func() { runs++ }})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	pends := 0
	d.SetPendHandler(func() { pends++ })

	if err := d.Spawn(id); err != nil {
		t.Fatalf("First spawn failed: %v", err)
	}
	if err := d.Spawn(id); !errors.Is(err, ErrSpawnFull) {
		t.Errorf("Expected ErrSpawnFull for a pending task, got %v", err)
	}
	if pends != 1 {
		t.Errorf("Expected one pend, got %d", pends)
	}
	if !d.Pending(id) {
		t.Error("Task should be pending")
	}

	if n := d.DispatchPending(); n != 1 {
		t.Errorf("Expected 1 task run, got %d", n)
	}
	if runs != 1 || d.Runs(id) != 1 {
		t.Errorf("Expected handler to run once, got %d", runs)
	}
	if err := d.Spawn(id); err != nil {
		t.Errorf("Spawn after dispatch failed: %v", err)
	}
}

func TestDispatcherRunsHighestPriorityFirst(t *testing.T) {
	d := NewDispatcher()
	var order []string
	var prios []Priority
	task := func(name string, prio Priority) TaskID {
		id, err := d.Register(Task{Name: name, Priority: prio, Handler: func() {
			order = append(order, name)
			prios = append(prios, CurrentPriority())
		}})
		if err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
		return id
	}
	low := task("low", 1)
	high := task("high", 3)
	mid := task("mid", 2)

	for _, id := range []TaskID{low, high, mid} {
		if err := d.Spawn(id); err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}
	d.DispatchPending()

	want := []string{"high", "mid", "low"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, order)
		}
	}
	if prios[0] != 3 || prios[2] != 1 {
		t.Errorf("Tasks did not run at their own priority: %v", prios)
	}
}

func TestDispatcherRespawnDuringRun(t *testing.T) {
	d := NewDispatcher()
	var self TaskID
	runs := 0
	self, _ = d.Register(Task{Name: "again", Priority: 1, Handler: func() {
		runs++
		if runs < 3 {
			d.Spawn(self)
		}
	}})

	d.Spawn(self)
	if n := d.DispatchPending(); n != 3 {
		t.Errorf("Expected 3 runs in one dispatch, got %d", n)
	}
}

func TestDispatcherHardwareTaskCannotSpawn(t *testing.T) {
	d := NewDispatcher()
	id, _ := d.Register(Task{Name: "irq", Priority: 2, Binding: BindHardware, Handler: func() {}})
	if err := d.Spawn(id); !errors.Is(err, ErrNotSoftware) {
		t.Errorf("Expected ErrNotSoftware, got %v", err)
	}
	if err := d.Spawn(TaskID(5)); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("Expected ErrUnknownTask, got %v", err)
	}
}

func TestDispatcherTableLimits(t *testing.T) {
	d := NewDispatcher()
	for i := 0; i < MaxTasks; i++ {
		if _, err := d.Register(Task{Name: "t", Handler: func() {}}); err != nil {
			t.Fatalf("Register %d failed: %v", i, err)
		}
	}
	if _, err := d.Register(Task{}); !errors.Is(err, ErrTooManyTasks) {
		t.Errorf("Expected ErrTooManyTasks, got %v", err)
	}

	sealed := NewDispatcher()
	sealed.Seal()
	if _, err := sealed.Register(Task{}); !errors.Is(err, ErrTableSealed) {
		t.Errorf("Expected ErrTableSealed, got %v", err)
	}
}

func TestDispatcherSpawnAfter(t *testing.T) {
	resetClock(t)
	d := NewDispatcher()
	runs := 0
	id, _ := d.Register(Task{Name: "later", Priority: 1, Handler: func() { runs++ }})
	sp := d.Spawner(id)

	SetTime(1000)
	if err := sp.SpawnAfter(500); err != nil {
		t.Fatalf("SpawnAfter failed: %v", err)
	}
	if err := sp.SpawnAfter(500); !errors.Is(err, ErrSpawnFull) {
		t.Errorf("Expected ErrSpawnFull for a queued delay, got %v", err)
	}

	SetTime(1499)
	ProcessTimers()
	d.DispatchPending()
	if runs != 0 {
		t.Fatal("Task ran before its delay elapsed")
	}

	SetTime(1500)
	ProcessTimers()
	d.DispatchPending()
	if runs != 1 {
		t.Errorf("Expected one run after the delay, got %d", runs)
	}
}

func TestDispatcherRejectedSpawnAfterKeepsTimerOrder(t *testing.T) {
	resetClock(t)
	d := NewDispatcher()
	runs := 0
	id, _ := d.Register(Task{Name: "later", Priority: 1, Handler: func() { runs++ }})

	if err := d.SpawnAfter(id, 100); err != nil {
		t.Fatalf("SpawnAfter failed: %v", err)
	}
	fired := 0
	other := Timer{WakeTime: 500, Handler: func(*Timer) uint8 { fired++; return SF_DONE }}
	ScheduleTimer(&other)

	if err := d.SpawnAfter(id, 1000); !errors.Is(err, ErrSpawnFull) {
		t.Fatalf("Expected ErrSpawnFull, got %v", err)
	}

	var wakes []uint32
	for cur := timerList; cur != nil; cur = cur.Next {
		wakes = append(wakes, cur.WakeTime)
	}
	if len(wakes) != 2 || wakes[0] != 100 || wakes[1] != 500 {
		t.Fatalf("Expected wake times [100 500], got %v", wakes)
	}

	SetTime(100)
	ProcessTimers()
	d.DispatchPending()
	if runs != 1 {
		t.Errorf("Expected the task to run at its original time, got %d runs", runs)
	}

	SetTime(500)
	ProcessTimers()
	if fired != 1 {
		t.Errorf("Timer behind the rejected spawn did not fire on time")
	}
}
