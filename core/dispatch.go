package core

import "errors"

// TaskID indexes the static task table
type TaskID uint8

// MaxTasks bounds the static task table
const MaxTasks = 8

var (
	// ErrSpawnFull is returned when a task already has a pending activation
	ErrSpawnFull    = errors.New("task already pending")
	ErrUnknownTask  = errors.New("unknown task")
	ErrTooManyTasks = errors.New("task table full")
	ErrNotSoftware  = errors.New("hardware-bound task cannot be spawned")
	ErrTableSealed  = errors.New("task table sealed after start")
)

// Binding says what activates a task
type Binding uint8

const (
	// BindSoftware tasks run when spawned, from the dispatcher interrupt
	BindSoftware Binding = iota
	// BindHardware tasks run from their own interrupt vector
	BindHardware
)

// Task is one entry of the static task table
type Task struct {
	Name     string
	Priority Priority
	Binding  Binding
	Handler  func()
}

type taskSlot struct {
	Task
	id    TaskID
	d     *Dispatcher
	timer Timer
	runs  uint32
}

// fire spawns the task when its delay timer expires
func (s *taskSlot) fire(t *Timer) uint8 {
	if err := s.d.Spawn(s.id); err != nil {
		RecordEvent(EvtSpawnRejected, uint32(s.id), 0)
	}
	return SF_DONE
}

// Dispatcher owns the static task table. Software tasks are queued as
// pending bits (capacity one per task) and run highest priority first from
// DispatchPending, which a target calls from a spare interrupt.
type Dispatcher struct {
	slots   [MaxTasks]taskSlot
	count   int
	pending uint32
	sealed  bool

	// pend asks the platform to raise the dispatcher interrupt
	pend func()
}

// NewDispatcher creates an empty task table
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// SetPendHandler installs the hook that raises the dispatcher interrupt
func (d *Dispatcher) SetPendHandler(pend func()) {
	d.pend = pend
}

// Register adds a task to the table. Registration is only allowed at boot.
func (d *Dispatcher) Register(t Task) (TaskID, error) {
	if d.sealed {
		return 0, ErrTableSealed
	}
	if d.count >= MaxTasks {
		return 0, ErrTooManyTasks
	}
	id := TaskID(d.count)
	slot := &d.slots[id]
	slot.Task = t
	slot.id = id
	slot.d = d
	slot.timer.Handler = slot.fire
	d.count++
	return id, nil
}

// Seal freezes the task table
func (d *Dispatcher) Seal() {
	d.sealed = true
}

func (d *Dispatcher) slot(id TaskID) (*taskSlot, error) {
	if int(id) >= d.count {
		return nil, ErrUnknownTask
	}
	return &d.slots[id], nil
}

// Task returns the table entry for id
func (d *Dispatcher) Task(id TaskID) (Task, error) {
	s, err := d.slot(id)
	if err != nil {
		return Task{}, err
	}
	return s.Task, nil
}

// Runs returns how many times the task has run
func (d *Dispatcher) Runs(id TaskID) uint32 {
	s, err := d.slot(id)
	if err != nil {
		return 0
	}
	return s.runs
}

// Run executes a task at its own priority. Interrupt vectors call this for
// hardware-bound tasks.
func (d *Dispatcher) Run(id TaskID) {
	s, err := d.slot(id)
	if err != nil {
		return
	}
	s.runs++
	runAt(s.Priority, s.Handler)
}

// Spawn marks a software task pending. A task that is already pending is
// not queued twice.
func (d *Dispatcher) Spawn(id TaskID) error {
	s, err := d.slot(id)
	if err != nil {
		return err
	}
	if s.Binding != BindSoftware {
		return ErrNotSoftware
	}

	state := disableInterrupts()
	bit := uint32(1) << id
	if d.pending&bit != 0 {
		restoreInterrupts(state)
		return ErrSpawnFull
	}
	d.pending |= bit
	restoreInterrupts(state)

	if d.pend != nil {
		d.pend()
	}
	return nil
}

// SpawnAfter spawns a software task once delay timer ticks have elapsed
func (d *Dispatcher) SpawnAfter(id TaskID, delay uint32) error {
	s, err := d.slot(id)
	if err != nil {
		return err
	}
	if s.Binding != BindSoftware {
		return ErrNotSoftware
	}
	if !ScheduleTimerAt(&s.timer, GetTime()+delay) {
		return ErrSpawnFull
	}
	return nil
}

// Pending reports whether a software task is waiting to run
func (d *Dispatcher) Pending(id TaskID) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return id < MaxTasks && d.pending&(1<<id) != 0
}

// DispatchPending runs pending software tasks until none remain. Tasks
// spawned while it runs are picked up in the same call.
func (d *Dispatcher) DispatchPending() int {
	ran := 0
	for {
		state := disableInterrupts()
		best := -1
		for i := 0; i < d.count; i++ {
			if d.pending&(1<<uint(i)) == 0 {
				continue
			}
			if best < 0 || d.slots[i].Priority > d.slots[best].Priority {
				best = i
			}
		}
		if best < 0 {
			restoreInterrupts(state)
			return ran
		}
		d.pending &^= 1 << uint(best)
		restoreInterrupts(state)

		d.Run(TaskID(best))
		ran++
	}
}

// Spawner is a handle that spawns one software task
type Spawner interface {
	Spawn() error
	SpawnAfter(delay uint32) error
}

type taskSpawner struct {
	d  *Dispatcher
	id TaskID
}

func (s taskSpawner) Spawn() error { return s.d.Spawn(s.id) }

func (s taskSpawner) SpawnAfter(delay uint32) error { return s.d.SpawnAfter(s.id, delay) }

// Spawner returns a Spawner bound to id
func (d *Dispatcher) Spawner(id TaskID) Spawner {
	return taskSpawner{d: d, id: id}
}
