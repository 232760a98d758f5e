package core

// Priority is a static task priority. A task can only be preempted by tasks
// of strictly higher priority.
type Priority uint8

const (
	PriorityThread Priority = 0 // Main loop, below every task
	PriorityMax    Priority = 15
)

// PriorityMask masks every interrupt source bound to a task at or below
// ceiling and returns what is needed to undo it
type PriorityMask interface {
	Mask(ceiling Priority) uint32
	Unmask(saved uint32)
}

var (
	currentPriority Priority
	priorityMask    PriorityMask = globalMask{}
)

// SetPriorityMask installs the platform priority masking (boot only)
func SetPriorityMask(m PriorityMask) {
	if m == nil {
		m = globalMask{}
	}
	priorityMask = m
}

// CurrentPriority returns the effective priority of the running code
func CurrentPriority() Priority {
	return currentPriority
}

// Ceiling is the priority ceiling of a shared resource: the highest priority
// of any task that touches it
type Ceiling Priority

// CeilingOf computes the ceiling for a resource shared by tasks at prios
func CeilingOf(prios ...Priority) Ceiling {
	var c Priority
	for _, p := range prios {
		if p > c {
			c = p
		}
	}
	return Ceiling(c)
}

// Section is an entered critical section
type Section struct {
	prev   Priority
	saved  uint32
	raised bool
}

// Enter raises the effective priority to the ceiling. Entering a ceiling at
// or below the current priority is free. Callers must Exit before returning:
//
//	cs := c.Enter()
//	defer cs.Exit()
func (c Ceiling) Enter() Section {
	prev := currentPriority
	if Priority(c) <= prev {
		return Section{prev: prev}
	}
	saved := priorityMask.Mask(Priority(c))
	currentPriority = Priority(c)
	return Section{prev: prev, saved: saved, raised: true}
}

// Exit restores the priority that was active before Enter
func (s Section) Exit() {
	if !s.raised {
		return
	}
	currentPriority = s.prev
	priorityMask.Unmask(s.saved)
}

// runAt runs fn as a task at prio, restoring the previous priority after.
// The dispatcher uses it so ceilings compare against the running task.
func runAt(prio Priority, fn func()) {
	prev := currentPriority
	currentPriority = prio
	fn()
	currentPriority = prev
}

// Shared is a value cell accessed only under its ceiling. Reads and writes
// copy the whole value, so no reader observes a partial write.
type Shared[T any] struct {
	ceiling Ceiling
	value   T
}

// NewShared creates a Shared cell with the given ceiling and initial value
func NewShared[T any](ceiling Ceiling, initial T) *Shared[T] {
	return &Shared[T]{ceiling: ceiling, value: initial}
}

// Load copies the value out under the ceiling
func (s *Shared[T]) Load() T {
	cs := s.ceiling.Enter()
	defer cs.Exit()
	return s.value
}

// Store copies v in under the ceiling
func (s *Shared[T]) Store(v T) {
	cs := s.ceiling.Enter()
	defer cs.Exit()
	s.value = v
}

// Ceiling returns the cell's ceiling
func (s *Shared[T]) Ceiling() Ceiling {
	return s.ceiling
}
