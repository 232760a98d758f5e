package core

// Timer is a one-shot or rescheduling event on the sorted timer list
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer

	queued bool
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var (
	timerList   *Timer
	currentTime uint32
)

// timerBefore reports whether a is earlier than b, tolerating counter wrap
func timerBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// ScheduleTimer adds a timer to the schedule. It reports false if the timer
// is already queued.
func ScheduleTimer(t *Timer) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if t.queued {
		return false
	}
	insertTimer(t)
	return true
}

// ScheduleTimerAt sets the wake time of t and queues it. A timer that is
// already queued keeps its place and wake time, and false is returned.
func ScheduleTimerAt(t *Timer, wake uint32) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if t.queued {
		return false
	}
	t.WakeTime = wake
	insertTimer(t)
	return true
}

// CancelTimer removes t from the schedule if it is queued
func CancelTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if !t.queued {
		return
	}
	if timerList == t {
		timerList = t.Next
	} else {
		for cur := timerList; cur != nil; cur = cur.Next {
			if cur.Next == t {
				cur.Next = t.Next
				break
			}
		}
	}
	t.Next = nil
	t.queued = false
}

// Scheduled reports whether t is waiting on the schedule
func (t *Timer) Scheduled() bool {
	return t.queued
}

// insertTimer inserts a timer in sorted order by WakeTime
func insertTimer(t *Timer) {
	t.queued = true
	if timerList == nil || timerBefore(t.WakeTime, timerList.WakeTime) {
		t.Next = timerList
		timerList = t
		return
	}

	current := timerList
	for current.Next != nil && !timerBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// TimerDispatch runs every timer whose WakeTime has been reached
func TimerDispatch() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for timerList != nil && !timerBefore(currentTime, timerList.WakeTime) {
		timer := timerList
		timerList = timer.Next
		timer.Next = nil
		timer.queued = false

		if timer.Handler(timer) == SF_RESCHEDULE {
			insertTimer(timer)
		}
	}
}

// NextWake returns the wake time of the earliest queued timer
func NextWake() (uint32, bool) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if timerList == nil {
		return 0, false
	}
	return timerList.WakeTime, true
}

// ResetTimers drops every queued timer
func ResetTimers() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for t := timerList; t != nil; {
		next := t.Next
		t.Next = nil
		t.queued = false
		t = next
	}
	timerList = nil
}
