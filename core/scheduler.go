package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint64
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler keeps timers sorted by WakeTime and runs the due ones on
// Dispatch. Each control loop owns its own scheduler.
type Scheduler struct {
	list *Timer
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule adds a timer to the schedule
func (s *Scheduler) Schedule(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	s.insert(t)
}

// Cancel removes a pending timer. It reports whether the timer was queued.
func (s *Scheduler) Cancel(t *Timer) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if s.list == t {
		s.list = t.Next
		t.Next = nil
		return true
	}
	for cur := s.list; cur != nil; cur = cur.Next {
		if cur.Next == t {
			cur.Next = t.Next
			t.Next = nil
			return true
		}
	}
	return false
}

// Pending reports whether t is queued
func (s *Scheduler) Pending(t *Timer) bool {
	for cur := s.list; cur != nil; cur = cur.Next {
		if cur == t {
			return true
		}
	}
	return false
}

// insertTimer inserts a timer in sorted order by WakeTime
func (s *Scheduler) insert(t *Timer) {
	if s.list == nil || t.WakeTime < s.list.WakeTime {
		t.Next = s.list
		s.list = t
		return
	}

	current := s.list
	for current.Next != nil && current.Next.WakeTime <= t.WakeTime {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Dispatch runs every timer with WakeTime <= now
func (s *Scheduler) Dispatch(now uint64) {
	for {
		state := disableInterrupts()
		timer := s.list
		if timer == nil || timer.WakeTime > now {
			restoreInterrupts(state)
			return
		}
		s.list = timer.Next
		timer.Next = nil
		restoreInterrupts(state)

		// Handlers run with interrupts enabled and may schedule or cancel
		if timer.Handler(timer) == SF_RESCHEDULE {
			s.Schedule(timer)
		}
	}
}
