package axis

// Fault is the cause that sent the axis to ErrorDetected
type Fault uint8

const (
	FaultNone Fault = iota
	FaultMinContradiction
	FaultMaxContradiction
	FaultStall
)

func (f Fault) String() string {
	switch f {
	case FaultMinContradiction:
		return "min switch triggered while moving toward max"
	case FaultMaxContradiction:
		return "max switch triggered while moving toward min"
	case FaultStall:
		return "stall detected"
	}
	return "none"
}

type motionReader interface {
	Speed() float32
	CurrentPosition() int32
}

// SafetyMonitor detects limit switch contradictions and latches driver
// stall reports.
type SafetyMonitor struct {
	min, max Switch
	motion   motionReader
	driver   StallSensor

	pollEvery uint16
	polls     uint16
	strict    bool

	stalled bool

	// Switches pressed when the current move started. They may stay
	// pressed while the axis backs off them, for at most departLimit steps
	// from departFrom.
	minDeparting bool
	maxDeparting bool
	departFrom   int32
	departLimit  int32
}

// NewSafetyMonitor builds a monitor. driver may be nil when the axis has
// no stall sensing.
func NewSafetyMonitor(min, max Switch, motion motionReader, driver StallSensor, pollEvery uint16, strict bool) *SafetyMonitor {
	if pollEvery == 0 {
		pollEvery = 1
	}
	return &SafetyMonitor{
		min:       min,
		max:       max,
		motion:    motion,
		driver:    driver,
		pollEvery: pollEvery,
		strict:    strict,
	}
}

// LimitDeparture sets how far the axis may travel with a switch that was
// pressed at the start of the move still pressed. Zero or less removes the
// bound.
func (m *SafetyMonitor) LimitDeparture(steps int32) {
	m.departLimit = steps
}

// Arm records which switches are pressed as a new move begins
func (m *SafetyMonitor) Arm() {
	m.minDeparting = m.min.Triggered()
	m.maxDeparting = m.max.Triggered()
	m.departFrom = m.motion.CurrentPosition()
}

// Contradiction checks the switches against the direction of travel.
// Zero speed never contradicts.
func (m *SafetyMonitor) Contradiction() Fault {
	speed := m.motion.Speed()
	minHit := m.min.Triggered()
	maxHit := m.max.Triggered()

	if !minHit {
		m.minDeparting = false
	}
	if !maxHit {
		m.maxDeparting = false
	}
	if m.departLimit > 0 && (m.minDeparting || m.maxDeparting) {
		moved := m.motion.CurrentPosition() - m.departFrom
		if moved < 0 {
			moved = -moved
		}
		if moved > m.departLimit {
			m.minDeparting = false
			m.maxDeparting = false
		}
	}

	if speed > 0 && minHit && (m.strict || !m.minDeparting) {
		return FaultMinContradiction
	}
	if speed < 0 && maxHit && (m.strict || !m.maxDeparting) {
		return FaultMaxContradiction
	}
	return FaultNone
}

// Poll queries the driver on every pollEvery-th call. latched is true only
// on the poll that first sets the sticky stall flag. Link errors leave the
// flag untouched.
func (m *SafetyMonitor) Poll() (latched bool, err error) {
	if m.driver == nil {
		return false, nil
	}
	m.polls++
	if m.polls < m.pollEvery {
		return false, nil
	}
	m.polls = 0

	stall, err := m.driver.PollStall()
	if err != nil {
		return false, err
	}
	if stall && !m.stalled {
		m.stalled = true
		return true, nil
	}
	return false, nil
}

// Check returns the fault to act on this cycle, if any
func (m *SafetyMonitor) Check() Fault {
	if f := m.Contradiction(); f != FaultNone {
		return f
	}
	if m.stalled {
		return FaultStall
	}
	return FaultNone
}

// Stalled reports the sticky stall flag
func (m *SafetyMonitor) Stalled() bool {
	return m.stalled
}

// ClearStall resets the stall flag and the poll decimation counter
func (m *SafetyMonitor) ClearStall() {
	m.stalled = false
	m.polls = 0
}
