package axis

import (
	"bytes"
	"strings"
	"testing"

	"axisctl/core"
)

// rig simulates an axis between two switches. phys is the absolute
// carriage position; the logical position is phys - offset. Run moves one
// step per call at full speed.
type rig struct {
	phys   int32
	offset int32
	target int32
	speed  float32

	maxSpeed float32
	accel    float32

	minAt, maxAt int32
	width        int32 // switch actuation travel
}

func (r *rig) SetMaxSpeed(v float32)     { r.maxSpeed = v }
func (r *rig) SetAcceleration(a float32) { r.accel = a }
func (r *rig) MoveTo(p int32)            { r.target = p }
func (r *rig) CurrentPosition() int32    { return r.phys - r.offset }
func (r *rig) Speed() float32            { return r.speed }

func (r *rig) SetCurrentPosition(p int32) {
	r.offset = r.phys - p
	r.target = p
	r.speed = 0
}

func (r *rig) Stop() {
	r.target = r.CurrentPosition()
}

func (r *rig) Run() bool {
	pos := r.CurrentPosition()
	switch {
	case r.target > pos:
		r.phys++
		r.speed = r.maxSpeed
	case r.target < pos:
		r.phys--
		r.speed = -r.maxSpeed
	default:
		r.speed = 0
	}
	return r.speed != 0
}

// rigSwitch reads the rig position unless forced
type rigSwitch struct {
	r      *rig
	max    bool
	forced *bool
}

func (s *rigSwitch) Triggered() bool {
	if s.forced != nil {
		return *s.forced
	}
	if s.max {
		return s.r.phys >= s.r.maxAt-s.r.width
	}
	return s.r.phys <= s.r.minAt+s.r.width
}

func (s *rigSwitch) force(v bool) { s.forced = &v }
func (s *rigSwitch) release()     { s.forced = nil }

type fakeEnable struct {
	energized bool
	disables  int
}

func (e *fakeEnable) Enable() error {
	e.energized = true
	return nil
}

func (e *fakeEnable) Disable() error {
	e.energized = false
	e.disables++
	return nil
}

type fakeDriver struct {
	stall  bool
	status uint8
	err    error
	polls  int
}

func (d *fakeDriver) PollStall() (bool, error) {
	d.polls++
	return d.stall, d.err
}

func (d *fakeDriver) Status() uint8 { return d.status }

// lineQueue feeds one queued line per ReadLine
type lineQueue struct {
	lines []string
}

func (q *lineQueue) ReadLine() (string, bool) {
	if len(q.lines) == 0 {
		return "", false
	}
	l := q.lines[0]
	q.lines = q.lines[1:]
	return l, true
}

type testAxis struct {
	c      *Controller
	rig    *rig
	min    *rigSwitch
	max    *rigSwitch
	enable *fakeEnable
	driver *fakeDriver
	out    *bytes.Buffer
}

func newTestAxis(t *testing.T, mutate func(*Config)) *testAxis {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	ta := &testAxis{
		rig:    &rig{phys: 300, minAt: 0, maxAt: 2000},
		enable: &fakeEnable{},
		driver: &fakeDriver{},
		out:    &bytes.Buffer{},
	}
	ta.min = &rigSwitch{r: ta.rig}
	ta.max = &rigSwitch{r: ta.rig, max: true}

	c, err := New(cfg, Hardware{
		Motion: ta.rig,
		Min:    ta.min,
		Max:    ta.max,
		Enable: ta.enable,
		Driver: ta.driver,
	}, ta.out)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ta.c = c
	core.SetTime(1000000)
	return ta
}

// tick runs n control cycles one millisecond apart
func (ta *testAxis) tick(n int) {
	for i := 0; i < n; i++ {
		ta.c.Cycle(nil)
		core.SetTime(core.GetTime() + 1000)
	}
}

// runUntil cycles until cond holds, failing after limit cycles
func (ta *testAxis) runUntil(t *testing.T, limit int, cond func() bool) {
	t.Helper()
	for i := 0; i < limit; i++ {
		if cond() {
			return
		}
		ta.tick(1)
	}
	if !cond() {
		t.Fatalf("Condition not reached after %d cycles (state %s, pos %d)", limit, ta.c.State(), ta.c.Position())
	}
}

func (ta *testAxis) home(t *testing.T) {
	t.Helper()
	ta.runUntil(t, 20000, func() bool { return ta.c.State() == StateReady })
}

// send handles one line and returns the replies it produced
func (ta *testAxis) send(line string) string {
	ta.out.Reset()
	ta.c.HandleLine(line)
	return ta.out.String()
}

func hasLine(out, want string) bool {
	for _, l := range strings.Split(out, "\r\n") {
		if l == want {
			return true
		}
	}
	return false
}
