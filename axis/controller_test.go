package axis

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"axisctl/core"
)

func TestNewRejectsIncompleteHardware(t *testing.T) {
	r := &rig{}
	_, err := New(DefaultConfig(), Hardware{Motion: r, Min: &rigSwitch{r: r}}, &bytes.Buffer{})
	if !errors.Is(err, ErrMissingHardware) {
		t.Errorf("Expected ErrMissingHardware, got %v", err)
	}

	cfg := DefaultConfig()
	cfg.MaxSpeed = 0
	_, err = New(cfg, Hardware{}, &bytes.Buffer{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestInitStartsHoming(t *testing.T) {
	ta := newTestAxis(t, nil)

	if ta.c.State() != StateInit {
		t.Fatalf("Expected Init before the first cycle, got %s", ta.c.State())
	}
	if ta.rig.maxSpeed != 400 || ta.rig.accel != 1000 {
		t.Errorf("Expected operating speed 400/1000 at construction, got %v/%v", ta.rig.maxSpeed, ta.rig.accel)
	}

	ta.tick(1)

	if ta.c.State() != StateHomingMin {
		t.Errorf("Expected HomingMin after one cycle, got %s", ta.c.State())
	}
	if ta.rig.maxSpeed != 200 {
		t.Errorf("Expected homing speed 200, got %v", ta.rig.maxSpeed)
	}
	if ta.rig.target >= ta.rig.CurrentPosition() {
		t.Errorf("Expected a move toward min, target %d from %d", ta.rig.target, ta.rig.CurrentPosition())
	}
	if !ta.enable.energized {
		t.Error("Expected the driver to be energized for homing")
	}
}

func TestHomingSequence(t *testing.T) {
	ta := newTestAxis(t, nil)

	ta.runUntil(t, 1000, func() bool { return ta.c.Settling() })
	if ta.c.State() != StateHomingMin {
		t.Fatalf("Expected settle pause in HomingMin, got %s", ta.c.State())
	}
	if ta.c.Position() != 0 {
		t.Errorf("Expected position 0 at min, got %d", ta.c.Position())
	}

	// The pause holds the axis still without blocking the loop
	phys := ta.rig.phys
	ta.tick(400)
	if ta.rig.phys != phys || ta.c.State() != StateHomingMin {
		t.Errorf("Axis moved or advanced during settle pause")
	}

	ta.runUntil(t, 200, func() bool { return ta.c.State() == StateHomingMax })
	ta.home(t)

	if ta.c.MaxPosition() != 2000 {
		t.Errorf("Expected max position 2000, got %d", ta.c.MaxPosition())
	}
	soft := ta.c.SoftEndstops()
	if soft.Min != 0 || soft.Max != 2000 || !soft.Enabled {
		t.Errorf("Expected soft endstops [0,2000] enabled, got %+v", soft)
	}
	if ta.c.Target() != 1000 || ta.rig.target != 1000 {
		t.Errorf("Expected move to midpoint 1000, got %d", ta.c.Target())
	}
	if ta.rig.maxSpeed != 400 {
		t.Errorf("Expected operating speed restored, got %v", ta.rig.maxSpeed)
	}

	ta.runUntil(t, 2000, func() bool { return ta.c.Position() == 1000 })
	if ta.c.State() != StateReady {
		t.Errorf("Expected Ready at midpoint, got %s", ta.c.State())
	}
}

func TestHomingMinZeroFromAnyStart(t *testing.T) {
	for _, start := range []int32{0, 1, 300, 1999} {
		ta := newTestAxis(t, nil)
		ta.rig.phys = start
		ta.rig.offset = -5000 // position reads far from the switch

		ta.runUntil(t, 5000, func() bool { return ta.c.Settling() })
		if ta.c.Position() != 0 {
			t.Errorf("start %d: expected position 0 after HomingMin, got %d", start, ta.c.Position())
		}
	}
}

func TestHomingMaxOverridesSoftRange(t *testing.T) {
	ta := newTestAxis(t, nil)
	ta.home(t)

	ta.send("SOFTMIN 100")
	ta.send("SOFTMAX 500")
	ta.send("SOFTENDSTOPS OFF")
	if soft := ta.c.SoftEndstops(); soft.Min != 100 || soft.Max != 500 || soft.Enabled {
		t.Fatalf("Setup failed, soft endstops %+v", soft)
	}

	ta.rig.maxAt = 1800
	out := ta.send("HOME")
	if !hasLine(out, "ok homing") {
		t.Errorf("Expected 'ok homing', got %q", out)
	}
	if ta.c.State() != StateHomingMin {
		t.Fatalf("Expected HomingMin right after HOME, got %s", ta.c.State())
	}

	ta.home(t)
	soft := ta.c.SoftEndstops()
	if soft.Min != 0 || soft.Max != 1800 || !soft.Enabled {
		t.Errorf("Expected soft endstops reset to [0,1800] enabled, got %+v", soft)
	}
	if ta.c.MaxPosition() != 1800 {
		t.Errorf("Expected max position 1800, got %d", ta.c.MaxPosition())
	}
}

func TestHomeDuringSettleRestarts(t *testing.T) {
	ta := newTestAxis(t, nil)

	ta.runUntil(t, 1000, func() bool { return ta.c.Settling() })
	ta.send("HOME")
	if ta.c.Settling() {
		t.Error("Expected HOME to cancel the settle pause")
	}
	if ta.c.State() != StateHomingMin {
		t.Errorf("Expected HomingMin, got %s", ta.c.State())
	}

	ta.home(t)
	if want := ta.rig.maxAt - ta.rig.offset; ta.c.MaxPosition() != want {
		t.Errorf("Expected a full homing after HOME, got max %d want %d", ta.c.MaxPosition(), want)
	}
}

func TestGotoRejectedWhenNotReady(t *testing.T) {
	ta := newTestAxis(t, nil)
	ta.tick(10)

	before := ta.c.Target()
	rigTarget := ta.rig.target
	out := ta.send("GOTO 100")

	if !hasLine(out, "error not ready") {
		t.Errorf("Expected 'error not ready', got %q", out)
	}
	if ta.c.Target() != before || ta.rig.target != rigTarget {
		t.Error("Rejected GOTO changed the target")
	}
	if ta.c.State() != StateHomingMin {
		t.Errorf("Rejected GOTO changed state to %s", ta.c.State())
	}
}

func TestGotoClampedToSoftMax(t *testing.T) {
	ta := newTestAxis(t, nil)
	ta.home(t)

	ta.send("SOFTMAX 1000")
	out := ta.send("GOTO 1500")

	if !hasLine(out, "info soft max endstop reached, target limited to 1000") {
		t.Errorf("Expected clamp notice, got %q", out)
	}
	if !hasLine(out, "ok target=1000") {
		t.Errorf("Expected 'ok target=1000', got %q", out)
	}
	if ta.c.Target() != 1000 || ta.rig.target != 1000 {
		t.Errorf("Expected target 1000, got %d/%d", ta.c.Target(), ta.rig.target)
	}

	out = ta.send("GOTO -20")
	if !hasLine(out, "ok target=0") {
		t.Errorf("Expected clamp to soft min 0, got %q", out)
	}
}

func TestGotoUnclampedWhenDisabled(t *testing.T) {
	ta := newTestAxis(t, nil)
	ta.home(t)

	ta.send("SOFTENDSTOPS OFF")
	out := ta.send("GOTO 2500")
	if !hasLine(out, "ok target=2500") {
		t.Errorf("Expected unmodified target 2500, got %q", out)
	}
	if strings.Contains(out, "limited") {
		t.Errorf("Unexpected clamp notice with endstops disabled: %q", out)
	}
}

func TestSoftMinAboveSoftMaxRejected(t *testing.T) {
	ta := newTestAxis(t, nil)
	ta.home(t)

	if out := ta.send("SOFTMAX 400"); !hasLine(out, "ok soft endstops min=0 max=400") {
		t.Fatalf("SOFTMAX 400 failed: %q", out)
	}

	out := ta.send("SOFTMIN 500")
	if !hasLine(out, "error "+ErrInvalidRange.Error()) {
		t.Errorf("Expected invalid range error, got %q", out)
	}
	if soft := ta.c.SoftEndstops(); soft.Min != 0 || soft.Max != 400 {
		t.Errorf("Rejected SOFTMIN mutated range to %+v", soft)
	}
}

func TestSoftConfigRequiresReady(t *testing.T) {
	ta := newTestAxis(t, nil)
	ta.tick(5)

	for _, line := range []string{"SOFTMIN 10", "SOFTMAX 10"} {
		if out := ta.send(line); !hasLine(out, "error not ready") {
			t.Errorf("%s: expected 'error not ready', got %q", line, out)
		}
	}
}

func TestContradictionFaultsSameCycle(t *testing.T) {
	ta := newTestAxis(t, nil)
	ta.home(t)
	ta.runUntil(t, 2000, func() bool { return ta.c.Position() == 1000 })

	ta.send("GOTO 1500")
	ta.tick(3)
	if ta.rig.speed <= 0 {
		t.Fatalf("Expected motion toward max, speed %v", ta.rig.speed)
	}

	ta.min.force(true)
	ta.out.Reset()
	ta.c.Cycle(nil)

	if ta.c.State() != StateWaitReset {
		t.Fatalf("Expected WaitReset in the same cycle, got %s", ta.c.State())
	}
	if ta.enable.energized {
		t.Error("Expected the driver de-energized (enable high)")
	}
	if ta.c.LastFault() != FaultMinContradiction {
		t.Errorf("Expected min contradiction, got %v", ta.c.LastFault())
	}
	if !hasLine(ta.out.String(), "fault "+FaultMinContradiction.String()) {
		t.Errorf("Expected fault report, got %q", ta.out.String())
	}
	if ta.rig.target != ta.rig.CurrentPosition() {
		t.Error("Expected motion stopped on fault")
	}
}

func TestBackoffFromPressedSwitch(t *testing.T) {
	ta := newTestAxis(t, nil)
	ta.home(t)

	// Switch stays pressed for a few steps while the axis leaves it
	ta.max.force(true)
	ta.tick(3)
	if ta.c.State() != StateReady {
		t.Fatalf("Leaving a pressed switch faulted: %s (%v)", ta.c.State(), ta.c.LastFault())
	}

	// Once released, a new press while moving toward min is a contradiction
	ta.max.release()
	ta.tick(2)
	ta.max.force(true)
	ta.tick(1)
	if ta.c.State() != StateWaitReset || ta.c.LastFault() != FaultMaxContradiction {
		t.Errorf("Expected max contradiction, state %s fault %v", ta.c.State(), ta.c.LastFault())
	}
}

func TestStuckSwitchFaultsAfterDepartTravel(t *testing.T) {
	ta := newTestAxis(t, func(c *Config) { c.DepartTravel = 50 })
	ta.home(t)
	start := ta.c.Position()

	// The max switch never releases while the axis travels toward mid
	ta.max.force(true)
	ta.runUntil(t, 200, func() bool { return ta.c.State() != StateReady })
	if ta.c.LastFault() != FaultMaxContradiction {
		t.Fatalf("Expected max contradiction, got %v", ta.c.LastFault())
	}
	if moved := start - ta.c.Position(); moved <= 50 || moved > 52 {
		t.Errorf("Expected fault just past 50 steps of travel, moved %d", moved)
	}
}

func TestStrictSwitchCheck(t *testing.T) {
	ta := newTestAxis(t, func(c *Config) { c.StrictSwitchCheck = true })
	ta.home(t)

	ta.max.force(true)
	ta.tick(1)
	if ta.c.State() != StateWaitReset || ta.c.LastFault() != FaultMaxContradiction {
		t.Errorf("Expected strict check to fault, state %s fault %v", ta.c.State(), ta.c.LastFault())
	}
}

func TestStallIsStickyUntilReset(t *testing.T) {
	ta := newTestAxis(t, nil)
	ta.home(t)

	ta.driver.stall = true
	ta.tick(1)
	if ta.c.State() != StateWaitReset || ta.c.LastFault() != FaultStall {
		t.Fatalf("Expected stall fault, state %s fault %v", ta.c.State(), ta.c.LastFault())
	}

	// Condition clears, flag stays latched
	ta.driver.stall = false
	ta.tick(50)
	if !ta.c.Stalled() {
		t.Fatal("Stall flag cleared without a reset")
	}
	if out := ta.send("STATE?"); !strings.Contains(out, "stall=1") {
		t.Errorf("Expected stall=1 in STATE?, got %q", out)
	}

	out := ta.send("RESET")
	if !hasLine(out, "ok reset") {
		t.Errorf("Expected 'ok reset', got %q", out)
	}
	if ta.c.Stalled() {
		t.Error("Expected RESET to clear the stall flag")
	}
	if ta.c.State() != StateHomingMin {
		t.Errorf("Expected rehoming after RESET, got %s", ta.c.State())
	}
	if !ta.enable.energized {
		t.Error("Expected the driver re-energized")
	}
}

func TestStallEventRecordsStatusByte(t *testing.T) {
	tests := []struct {
		name   string
		status uint8
	}{
		{"stall bit only", 0x10},
		{"stall with other flags", 0x93},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestAxis(t, nil)
			ta.home(t)
			core.ClearEventRing()

			ta.driver.stall = true
			ta.driver.status = tt.status
			pos := ta.c.Position()
			ta.tick(1)

			var found bool
			for _, evt := range core.Events() {
				if evt.EventType != core.EvtStallPoll {
					continue
				}
				found = true
				if evt.Value1 != int32(tt.status) || evt.Value2 != pos {
					t.Errorf("Expected stall event v1=%d v2=%d, got v1=%d v2=%d", tt.status, pos, evt.Value1, evt.Value2)
				}
			}
			if !found {
				t.Error("Expected a stall event in the ring")
			}
		})
	}
}

func TestStallPolledOnlyWhenReady(t *testing.T) {
	ta := newTestAxis(t, func(c *Config) { c.StallPollEvery = 4 })

	ta.runUntil(t, 20000, func() bool { return ta.c.State() == StateReady })
	if ta.driver.polls != 0 {
		t.Errorf("Driver polled %d times during homing", ta.driver.polls)
	}

	ta.tick(8)
	if ta.driver.polls != 2 {
		t.Errorf("Expected 2 polls in 8 Ready cycles, got %d", ta.driver.polls)
	}
}

func TestLinkErrorDoesNotLatch(t *testing.T) {
	ta := newTestAxis(t, nil)
	ta.home(t)

	ta.driver.err = errors.New("uart timeout")
	ta.tick(5)
	if ta.c.Stalled() || ta.c.State() != StateReady {
		t.Errorf("Link error caused a fault: state %s", ta.c.State())
	}
}

func TestWaitResetTimeoutRehomes(t *testing.T) {
	ta := newTestAxis(t, nil)
	ta.home(t)

	ta.driver.stall = true
	faultAt := core.GetTime()
	ta.c.Cycle(nil)
	ta.driver.stall = false
	if ta.c.State() != StateWaitReset {
		t.Fatalf("Expected WaitReset, got %s", ta.c.State())
	}

	core.SetTime(faultAt + uint64((10*time.Minute)/time.Microsecond) - 1)
	ta.c.Cycle(nil)
	if ta.c.State() != StateWaitReset {
		t.Fatalf("Rehomed before the timeout, state %s", ta.c.State())
	}

	core.SetTime(faultAt + uint64((10*time.Minute)/time.Microsecond))
	ta.c.Cycle(nil)
	if ta.c.State() != StateHomingMin {
		t.Errorf("Expected automatic rehome to HomingMin, got %s", ta.c.State())
	}
	if ta.c.Stalled() {
		t.Error("Expected rehome to clear the stall flag")
	}
	if !ta.enable.energized {
		t.Error("Expected the driver re-energized")
	}
}

func TestNoSafetyChecksWhileHoming(t *testing.T) {
	ta := newTestAxis(t, nil)
	ta.tick(5)

	// No safety check is defined for homing states
	ta.driver.stall = true
	ta.max.force(true)
	ta.tick(5)
	if ta.c.State() == StateErrorDetected || ta.c.State() == StateWaitReset {
		t.Errorf("Homing faulted: %s", ta.c.State())
	}
}
