// Endstop handling for GPIO-based switches
package core

// Endstop is a limit switch input. Its reported state only changes after
// SampleCount consecutive reads agree.
type Endstop struct {
	Pin         GPIOPin // GPIO pin for endstop input
	ActiveHigh  bool    // Pin level when triggered
	SampleCount uint8   // Consecutive samples required to change state

	triggered bool
	pending   uint8 // Samples seen disagreeing with triggered
	driver    GPIODriver
}

// NewEndstop configures pin as an input. Active-low switches get a pull-up,
// active-high ones a pull-down.
func NewEndstop(driver GPIODriver, pin GPIOPin, activeHigh bool, sampleCount uint8) (*Endstop, error) {
	if driver == nil {
		driver = MustGPIO()
	}
	if sampleCount == 0 {
		sampleCount = 1
	}
	es := &Endstop{
		Pin:         pin,
		ActiveHigh:  activeHigh,
		SampleCount: sampleCount,
		driver:      driver,
	}

	var err error
	if activeHigh {
		err = driver.ConfigureInputPullDown(pin)
	} else {
		err = driver.ConfigureInputPullUp(pin)
	}
	if err != nil {
		return nil, err
	}

	// Seed from the current level so a switch held at boot reads triggered
	es.triggered = es.sample()
	return es, nil
}

func (es *Endstop) sample() bool {
	return es.driver.ReadPin(es.Pin) == es.ActiveHigh
}

// Triggered samples the pin and returns the debounced state
func (es *Endstop) Triggered() bool {
	if es.sample() == es.triggered {
		es.pending = 0
		return es.triggered
	}
	es.pending++
	if es.pending >= es.SampleCount {
		es.triggered = !es.triggered
		es.pending = 0
	}
	return es.triggered
}
