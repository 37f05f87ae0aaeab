package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures a control loop event for post-mortem analysis
type Event struct {
	EventType uint8  // Event type code
	Clock     uint64 // System clock at event
	Value1    int32  // Context-dependent value
	Value2    int32  // Context-dependent value
}

// Event type codes
const (
	EvtStateChange = 1 // v1=from state, v2=to state
	EvtFault       = 2 // v1=fault cause, v2=position
	EvtStallPoll   = 3 // v1=status byte, v2=position
	EvtLinkError   = 4 // driver link read or write failed
	EvtCommand     = 5 // v1=command ID, v2=1 if rejected
	EvtClamp       = 6 // v1=requested, v2=commanded
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event capture ring buffer (non-blocking, for post-mortem)
	eventRing     [EventRingSize]Event
	eventRingHead uint8 // Next write position
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent captures an event in the ring buffer
func RecordEvent(eventType uint8, value1, value2 int32) {
	idx := eventRingHead
	eventRing[idx] = Event{
		EventType: eventType,
		Clock:     GetTime(),
		Value1:    value1,
		Value2:    value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the recorded events from oldest to newest
func Events() []Event {
	out := make([]Event, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

func eventName(t uint8) string {
	switch t {
	case EvtStateChange:
		return "STATE"
	case EvtFault:
		return "FAULT"
	case EvtStallPoll:
		return "STALL_POLL"
	case EvtLinkError:
		return "LINK_ERR"
	case EvtCommand:
		return "COMMAND"
	case EvtClamp:
		return "CLAMP"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing outputs the event ring through the debug writer.
// Called after a fault so the lead-up can be inspected.
func DumpEventRing() {
	if !debugEnabled || debugPrintln == nil {
		return
	}

	debugPrintln("[EVENT] === Event Ring Dump uptime_ms=" + Utoa(TimerToMS(GetUptime())) + " ===")
	for _, evt := range Events() {
		debugPrintln("[EVENT] " + eventName(evt.EventType) +
			" clock=" + Utoa(evt.Clock) +
			" v1=" + Itoa(int(evt.Value1)) +
			" v2=" + Itoa(int(evt.Value2)))
	}
	debugPrintln("[EVENT] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
}
