package emvid

import (
	"sync"
	"time"
)

// PlaybackState is the single source of truth for what the engine is doing.
// It is owned by the state machine and mutated only through the transitions
// the machine allows.
type PlaybackState uint8

const (
	StateIdle PlaybackState = iota
	StateLoading
	StatePlaying
	StatePaused
	StateSeeking
	StateBuffering
	StateError
	StateEndOfStream
)

func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateSeeking:
		return "Seeking"
	case StateBuffering:
		return "Buffering"
	case StateError:
		return "Error"
	case StateEndOfStream:
		return "EndOfStream"
	default:
		return "Unknown"
	}
}

// Status is a snapshot of the machine: the state plus its payload.
type Status struct {
	State PlaybackState
	// SeekTarget is meaningful while State is StateSeeking.
	SeekTarget time.Duration
	// Err is set while State is StateError.
	Err *PlaybackError
}

// EventKind tags the entries of the engine's event stream.
type EventKind uint8

const (
	// EventStateChanged reports a state machine transition.
	EventStateChanged EventKind = iota
	// EventError reports a playback error; recoverable errors (SeekTimeout)
	// arrive without a matching transition to StateError.
	EventError
	// EventFileSkipped reports that batch navigation skipped an unplayable
	// file. Detail carries the base name, never a full path.
	EventFileSkipped
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "StateChanged"
	case EventError:
		return "Error"
	case EventFileSkipped:
		return "FileSkipped"
	default:
		return "Unknown"
	}
}

// Event is what hosts receive from Player.Events().
type Event struct {
	Kind     EventKind
	State    PlaybackState
	Prev     PlaybackState
	Err      *PlaybackError
	SourceID string
	Detail   string
}

// transitions lists the legal state graph. Error is additionally reachable
// from every state (decoder watchdog), handled in allowed().
var transitions = map[PlaybackState][]PlaybackState{
	StateIdle:        {StateLoading},
	StateLoading:     {StatePlaying, StatePaused, StateError, StateIdle},
	StatePlaying:     {StatePaused, StateSeeking, StateBuffering, StateEndOfStream, StateIdle},
	StatePaused:      {StatePlaying, StateSeeking, StateIdle},
	StateSeeking:     {StatePlaying, StatePaused, StateError, StateEndOfStream, StateIdle},
	StateBuffering:   {StatePlaying, StatePaused, StateSeeking, StateIdle},
	StateError:       {StateIdle, StateLoading},
	StateEndOfStream: {StateSeeking, StateIdle, StateLoading},
}

func allowed(from, to PlaybackState) bool {
	if to == StateError {
		return true
	}
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// stateMachine owns the current Status and the event stream. Transition
// attempts that the table forbids are rejected and logged rather than
// applied, which keeps racing completions (a seek finishing after a stop)
// from corrupting the state.
type stateMachine struct {
	mu       sync.Mutex
	cur      Status
	sourceID string
	events   chan Event
}

func newStateMachine(eventDepth int) *stateMachine {
	if eventDepth <= 0 {
		eventDepth = 32
	}
	return &stateMachine{
		cur:    Status{State: StateIdle},
		events: make(chan Event, eventDepth),
	}
}

func (m *stateMachine) status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

func (m *stateMachine) state() PlaybackState {
	return m.status().State
}

func (m *stateMachine) setSourceID(id string) {
	m.mu.Lock()
	m.sourceID = id
	m.mu.Unlock()
}

// to attempts a transition and reports whether it was applied.
func (m *stateMachine) to(next Status) bool {
	m.mu.Lock()
	prev := m.cur
	if !allowed(prev.State, next.State) {
		m.mu.Unlock()
		pkgLogger.Warnf("emvid: rejected transition %s -> %s", prev.State, next.State)
		return false
	}
	m.cur = next
	id := m.sourceID
	m.mu.Unlock()

	if prev.State == next.State {
		return true
	}
	pkgLogger.Debugf("emvid: state %s -> %s", prev.State, next.State)
	m.emit(Event{
		Kind:     EventStateChanged,
		State:    next.State,
		Prev:     prev.State,
		Err:      next.Err,
		SourceID: id,
	})
	return true
}

// fail moves to StateError with the given error and emits both the error
// and the transition.
func (m *stateMachine) fail(err *PlaybackError) {
	m.to(Status{State: StateError, Err: err})
	m.emitError(err)
}

// emitError reports an error without changing state (recoverable errors).
func (m *stateMachine) emitError(err *PlaybackError) {
	m.mu.Lock()
	id := m.sourceID
	st := m.cur.State
	m.mu.Unlock()
	m.emit(Event{Kind: EventError, State: st, Err: err, SourceID: id})
}

func (m *stateMachine) emitSkip(name string) {
	m.emit(Event{Kind: EventFileSkipped, State: m.state(), Detail: name})
}

// emit never blocks. When the host lags and the buffer fills, the oldest
// event is evicted so the stream keeps the most recent transitions.
func (m *stateMachine) emit(ev Event) {
	select {
	case m.events <- ev:
		return
	default:
	}
	select {
	case old := <-m.events:
		pkgLogger.Warnf("emvid: event buffer full, dropping %v event", old.Kind)
	default:
	}
	select {
	case m.events <- ev:
	default:
		pkgLogger.Warnf("emvid: event buffer full, dropping %v event", ev.Kind)
	}
}
