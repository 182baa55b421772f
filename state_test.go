package emvid

import (
	"testing"
	"time"
)

func TestTransitionTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to PlaybackState
		want     bool
	}{
		{StateIdle, StateLoading, true},
		{StateIdle, StatePlaying, false},
		{StateLoading, StatePlaying, true},
		{StateLoading, StatePaused, true},
		{StateLoading, StateSeeking, false},
		{StatePlaying, StatePaused, true},
		{StatePlaying, StateSeeking, true},
		{StatePlaying, StateBuffering, true},
		{StatePlaying, StateEndOfStream, true},
		{StatePlaying, StateLoading, false},
		{StatePaused, StatePlaying, true},
		{StatePaused, StateSeeking, true},
		{StatePaused, StateBuffering, false},
		{StateSeeking, StatePlaying, true},
		{StateSeeking, StatePaused, true},
		{StateSeeking, StateEndOfStream, true},
		{StateBuffering, StatePlaying, true},
		{StateBuffering, StatePaused, true},
		{StateEndOfStream, StateSeeking, true},
		{StateEndOfStream, StatePlaying, false},
		{StateError, StateLoading, true},
		{StateError, StatePlaying, false},
	}
	for _, tc := range tests {
		if got := allowed(tc.from, tc.to); got != tc.want {
			t.Errorf("allowed(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestErrorReachableFromEveryState(t *testing.T) {
	t.Parallel()

	states := []PlaybackState{
		StateIdle, StateLoading, StatePlaying, StatePaused,
		StateSeeking, StateBuffering, StateError, StateEndOfStream,
	}
	for _, from := range states {
		if !allowed(from, StateError) {
			t.Errorf("StateError unreachable from %s", from)
		}
	}
}

func TestStateMachineRejectsIllegalTransition(t *testing.T) {
	t.Parallel()

	m := newStateMachine(8)
	if m.to(Status{State: StatePlaying}) {
		t.Fatal("Idle -> Playing was accepted")
	}
	if m.state() != StateIdle {
		t.Errorf("state corrupted to %s by rejected transition", m.state())
	}
}

func TestStateMachineEmitsTransitions(t *testing.T) {
	t.Parallel()

	m := newStateMachine(8)
	m.setSourceID("src-1")
	m.to(Status{State: StateLoading})
	m.to(Status{State: StatePlaying})

	ev := <-m.events
	if ev.Kind != EventStateChanged || ev.Prev != StateIdle || ev.State != StateLoading {
		t.Errorf("first event = %+v", ev)
	}
	ev = <-m.events
	if ev.State != StatePlaying || ev.SourceID != "src-1" {
		t.Errorf("second event = %+v", ev)
	}
}

func TestStateMachineSelfTransitionIsSilent(t *testing.T) {
	t.Parallel()

	m := newStateMachine(8)
	m.to(Status{State: StateLoading})
	<-m.events
	if !m.to(Status{State: StateLoading}) {
		t.Fatal("self transition rejected")
	}
	select {
	case ev := <-m.events:
		t.Errorf("self transition emitted %+v", ev)
	default:
	}
}

func TestStateMachineFailEmitsErrorAndTransition(t *testing.T) {
	t.Parallel()

	m := newStateMachine(8)
	m.to(Status{State: StateLoading})
	<-m.events

	perr := playbackErr(ErrCorrupted, "header damage", nil)
	m.fail(perr)

	ev := <-m.events
	if ev.Kind != EventStateChanged || ev.State != StateError || ev.Err != perr {
		t.Errorf("transition event = %+v", ev)
	}
	ev = <-m.events
	if ev.Kind != EventError || ev.Err != perr {
		t.Errorf("error event = %+v", ev)
	}
	if st := m.status(); st.State != StateError || st.Err != perr {
		t.Errorf("status = %+v", st)
	}
}

func TestStateMachineOverflowDropsOldest(t *testing.T) {
	t.Parallel()

	m := newStateMachine(2)
	m.emitSkip("a.mkv")
	m.emitSkip("b.mkv")
	m.emitSkip("c.mkv")

	if ev := <-m.events; ev.Detail != "b.mkv" {
		t.Errorf("first surviving event = %q, want b.mkv", ev.Detail)
	}
	if ev := <-m.events; ev.Detail != "c.mkv" {
		t.Errorf("second surviving event = %q, want c.mkv", ev.Detail)
	}
}

func TestStateMachineEmitNeverBlocks(t *testing.T) {
	t.Parallel()

	m := newStateMachine(1)
	m.to(Status{State: StateLoading})

	done := make(chan struct{})
	go func() {
		// buffer is full; these must drop, not block
		m.emitError(playbackErr(ErrSeekTimeout, "", nil))
		m.emitSkip("a.mkv")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full event buffer")
	}
}
