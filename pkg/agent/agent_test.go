package agent

import (
	"testing"

	"github.com/nanoagents/actorcore/pkg/mailbox"
	"github.com/nanoagents/actorcore/pkg/message"
	"github.com/nanoagents/actorcore/pkg/types"
)

type fakeEnv struct {
	agents     map[types.AgentId]*Agent
	heartbeats []types.AgentId
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{agents: make(map[types.AgentId]*Agent)}
}

func (e *fakeEnv) NotifyHeartbeat(from types.AgentId) {
	e.heartbeats = append(e.heartbeats, from)
}

func (e *fakeEnv) DeliverRaw(to types.AgentId, frame []byte) mailbox.PushResult {
	target, ok := e.agents[to]
	if !ok {
		return mailbox.InvalidMessage
	}
	return target.Mailbox().Push(frame, len(frame))
}

func (e *fakeEnv) BroadcastRaw(from types.AgentId, frame []byte) int {
	delivered := 0
	for id, a := range e.agents {
		if id == from {
			continue
		}
		if a.Mailbox().Push(frame, len(frame)) == mailbox.Success {
			delivered++
		}
	}
	return delivered
}

type ping struct{ N int32 }

const (
	stateIdle types.StateId = iota
	stateActive
)

func TestSendMessageThenProcessMessagesDispatchesHandler(t *testing.T) {
	env := newFakeEnv()
	sender := New(1, env)
	receiver := New(2, env)
	env.agents[1] = sender
	env.agents[2] = receiver

	var received int32
	OnType[ping](receiver, func(a *Agent, frame []byte) {
		p, ok := message.Decode[ping](frame)
		if !ok {
			t.Fatal("Decode() failed inside handler")
		}
		received = p.N
	})

	if r := SendMessage(sender, 2, ping{N: 42}); r != mailbox.Success {
		t.Fatalf("SendMessage() = %v, want Success", r)
	}
	if n := receiver.ProcessMessages(8); n != 1 {
		t.Fatalf("ProcessMessages() processed %d, want 1", n)
	}
	if received != 42 {
		t.Errorf("handler observed N=%d, want 42", received)
	}
}

func TestBroadcastMessageExcludesSender(t *testing.T) {
	env := newFakeEnv()
	a1 := New(1, env)
	a2 := New(2, env)
	a3 := New(3, env)
	env.agents[1] = a1
	env.agents[2] = a2
	env.agents[3] = a3

	delivered := BroadcastMessage(a1, ping{N: 7})
	if delivered != 2 {
		t.Fatalf("BroadcastMessage() delivered to %d agents, want 2", delivered)
	}
	if a1.Mailbox().Size() != 0 {
		t.Error("broadcast sender should not receive its own message")
	}
	if a2.Mailbox().Size() != 1 || a3.Mailbox().Size() != 1 {
		t.Error("broadcast should deliver exactly one copy to every other agent")
	}
}

func TestTransitionDeferredUntilAfterHandlerReturns(t *testing.T) {
	env := newFakeEnv()
	a := New(1, env)
	env.agents[1] = a

	var order []string
	a.DefineState(stateIdle, func(a *Agent) { order = append(order, "enter-idle") }, func(a *Agent) { order = append(order, "exit-idle") })
	a.DefineState(stateActive, func(a *Agent) { order = append(order, "enter-active") }, func(a *Agent) { order = append(order, "exit-active") })

	OnType[ping](a, func(a *Agent, frame []byte) {
		order = append(order, "handler")
		a.TransitionTo(stateActive)
		if a.CurrentState() != stateIdle {
			t.Error("TransitionTo should not take effect before the handler returns")
		}
	})

	SendMessage(a, 1, ping{})
	a.ProcessMessages(1)

	want := []string{"handler", "exit-idle", "enter-active"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if a.CurrentState() != stateActive || a.PreviousState() != stateIdle {
		t.Errorf("current=%d previous=%d, want active/idle", a.CurrentState(), a.PreviousState())
	}
}

func TestDefineStateRejectsOutOfRangeID(t *testing.T) {
	env := newFakeEnv()
	a := New(1, env)
	if a.DefineState(types.StateId(types.MaxStates), nil, nil) {
		t.Error("DefineState() with an out-of-range id should fail")
	}
}

func TestTransitionToUndefinedStateFails(t *testing.T) {
	env := newFakeEnv()
	a := New(1, env)
	if a.TransitionTo(stateActive) {
		t.Error("TransitionTo() to an undefined state should fail")
	}
}

type fakeMetrics struct {
	ticksObserved int
}

func (m *fakeMetrics) ObserveQueueDepth(int)         {}
func (m *fakeMetrics) ObserveSent()                  {}
func (m *fakeMetrics) ObserveProcessed()             {}
func (m *fakeMetrics) ObserveProcessingTicks(uint32) { m.ticksObserved++ }

func TestProcessMessagesAlwaysHeartbeatsButOnlyObservesTicksWhenProcessed(t *testing.T) {
	env := newFakeEnv()
	metrics := &fakeMetrics{}
	sender := New(1, env)
	receiver := New(2, env, WithMetricsSink(metrics))
	env.agents[1] = sender
	env.agents[2] = receiver
	OnType[ping](receiver, func(a *Agent, frame []byte) {})

	receiver.ProcessMessages(8)
	if len(env.heartbeats) != 1 || env.heartbeats[0] != 2 {
		t.Fatalf("heartbeats = %v, want one heartbeat from agent 2 even with nothing to process", env.heartbeats)
	}
	if metrics.ticksObserved != 0 {
		t.Errorf("ticksObserved = %d, want 0 when nothing was dequeued", metrics.ticksObserved)
	}

	SendMessage(sender, 2, ping{N: 1})
	receiver.ProcessMessages(8)
	if len(env.heartbeats) != 2 {
		t.Fatalf("heartbeats = %v, want a second heartbeat after the next call", env.heartbeats)
	}
	if metrics.ticksObserved != 1 {
		t.Errorf("ticksObserved = %d, want 1 after dequeuing one message", metrics.ticksObserved)
	}
}
