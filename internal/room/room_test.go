package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/outguess/backend/internal/engine"
	"github.com/outguess/backend/internal/protocol"
)

const waitFor = 2 * time.Second

func testOptions(capacity, collectSeconds int) Options {
	return Options{
		Game: engine.Config{
			Capacity:       capacity,
			CollectSeconds: collectSeconds,
			StartCountdown: 3,
		},
		TickInterval: 5 * time.Millisecond,
		CleanupDelay: 40 * time.Millisecond,
	}
}

type fakeRegistry struct {
	mu      sync.Mutex
	removed []*Room
}

func (f *fakeRegistry) Remove(rm *Room) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, rm)
}

func (f *fakeRegistry) removedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.removed)
}

// joinAll attaches one client per seat and seats a player on each, returning
// each client's outbox and identity in join order.
func joinAll(t *testing.T, rm *Room, n int) ([]chan any, []protocol.You) {
	t.Helper()

	outs := make([]chan any, n)
	yous := make([]protocol.You, n)
	for i := 0; i < n; i++ {
		outs[i] = make(chan any, 256)
		clientID := string(rune('A' + i))
		rm.Send(Attach{ClientID: clientID, Outbox: outs[i]})

		reply := make(chan JoinReply, 1)
		rm.Send(Join{ClientID: clientID, Name: "player", Avatar: "", Reply: reply})
		select {
		case jr := <-reply:
			if jr.Err != nil {
				t.Fatalf("join %d: %v", i, jr.Err)
			}
			yous[i] = jr.You
		case <-time.After(waitFor):
			t.Fatalf("timed out joining player %d", i)
		}
	}
	return outs, yous
}

// until discards events from ch until one of type T arrives.
func until[T any](t *testing.T, ch <-chan any) T {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				t.Fatalf("outbox closed while waiting for %T", *new(T))
			}
			if want, isT := evt.(T); isT {
				return want
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %T", *new(T))
		}
	}
}

// next asserts the very next event is of type T.
func next[T any](t *testing.T, ch <-chan any) T {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatalf("outbox closed while expecting %T", *new(T))
		}
		want, isT := evt.(T)
		if !isT {
			t.Fatalf("expected %T, got %#v", *new(T), evt)
		}
		return want
	case <-time.After(waitFor):
		t.Fatalf("timed out expecting %T", *new(T))
		panic("unreachable")
	}
}

func recvNone(t *testing.T, ch <-chan any, within time.Duration) {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if ok {
			t.Fatalf("expected no event within %v, got %#v", within, evt)
		}
	case <-time.After(within):
	}
}

func inspect(t *testing.T, rm *Room) View {
	t.Helper()
	reply := make(chan View, 1)
	rm.Send(Inspect{Reply: reply})
	select {
	case v := <-reply:
		return v
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for view")
		panic("unreachable")
	}
}

func TestRoomFillsCountsDownAndStartsRound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, zap.NewNop(), testOptions(5, 120), "r1", "ABCDEF", nil)
	outs, _ := joinAll(t, rm, 5)

	// The last joiner sees exactly one lobby_update before the countdown.
	lu := until[protocol.LobbyUpdate](t, outs[4])
	if lu.Status != string(engine.StatusWaiting) || len(lu.Players) != 5 {
		t.Fatalf("unexpected lobby snapshot: %+v", lu)
	}

	first := until[protocol.GameStarting](t, outs[4])
	if first.Countdown != 3 {
		t.Fatalf("countdown should start at 3, got %d", first.Countdown)
	}
	for want := 2; want >= 0; want-- {
		tick := next[protocol.GameStarting](t, outs[4])
		if tick.Countdown != want {
			t.Fatalf("countdown tick = %d, want %d", tick.Countdown, want)
		}
	}

	started := next[protocol.RoundStarted](t, outs[4])
	if started.RoundNumber != 1 || started.SecondsLeft != 120 {
		t.Fatalf("round_started = %+v, want round 1 with 120s", started)
	}
}

func TestSixthJoinRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, zap.NewNop(), testOptions(5, 120), "r1", "ABCDEF", nil)
	joinAll(t, rm, 5)

	reply := make(chan JoinReply, 1)
	rm.Send(Join{ClientID: "Z", Name: "late", Reply: reply})
	jr := <-reply
	if jr.Err == nil {
		t.Fatalf("expected join rejection once the game is running")
	}
}

func TestAllPicksRevealImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Long window: only the all-submitted path can end the round.
	rm := New(ctx, zap.NewNop(), testOptions(5, 600), "r1", "ABCDEF", nil)
	outs, yous := joinAll(t, rm, 5)

	until[protocol.RoundStarted](t, outs[0])

	values := []float64{40, 60, 55, 70, 25}
	for i, v := range values {
		rm.Send(SubmitPick{PlayerID: yous[i].PlayerID, Value: v})
	}

	res := until[protocol.RoundResult](t, outs[0])
	// avg = 250/5 = 50, target 40: the 40-submitter is at distance 0.
	if res.Target != 40.0 {
		t.Fatalf("target = %v, want 40.0", res.Target)
	}
	if len(res.Winners) != 1 || res.Winners[0] != yous[0].PlayerID {
		t.Fatalf("winners = %v, want the 40-submitter", res.Winners)
	}

	ah := until[protocol.AwaitingHost](t, outs[0])
	if ah.HostPlayerID != yous[0].PlayerID {
		t.Fatalf("host = %q, want %q", ah.HostPlayerID, yous[0].PlayerID)
	}

	// A stale deadline for the locked round must not score again.
	rm.Send(roundDeadline{round: 1})
	rm.Send(SubmitPick{PlayerID: yous[1].PlayerID, Value: 50})
	recvNone(t, outs[0], 30*time.Millisecond)
}

func TestDeadlineRevealsWithAbsentPick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, zap.NewNop(), testOptions(5, 3), "r1", "ABCDEF", nil)
	outs, yous := joinAll(t, rm, 5)

	until[protocol.RoundStarted](t, outs[0])

	values := []float64{40, 60, 55, 70}
	for i, v := range values {
		rm.Send(SubmitPick{PlayerID: yous[i].PlayerID, Value: v})
	}
	// The fifth player never submits; the deadline fires after 3 ticks.

	tick := until[protocol.RoundTick](t, outs[0])
	if tick.SecondsLeft >= 3 {
		t.Fatalf("ticker should count down from the window, got %d", tick.SecondsLeft)
	}

	res := until[protocol.RoundResult](t, outs[0])
	if res.Average != 56.25 || res.Target != 45.0 {
		t.Fatalf("average/target = %v/%v, want 56.25/45.0", res.Average, res.Target)
	}
	if len(res.Winners) != 1 || res.Winners[0] != yous[0].PlayerID {
		t.Fatalf("winners = %v, want the 40-submitter", res.Winners)
	}
	if res.Picks[4].Value != nil {
		t.Fatalf("absent player must reveal a null pick")
	}
	for i, want := range []int{0, -1, -1, -1, -1} {
		if res.Players[i].Score != want {
			t.Fatalf("player %d score = %d, want %d", i, res.Players[i].Score, want)
		}
	}
}

func TestAdvanceIsHostGated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, zap.NewNop(), testOptions(5, 600), "r1", "ABCDEF", nil)
	outs, yous := joinAll(t, rm, 5)

	until[protocol.RoundStarted](t, outs[0])
	for i, v := range []float64{40, 60, 55, 70, 25} {
		rm.Send(SubmitPick{PlayerID: yous[i].PlayerID, Value: v})
	}
	until[protocol.AwaitingHost](t, outs[0])

	rm.Send(Advance{PlayerID: yous[1].PlayerID})
	recvNone(t, outs[0], 30*time.Millisecond)

	rm.Send(Advance{PlayerID: yous[0].PlayerID})
	started := until[protocol.RoundStarted](t, outs[0])
	if started.RoundNumber != 2 {
		t.Fatalf("round = %d, want 2", started.RoundNumber)
	}
}

func TestDisconnectedPlayerStillPenalized(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, zap.NewNop(), testOptions(2, 3), "r1", "ABCDEF", nil)
	outs, yous := joinAll(t, rm, 2)

	until[protocol.RoundStarted](t, outs[0])

	rm.Send(Detach{ClientID: "B"})
	rm.Send(SubmitPick{PlayerID: yous[0].PlayerID, Value: 40})

	res := until[protocol.RoundResult](t, outs[0])
	if res.Picks[1].Value != nil {
		t.Fatalf("detached player should reveal a null pick")
	}
	if res.Players[1].Score != -1 {
		t.Fatalf("detached player score = %d, want -1", res.Players[1].Score)
	}

	v := inspect(t, rm)
	if v.Players[1].Connected {
		t.Fatalf("detached player should be marked disconnected")
	}
	if v.Players[1].Eliminated {
		t.Fatalf("disconnection must not eliminate a player")
	}
}

func TestGameOverAndCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := &fakeRegistry{}
	rm := New(ctx, zap.NewNop(), testOptions(2, 600), "r1", "ABCDEF", reg)
	outs, yous := joinAll(t, rm, 2)

	// p1 picks 0, p2 picks 100 every round: target 40, so p2 loses each time
	// and is eliminated after ten rounds.
	for round := 1; ; round++ {
		started := until[protocol.RoundStarted](t, outs[0])
		if started.RoundNumber != round {
			t.Fatalf("round = %d, want %d", started.RoundNumber, round)
		}
		rm.Send(SubmitPick{PlayerID: yous[0].PlayerID, Value: 0})
		rm.Send(SubmitPick{PlayerID: yous[1].PlayerID, Value: 100})

		res := until[protocol.RoundResult](t, outs[0])
		if round < 10 {
			if res.Players[1].Eliminated {
				t.Fatalf("round %d: premature elimination at score %d", round, res.Players[1].Score)
			}
			until[protocol.AwaitingHost](t, outs[0])
			rm.Send(Advance{PlayerID: yous[0].PlayerID})
			continue
		}

		if res.Players[1].Score != -10 || !res.Players[1].Eliminated {
			t.Fatalf("round 10: p2 = %+v, want score -10 eliminated", res.Players[1])
		}
		break
	}

	over := until[protocol.GameOver](t, outs[0])
	if over.Winner == nil || over.Winner.PlayerID != yous[0].PlayerID {
		t.Fatalf("winner = %+v, want p1", over.Winner)
	}
	if len(over.FinalStandings) != 2 {
		t.Fatalf("final standings should include every player")
	}

	// Cleanup fires after the grace period: registry removal plus eviction.
	deadline := time.After(waitFor)
	for reg.removedCount() == 0 {
		select {
		case <-deadline:
			t.Fatalf("room was never removed from the registry")
		case <-time.After(5 * time.Millisecond):
		}
	}

	select {
	case <-rm.Done():
	case <-time.After(waitFor):
		t.Fatalf("room loop should stop after cleanup")
	}
}

func TestCountdownStateDuringTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm := New(ctx, zap.NewNop(), testOptions(5, 600), "r1", "ABCDEF", nil)
	outs, _ := joinAll(t, rm, 5)

	until[protocol.GameStarting](t, outs[0])
	v := inspect(t, rm)
	if v.Status != engine.StatusRunning {
		t.Fatalf("status = %s, want RUNNING once full", v.Status)
	}

	until[protocol.RoundStarted](t, outs[0])
	v = inspect(t, rm)
	if v.Phase != engine.PhaseCollect || v.RoundNumber != 1 {
		t.Fatalf("view = %+v, want collect/round 1", v)
	}
}
