// Package room runs one goroutine per room. All game state mutations happen
// inside that loop, as reactions to inbound commands or timer callbacks, so
// no two handlers for the same room ever interleave and no game state needs
// a lock. Rooms are independent: nothing here blocks on another room.
package room

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/outguess/backend/internal/engine"
	"github.com/outguess/backend/internal/ids"
	"github.com/outguess/backend/internal/protocol"
)

// Registrar is the subset of the room registry a room needs to remove itself
// during deferred teardown.
type Registrar interface {
	Remove(rm *Room)
}

type Options struct {
	Game engine.Config
	// TickInterval is the length of one "second" of game time. Production
	// uses time.Second; tests shrink it.
	TickInterval time.Duration
	// CleanupDelay is the grace period between game over and the room being
	// removed from the registry.
	CleanupDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		Game:         engine.DefaultConfig(),
		TickInterval: time.Second,
		CleanupDelay: 60 * time.Second,
	}
}

type Room struct {
	id   string
	code string

	inbox   chan Msg
	state   *engine.Room
	clients map[string]chan any // clientID -> outbox
	seats   map[string]string   // clientID -> playerID

	timers      TimerSet
	secondsLeft int

	opts Options
	reg  Registrar
	log  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, log *zap.Logger, opts Options, id, code string, reg Registrar) *Room {
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		id:      id,
		code:    code,
		inbox:   make(chan Msg, 64),
		state:   engine.NewRoom(id, code, opts.Game),
		clients: make(map[string]chan any),
		seats:   make(map[string]string),
		opts:    opts,
		reg:     reg,
		log:     log.With(zap.String("room_id", id), zap.String("code", code)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

func (r *Room) ID() string   { return r.id }
func (r *Room) Code() string { return r.code }

// Done is closed once the room loop has been told to stop.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Send delivers a message to the room loop, dropping it if the room has
// already been torn down.
func (r *Room) Send(m Msg) {
	select {
	case r.inbox <- m:
	case <-r.ctx.Done():
	}
}

// Shutdown stops the loop without the teardown broadcast; used when a room
// must be discarded before registration and on process exit.
func (r *Room) Shutdown() { r.cancel() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.closeClients()
			return
		case m := <-r.inbox:
			r.dispatch(m)
		}
	}
}

func (r *Room) dispatch(m Msg) {
	switch msg := m.(type) {
	case Attach:
		r.clients[msg.ClientID] = msg.Outbox

	case Detach:
		r.handleDetach(msg)

	case Join:
		r.handleJoin(msg)

	case SubmitPick:
		if _, allIn := engine.RecordPick(r.state, msg.PlayerID, msg.Value); allIn {
			r.lockRound()
		}

	case Advance:
		if r.state.Phase == engine.PhaseReveal && msg.PlayerID == r.state.HostID {
			r.startRound()
		}

	case countdownTick:
		r.handleCountdownTick()

	case roundTick:
		r.handleRoundTick()

	case roundDeadline:
		// Guarded by phase and round so a deadline that raced past Stop is
		// a no-op even if it belonged to an earlier round.
		if r.state.Phase == engine.PhaseCollect && msg.round == r.state.RoundNo {
			r.lockRound()
		}

	case teardown:
		r.teardown()

	case Inspect:
		msg.Reply <- r.view()
	}
}

func (r *Room) handleJoin(msg Join) {
	p, err := engine.AddPlayer(r.state, ids.EntityID("p"), msg.Name, msg.Avatar)
	if err != nil {
		msg.Reply <- JoinReply{Err: err}
		return
	}
	r.seats[msg.ClientID] = p.ID

	msg.Reply <- JoinReply{
		RoomID:       r.id,
		Code:         r.code,
		HostPlayerID: r.state.HostID,
		You: protocol.You{
			PlayerID:   p.ID,
			Name:       p.Name,
			SeatNumber: p.SeatNo,
			Avatar:     p.Avatar,
		},
	}

	r.log.Info("player joined",
		zap.String("player_id", p.ID),
		zap.Int("seat", p.SeatNo))

	r.broadcast(r.lobbyUpdate())

	if engine.Full(r.state) {
		r.startCountdown()
	}
}

func (r *Room) handleDetach(msg Detach) {
	// The outbox is left open; the connection owns its writer and may attach
	// to another room later. Only eviction paths close outboxes.
	delete(r.clients, msg.ClientID)
	if pid, ok := r.seats[msg.ClientID]; ok {
		delete(r.seats, msg.ClientID)
		if p := engine.FindPlayer(r.state, pid); p != nil {
			p.Connected = false
		}
		// Timers keep running; an absent player is scored as a
		// non-submitter until eliminated.
	}
}

func (r *Room) startCountdown() {
	r.timers.CancelAll()
	engine.BeginCountdown(r.state)

	r.log.Info("countdown started")
	r.broadcast(protocol.GameStarting{
		Type:      protocol.TypeGameStarting,
		Countdown: r.state.Countdown,
	})
	r.timers.countdown = r.after(r.opts.TickInterval, countdownTick{})
}

func (r *Room) handleCountdownTick() {
	if r.state.Phase != engine.PhaseCountdown {
		return
	}
	r.state.Countdown--
	r.broadcast(protocol.GameStarting{
		Type:      protocol.TypeGameStarting,
		Countdown: r.state.Countdown,
	})
	if r.state.Countdown <= 0 {
		r.startRound()
		return
	}
	r.timers.countdown = r.after(r.opts.TickInterval, countdownTick{})
}

func (r *Room) startRound() {
	r.timers.CancelAll()
	engine.BeginRound(r.state)

	if engine.Finished(r.state) {
		r.finish()
		return
	}

	r.secondsLeft = r.opts.Game.CollectSeconds

	r.log.Info("round started", zap.Int("round", r.state.RoundNo))
	r.broadcast(protocol.RoundStarted{
		Type:        protocol.TypeRoundStarted,
		RoundNumber: r.state.RoundNo,
		SecondsLeft: r.secondsLeft,
		Players:     playerInfos(engine.Snapshot(r.state)),
	})

	r.timers.ticker = r.after(r.opts.TickInterval, roundTick{})
	r.timers.deadline = r.after(
		time.Duration(r.opts.Game.CollectSeconds)*r.opts.TickInterval,
		roundDeadline{round: r.state.RoundNo})
}

func (r *Room) handleRoundTick() {
	if r.state.Phase != engine.PhaseCollect {
		return
	}
	r.secondsLeft--
	r.broadcast(protocol.RoundTick{
		Type:        protocol.TypeRoundTick,
		SecondsLeft: r.secondsLeft,
	})
	if r.secondsLeft > 0 {
		r.timers.ticker = r.after(r.opts.TickInterval, roundTick{})
	}
}

// lockRound is the single transition out of the collection window. Both the
// "all submitted" path and the deadline path land here; engine.Reveal's phase
// guard makes the second caller a no-op.
func (r *Room) lockRound() {
	res, ok := engine.Reveal(r.state)
	if !ok {
		return
	}
	r.timers.CancelAll()

	r.log.Info("round revealed",
		zap.Int("round", res.RoundNo),
		zap.Float64("target", res.Target),
		zap.Strings("winners", res.Winners))

	r.broadcast(roundResultEvent(res))

	if engine.Finished(r.state) {
		r.finish()
		return
	}

	r.broadcast(protocol.AwaitingHost{
		Type:         protocol.TypeAwaitingHost,
		HostPlayerID: r.state.HostID,
	})
}

func (r *Room) finish() {
	r.timers.CancelAll()
	winner := engine.Finish(r.state)

	winnerID := ""
	if winner != nil {
		winnerID = winner.ID
	}
	r.log.Info("game over", zap.String("winner_id", winnerID))

	r.broadcast(gameOverEvent(winner, engine.Snapshot(r.state)))

	r.timers.cleanup = r.after(r.opts.CleanupDelay, teardown{})
}

// teardown removes the room from the registry and evicts every attached
// connection. It is best-effort: a failure here must never take down the
// process or any other room.
func (r *Room) teardown() {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("room teardown recovered", zap.Any("panic", p))
		}
	}()

	r.log.Info("room removed")
	if r.reg != nil {
		r.reg.Remove(r)
	}
	r.cancel()
}

func (r *Room) closeClients() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
}

func (r *Room) broadcast(evt any) {
	for id, ch := range r.clients {
		select {
		case ch <- evt:
		default:
			// Client is slow or gone; drop them rather than block the room.
			close(ch)
			delete(r.clients, id)
		}
	}
}

func (r *Room) after(d time.Duration, m Msg) *time.Timer {
	return time.AfterFunc(d, func() { r.Send(m) })
}

func (r *Room) view() View {
	return View{
		Status:       r.state.Status,
		Phase:        r.state.Phase,
		RoundNumber:  r.state.RoundNo,
		SecondsLeft:  r.secondsLeft,
		NumClients:   len(r.clients),
		PickCount:    len(r.state.Picks),
		HostPlayerID: r.state.HostID,
		Players:      engine.Snapshot(r.state),
	}
}
