package room

import (
	"github.com/outguess/backend/internal/engine"
	"github.com/outguess/backend/internal/protocol"
)

type Msg interface{ isRoomMsg() }

// Attach registers a connection's outbox for broadcasts.
type Attach struct {
	ClientID string
	Outbox   chan any
}

// Detach drops a connection. The player it seated, if any, stays in the game
// and keeps accruing penalties; only the Connected flag flips.
type Detach struct{ ClientID string }

// Join seats a new player for the given connection.
type Join struct {
	ClientID string
	Name     string
	Avatar   string
	Reply    chan JoinReply
}

type JoinReply struct {
	RoomID       string
	Code         string
	HostPlayerID string
	You          protocol.You
	Err          error
}

type SubmitPick struct {
	PlayerID string
	Value    float64
}

// Advance is the host's request to start the next round from the reveal
// phase. Requests from anyone else are ignored.
type Advance struct{ PlayerID string }

// Inspect reflects internal state without data races; test-only.
type Inspect struct{ Reply chan View }

type View struct {
	Status       engine.Status
	Phase        engine.Phase
	RoundNumber  int
	SecondsLeft  int
	NumClients   int
	PickCount    int
	HostPlayerID string
	Players      []engine.PlayerSnapshot
}

// Timer-driven messages, posted back into the inbox by TimerSet callbacks.
type countdownTick struct{}
type roundTick struct{}
type roundDeadline struct{ round int }
type teardown struct{}

func (Attach) isRoomMsg()        {}
func (Detach) isRoomMsg()        {}
func (Join) isRoomMsg()          {}
func (SubmitPick) isRoomMsg()    {}
func (Advance) isRoomMsg()       {}
func (Inspect) isRoomMsg()       {}
func (countdownTick) isRoomMsg() {}
func (roundTick) isRoomMsg()     {}
func (roundDeadline) isRoomMsg() {}
func (teardown) isRoomMsg()      {}
