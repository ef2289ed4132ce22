package engine

// Status is a room's overall lifecycle state.
type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusRunning  Status = "RUNNING"
	StatusFinished Status = "FINISHED"
)

// Phase is the sub-state of the current round, distinct from Status.
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseCountdown Phase = "countdown"
	PhaseCollect   Phase = "collect"
	PhaseReveal    Phase = "reveal"
	PhaseOver      Phase = "over"
)

// EliminationScore is the score at or below which a player is out for good.
const EliminationScore = -10

type Config struct {
	Capacity       int
	CollectSeconds int
	StartCountdown int
}

func DefaultConfig() Config {
	return Config{
		Capacity:       5,
		CollectSeconds: 120,
		StartCountdown: 3,
	}
}

type Player struct {
	ID         string
	Name       string
	Avatar     string
	Score      int
	Eliminated bool
	Connected  bool
	SeatNo     int
}

// Room is the full mutable game state. It is owned by exactly one goroutine
// at a time; nothing in this package synchronizes access.
type Room struct {
	ID        string
	Code      string
	Status    Status
	Phase     Phase
	Players   []*Player
	RoundNo   int
	Picks     map[string]int
	HostID    string
	Countdown int
	Config    Config
}

func NewRoom(id, code string, cfg Config) *Room {
	return &Room{
		ID:     id,
		Code:   code,
		Status: StatusWaiting,
		Phase:  PhaseLobby,
		Picks:  make(map[string]int),
		Config: cfg,
	}
}

// PlayerSnapshot is the per-player view included in broadcasts.
type PlayerSnapshot struct {
	ID         string
	Name       string
	Avatar     string
	Score      int
	Eliminated bool
	Connected  bool
	SeatNo     int
}

// PickEntry is a player's revealed pick; Value is nil when the player never
// submitted within the collection window.
type PickEntry struct {
	PlayerID string
	Name     string
	Value    *int
}

// RevealResult is derived at reveal time and not stored beyond the round.
type RevealResult struct {
	RoundNo int
	Picks   []PickEntry
	Total   int
	Average float64
	Target  float64
	Winners []string
	Scores  []PlayerSnapshot
}
