// Package protocol defines the wire messages exchanged with clients. Every
// message carries a "type" tag; inbound commands share one envelope, outbound
// events are one struct per variant so handlers stay exhaustive.
package protocol

// Inbound command types.
const (
	TypeCreateRoom   = "create_room"
	TypeJoinRoom     = "join_room"
	TypeSubmitPick   = "submit_pick"
	TypeAdvanceRound = "advance_round"
)

// Outbound event types.
const (
	TypeRoomCreated  = "room_created"
	TypeRoomJoined   = "room_joined"
	TypeError        = "error"
	TypeLobbyUpdate  = "lobby_update"
	TypeGameStarting = "game_starting"
	TypeRoundStarted = "round_started"
	TypeRoundTick    = "round_tick"
	TypeRoundResult  = "round_result"
	TypeAwaitingHost = "awaiting_host"
	TypeGameOver     = "game_over"
)

// ClientMessage is the envelope for every inbound command. Value is a pointer
// so an absent pick can be told apart from zero, and a float so non-integer
// submissions survive decoding long enough to be rejected by the engine.
type ClientMessage struct {
	Type     string   `json:"type"`
	Name     string   `json:"displayName,omitempty"`
	Avatar   string   `json:"avatar,omitempty"`
	Code     string   `json:"code,omitempty"`
	PlayerID string   `json:"playerId,omitempty"`
	Value    *float64 `json:"value,omitempty"`
}

// PlayerInfo is the per-player snapshot embedded in most broadcasts.
type PlayerInfo struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"displayName"`
	Avatar     string `json:"avatar,omitempty"`
	Score      int    `json:"score"`
	Eliminated bool   `json:"eliminated"`
	Connected  bool   `json:"connected"`
	SeatNumber int    `json:"seatNumber"`
}

// You identifies the requester's own player in unicast replies.
type You struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"displayName"`
	SeatNumber int    `json:"seatNumber"`
	Avatar     string `json:"avatar,omitempty"`
}

type RoomCreated struct {
	Type         string `json:"type"`
	RoomID       string `json:"roomId"`
	Code         string `json:"code"`
	HostPlayerID string `json:"hostPlayerId"`
	You          You    `json:"you"`
}

type RoomJoined struct {
	Type         string `json:"type"`
	RoomID       string `json:"roomId"`
	Code         string `json:"code"`
	HostPlayerID string `json:"hostPlayerId"`
	You          You    `json:"you"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type LobbyUpdate struct {
	Type         string       `json:"type"`
	RoomID       string       `json:"roomId"`
	Code         string       `json:"code"`
	Status       string       `json:"status"`
	HostPlayerID string       `json:"hostPlayerId"`
	Players      []PlayerInfo `json:"players"`
}

type GameStarting struct {
	Type      string `json:"type"`
	Countdown int    `json:"countdown"`
}

type RoundStarted struct {
	Type        string       `json:"type"`
	RoundNumber int          `json:"roundNumber"`
	SecondsLeft int          `json:"secondsLeft"`
	Players     []PlayerInfo `json:"players"`
}

type RoundTick struct {
	Type        string `json:"type"`
	SecondsLeft int    `json:"secondsLeft"`
}

// RevealedPick is one row of the reveal table; Value is null for players who
// never submitted.
type RevealedPick struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"displayName"`
	Value    *int   `json:"value"`
}

type RoundResult struct {
	Type        string         `json:"type"`
	RoundNumber int            `json:"roundNumber"`
	Picks       []RevealedPick `json:"picks"`
	Total       int            `json:"total"`
	Average     float64        `json:"average"`
	Target      float64        `json:"target"`
	Winners     []string       `json:"winners"`
	Players     []PlayerInfo   `json:"players"`
}

type AwaitingHost struct {
	Type         string `json:"type"`
	HostPlayerID string `json:"hostPlayerId"`
}

// WinnerRef names the surviving player in game_over; the field is null when
// nobody survived.
type WinnerRef struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"displayName"`
}

type GameOver struct {
	Type           string       `json:"type"`
	Winner         *WinnerRef   `json:"winner"`
	FinalStandings []PlayerInfo `json:"finalStandings"`
}
