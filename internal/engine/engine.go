package engine

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

var ErrNotJoinable = errors.New("room not joinable")
var ErrRoomFull = errors.New("room full")

// AddPlayer appends a new player at the next seat. The first player to join
// becomes the host. Blank names default to PlayerN.
func AddPlayer(r *Room, id, name, avatar string) (*Player, error) {
	if r.Status != StatusWaiting {
		return nil, ErrNotJoinable
	}
	if len(r.Players) >= r.Config.Capacity {
		return nil, ErrRoomFull
	}

	seat := len(r.Players) + 1
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Player%d", seat)
	}

	p := &Player{
		ID:        id,
		Name:      name,
		Avatar:    avatar,
		Connected: true,
		SeatNo:    seat,
	}
	r.Players = append(r.Players, p)

	if r.HostID == "" {
		r.HostID = p.ID
	}
	return p, nil
}

func FindPlayer(r *Room, id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func Full(r *Room) bool {
	return len(r.Players) >= r.Config.Capacity
}

func ActivePlayers(r *Room) []*Player {
	actives := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if !p.Eliminated {
			actives = append(actives, p)
		}
	}
	return actives
}

// BeginCountdown moves a just-filled room into the pre-game countdown.
func BeginCountdown(r *Room) {
	r.Status = StatusRunning
	r.Phase = PhaseCountdown
	r.Countdown = r.Config.StartCountdown
}

// BeginRound opens the next collection window.
func BeginRound(r *Room) {
	r.RoundNo++
	r.Phase = PhaseCollect
	r.Picks = make(map[string]int)
}

// RecordPick validates and stores a pick. Invalid submissions are dropped
// without signal: anything out of phase, from an unknown or eliminated
// player, a duplicate, a non-integer, or a value outside 0..100 is treated
// as a stale client event. allIn reports that every active player has now
// submitted.
func RecordPick(r *Room, playerID string, value float64) (accepted, allIn bool) {
	if r.Phase != PhaseCollect {
		return false, false
	}
	p := FindPlayer(r, playerID)
	if p == nil || p.Eliminated {
		return false, false
	}
	if _, dup := r.Picks[playerID]; dup {
		return false, false
	}
	if value != math.Trunc(value) || value < 0 || value > 100 {
		return false, false
	}

	r.Picks[playerID] = int(value)
	return true, len(r.Picks) >= len(ActivePlayers(r))
}

// Reveal closes the collection window and applies scoring. It is a no-op
// returning ok=false unless the room is in the collect phase, which makes
// the deadline/all-submitted race safe: whichever trigger runs second does
// nothing.
//
// The average is computed over submitted picks only; players who timed out
// are excluded from both numerator and denominator, not counted as zero.
// Winners are the submitters whose pick sits at exactly the minimal distance
// from target = average*0.8. Every other active player, submitter or not,
// loses one point, and elimination is checked immediately after each
// decrement.
func Reveal(r *Room) (RevealResult, bool) {
	if r.Phase != PhaseCollect {
		return RevealResult{}, false
	}
	r.Phase = PhaseReveal

	actives := ActivePlayers(r)

	picks := make([]PickEntry, 0, len(actives))
	for _, p := range actives {
		entry := PickEntry{PlayerID: p.ID, Name: p.Name}
		if v, ok := r.Picks[p.ID]; ok {
			value := v
			entry.Value = &value
		}
		picks = append(picks, entry)
	}

	total := 0
	submitted := 0
	for _, e := range picks {
		if e.Value != nil {
			total += *e.Value
			submitted++
		}
	}

	average := 0.0
	if submitted > 0 {
		average = float64(total) / float64(submitted)
	}
	target := average * 0.8

	minDist := math.Inf(1)
	for _, e := range picks {
		if e.Value == nil {
			continue
		}
		if d := math.Abs(float64(*e.Value) - target); d < minDist {
			minDist = d
		}
	}

	var winners []string
	for _, e := range picks {
		if e.Value == nil {
			continue
		}
		if math.Abs(float64(*e.Value)-target) == minDist {
			winners = append(winners, e.PlayerID)
		}
	}

	for _, p := range actives {
		if slices.Contains(winners, p.ID) {
			continue
		}
		p.Score--
		if p.Score <= EliminationScore {
			p.Eliminated = true
		}
	}

	return RevealResult{
		RoundNo: r.RoundNo,
		Picks:   picks,
		Total:   total,
		Average: average,
		Target:  target,
		Winners: winners,
		Scores:  Snapshot(r),
	}, true
}

// Finished reports whether at most one active player remains.
func Finished(r *Room) bool {
	return len(ActivePlayers(r)) <= 1
}

// Finish marks the room over and returns the winner, or nil when nobody
// survived. Calling it on an already finished room returns the same winner.
func Finish(r *Room) *Player {
	r.Status = StatusFinished
	r.Phase = PhaseOver

	alive := ActivePlayers(r)
	if len(alive) == 0 {
		return nil
	}
	return alive[0]
}

// Snapshot copies every player, eliminated or not, for broadcast payloads.
func Snapshot(r *Room) []PlayerSnapshot {
	out := make([]PlayerSnapshot, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, PlayerSnapshot{
			ID:         p.ID,
			Name:       p.Name,
			Avatar:     p.Avatar,
			Score:      p.Score,
			Eliminated: p.Eliminated,
			Connected:  p.Connected,
			SeatNo:     p.SeatNo,
		})
	}
	return out
}
