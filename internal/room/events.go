package room

import (
	"github.com/outguess/backend/internal/engine"
	"github.com/outguess/backend/internal/protocol"
)

func playerInfos(snaps []engine.PlayerSnapshot) []protocol.PlayerInfo {
	out := make([]protocol.PlayerInfo, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, protocol.PlayerInfo{
			PlayerID:   s.ID,
			Name:       s.Name,
			Avatar:     s.Avatar,
			Score:      s.Score,
			Eliminated: s.Eliminated,
			Connected:  s.Connected,
			SeatNumber: s.SeatNo,
		})
	}
	return out
}

func (r *Room) lobbyUpdate() protocol.LobbyUpdate {
	return protocol.LobbyUpdate{
		Type:         protocol.TypeLobbyUpdate,
		RoomID:       r.id,
		Code:         r.code,
		Status:       string(r.state.Status),
		HostPlayerID: r.state.HostID,
		Players:      playerInfos(engine.Snapshot(r.state)),
	}
}

func roundResultEvent(res engine.RevealResult) protocol.RoundResult {
	picks := make([]protocol.RevealedPick, 0, len(res.Picks))
	for _, p := range res.Picks {
		picks = append(picks, protocol.RevealedPick{
			PlayerID: p.PlayerID,
			Name:     p.Name,
			Value:    p.Value,
		})
	}

	winners := res.Winners
	if winners == nil {
		winners = []string{}
	}

	return protocol.RoundResult{
		Type:        protocol.TypeRoundResult,
		RoundNumber: res.RoundNo,
		Picks:       picks,
		Total:       res.Total,
		Average:     res.Average,
		Target:      res.Target,
		Winners:     winners,
		Players:     playerInfos(res.Scores),
	}
}

func gameOverEvent(winner *engine.Player, standings []engine.PlayerSnapshot) protocol.GameOver {
	ev := protocol.GameOver{
		Type:           protocol.TypeGameOver,
		FinalStandings: playerInfos(standings),
	}
	if winner != nil {
		ev.Winner = &protocol.WinnerRef{PlayerID: winner.ID, Name: winner.Name}
	}
	return ev
}
