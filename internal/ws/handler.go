package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/outguess/backend/internal/ids"
	"github.com/outguess/backend/internal/protocol"
	"github.com/outguess/backend/internal/registry"
	"github.com/outguess/backend/internal/room"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 16
)

// Handler upgrades connections and bridges them to room actors. ctx bounds
// the lifetime of rooms created through this handler, not of any single
// connection.
func Handler(ctx context.Context, log *zap.Logger, reg *registry.Registry, opts room.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Same-origin only; add OriginPatterns here when serving the
			// client from a different host during development.
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		s := &session{
			appCtx:   ctx,
			log:      log,
			reg:      reg,
			opts:     opts,
			conn:     conn,
			clientID: ids.EntityID("c"),
			outbox:   make(chan any, outboxSize),
		}
		s.run(r.Context())
	}
}

type session struct {
	appCtx context.Context
	log    *zap.Logger
	reg    *registry.Registry
	opts   room.Options

	conn     *websocket.Conn
	clientID string
	outbox   chan any

	current *room.Room
}

func (s *session) run(ctx context.Context) {
	readerDone := make(chan struct{})
	defer close(readerDone)

	defer func() {
		if s.current != nil {
			s.current.Send(room.Detach{ClientID: s.clientID})
		}
	}()

	// Writer: drains room broadcasts. Exits when the room evicts us (outbox
	// closed) or when the reader is finished.
	go func() {
		for {
			select {
			case evt, ok := <-s.outbox:
				if !ok {
					s.conn.Close(websocket.StatusGoingAway, "room closed")
					return
				}
				s.write(ctx, evt)
			case <-readerDone:
				return
			}
		}
	}()

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			return
		}

		var cm protocol.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			// Malformed payloads are treated as stale client noise.
			s.log.Debug("dropping undecodable frame", zap.Error(err))
			continue
		}

		s.handle(ctx, cm)
	}
}

func (s *session) handle(ctx context.Context, cm protocol.ClientMessage) {
	switch cm.Type {
	case protocol.TypeCreateRoom:
		s.createRoom(ctx, cm)

	case protocol.TypeJoinRoom:
		s.joinRoom(ctx, cm)

	case protocol.TypeSubmitPick:
		if s.current == nil || cm.Value == nil {
			return
		}
		s.current.Send(room.SubmitPick{PlayerID: cm.PlayerID, Value: *cm.Value})

	case protocol.TypeAdvanceRound:
		if s.current == nil {
			return
		}
		s.current.Send(room.Advance{PlayerID: cm.PlayerID})

	default:
		s.log.Debug("dropping unknown command", zap.String("type", cm.Type))
	}
}

func (s *session) createRoom(ctx context.Context, cm protocol.ClientMessage) {
	if s.current != nil {
		s.sendError(ctx, "already in a room")
		return
	}

	var rm *room.Room
	for {
		code, err := ids.RoomCode(ids.CodeLength)
		if err != nil {
			s.sendError(ctx, "could not create room")
			return
		}
		rm = room.New(s.appCtx, s.log, s.opts, ids.EntityID("r"), code, s.reg)
		if err := s.reg.Add(rm); err == nil {
			break
		}
		rm.Shutdown()
		s.log.Warn("room code collision, regenerating", zap.String("code", code))
	}

	s.attach(rm)
	jr := s.join(rm, cm)
	if jr.Err != nil {
		s.current = nil
		s.sendError(ctx, jr.Err.Error())
		return
	}

	s.log.Info("room created",
		zap.String("room_id", jr.RoomID),
		zap.String("code", jr.Code),
		zap.String("host_id", jr.HostPlayerID))

	s.write(ctx, protocol.RoomCreated{
		Type:         protocol.TypeRoomCreated,
		RoomID:       jr.RoomID,
		Code:         jr.Code,
		HostPlayerID: jr.HostPlayerID,
		You:          jr.You,
	})
}

func (s *session) joinRoom(ctx context.Context, cm protocol.ClientMessage) {
	if s.current != nil {
		s.sendError(ctx, "already in a room")
		return
	}

	rm, ok := s.reg.ByCode(cm.Code)
	if !ok {
		s.sendError(ctx, "room not found")
		return
	}

	s.attach(rm)
	jr := s.join(rm, cm)
	if jr.Err != nil {
		rm.Send(room.Detach{ClientID: s.clientID})
		s.current = nil
		s.sendError(ctx, jr.Err.Error())
		return
	}

	s.write(ctx, protocol.RoomJoined{
		Type:         protocol.TypeRoomJoined,
		RoomID:       jr.RoomID,
		Code:         jr.Code,
		HostPlayerID: jr.HostPlayerID,
		You:          jr.You,
	})
}

func (s *session) attach(rm *room.Room) {
	rm.Send(room.Attach{ClientID: s.clientID, Outbox: s.outbox})
	s.current = rm
}

func (s *session) join(rm *room.Room, cm protocol.ClientMessage) room.JoinReply {
	reply := make(chan room.JoinReply, 1)
	rm.Send(room.Join{
		ClientID: s.clientID,
		Name:     cm.Name,
		Avatar:   cm.Avatar,
		Reply:    reply,
	})

	select {
	case jr := <-reply:
		return jr
	case <-rm.Done():
		return room.JoinReply{Err: errors.New("room closed")}
	}
}

func (s *session) sendError(ctx context.Context, message string) {
	s.write(ctx, protocol.ErrorMessage{Type: protocol.TypeError, Message: message})
}

func (s *session) write(ctx context.Context, evt any) {
	payload, err := json.Marshal(evt)
	if err != nil {
		s.log.Error("marshal outbound event", zap.Error(err))
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = s.conn.Write(wctx, websocket.MessageText, payload)
}
