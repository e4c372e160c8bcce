// Package app coordinates room state and fan-out. Each inbound event is
// handled start to finish (read, mutate, broadcast) before the adapter
// feeds the next one from that connection.
package app

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watchroom/server/internal/core"
	"github.com/watchroom/server/internal/domain"
)

type Orchestrator struct {
	store *core.RoomStore
	hub   *Hub

	now func() time.Time
}

func NewOrchestrator(store *core.RoomStore, hub *Hub) *Orchestrator {
	return &Orchestrator{store: store, hub: hub, now: time.Now}
}

func (o *Orchestrator) Store() *core.RoomStore { return o.store }

// Connect registers the transport endpoint so broadcasts can reach it.
// Room membership happens later, at join.
func (o *Orchestrator) Connect(connID domain.ConnID, s Sender) {
	o.hub.Register(connID, s)
	log.Info().Str("module", "app.orchestrator").Str("conn", string(connID)).Msg("connected")
}

// Join puts the user in the room and answers with the room snapshot. The
// joiner gets room-joined, everyone already there gets user-joined. A
// connection joined elsewhere is moved out of its old room first.
func (o *Orchestrator) Join(connID domain.ConnID, p JoinParams) {
	if prevRoom, _, ok := o.store.LookupConn(connID); ok && prevRoom != p.RoomID {
		o.removeAndNotify(prevRoom, connID)
	}

	user := *p.User
	user.ConnID = connID
	snap := o.store.Join(p.RoomID, connID, user)

	var cur *domain.VideoState
	if state, ok := o.store.VideoState(p.RoomID); ok && state.Kind != domain.SourceNone {
		cur = &state
	}
	o.hub.Send(connID, Encode(EventRoomJoined, RoomJoined{
		RoomID:            p.RoomID,
		UserCount:         len(snap),
		CurrentVideoState: cur,
		Users:             snap,
	}))
	o.fanOut(snap, connID, Encode(EventUserJoined, UserJoined{
		User:      user,
		UserCount: len(snap),
		Users:     snap,
	}))
}

// VideoLoad replaces the room's playback record and tells the whole room,
// sender included, so every UI re-renders from server-confirmed state.
func (o *Orchestrator) VideoLoad(connID domain.ConnID, p VideoLoadParams) {
	o.store.LoadVideo(p.RoomID, p.Kind, p.VideoID, p.VideoURL, p.UserID)
	snap, ok := o.store.Snapshot(p.RoomID)
	if !ok {
		return
	}
	o.fanOut(snap, "", Encode(EventVideoLoad, VideoLoad{
		Kind:      p.Kind,
		VideoID:   p.VideoID,
		VideoURL:  p.VideoURL,
		UserID:    p.UserID,
		Timestamp: o.stamp(),
	}))
}

// VideoAction applies one playback mutation. The sender already applied
// it optimistically, so only peers are notified. A debounced action is
// dropped without a broadcast and without an error.
func (o *Orchestrator) VideoAction(connID domain.ConnID, p VideoActionParams) error {
	accepted, err := o.store.ApplyAction(p.RoomID, p.Action, p.Time, p.UserID)
	if err != nil {
		return err
	}
	if !accepted {
		return nil
	}
	snap, ok := o.store.Snapshot(p.RoomID)
	if !ok {
		return nil
	}
	o.fanOut(snap, connID, Encode(EventVideoAction, VideoAction{
		Action:    p.Action,
		Time:      p.Time,
		UserID:    p.UserID,
		Timestamp: o.stamp(),
	}))
	return nil
}

// Chat echoes the message to the whole room, sender included.
func (o *Orchestrator) Chat(connID domain.ConnID, p ChatParams) {
	snap, ok := o.store.Snapshot(p.RoomID)
	if !ok {
		return
	}
	o.fanOut(snap, "", Encode(EventChatMessage, ChatMessage{
		User:      *p.User,
		Message:   p.Message,
		Timestamp: o.stamp(),
	}))
}

// Signal forwards a peer negotiation payload verbatim to everyone else in
// the room, tagged with the sender's connection id. The payload carries
// its own correctness semantics; the server does not look inside.
func (o *Orchestrator) Signal(kind string, connID domain.ConnID, p SignalParams) {
	snap, ok := o.store.Snapshot(p.RoomID)
	if !ok {
		return
	}
	o.fanOut(snap, connID, Encode(kind, SignalForward{
		Payload: p.Payload,
		From:    connID,
	}))
}

// Leave handles an explicit leave-room request.
func (o *Orchestrator) Leave(connID domain.ConnID, p LeaveParams) {
	o.removeAndNotify(p.RoomID, connID)
}

// Disconnect is the transport-initiated twin of Leave: same removal, same
// broadcast, same cleanup. A connection that never joined is a no-op.
func (o *Orchestrator) Disconnect(connID domain.ConnID) {
	if roomID, _, ok := o.store.LookupConn(connID); ok {
		o.removeAndNotify(roomID, connID)
	}
	o.hub.Unregister(connID)
	log.Info().Str("module", "app.orchestrator").Str("conn", string(connID)).Msg("disconnected")
}

// removeAndNotify is the single cleanup path both leave and disconnect
// converge on. The store deletes all room state the moment the presence
// set empties; the user-left broadcast goes to whoever remains.
func (o *Orchestrator) removeAndNotify(roomID domain.RoomID, connID domain.ConnID) {
	removed, snap := o.store.Remove(roomID, connID)
	if removed == nil || len(snap) == 0 {
		return
	}
	o.fanOut(snap, "", Encode(EventUserLeft, UserLeft{
		UserName:  removed.Name,
		UserCount: len(snap),
		Users:     snap,
	}))
}

// fanOut delivers one frame to the room members in snap, minus except.
func (o *Orchestrator) fanOut(snap []domain.User, except domain.ConnID, frame []byte) {
	if frame == nil {
		return
	}
	ids := make([]domain.ConnID, 0, len(snap))
	for _, u := range snap {
		ids = append(ids, u.ConnID)
	}
	o.hub.SendMany(ids, except, frame)
}

func (o *Orchestrator) stamp() int64 {
	return o.now().UnixMilli()
}

func Encode(typ string, payload any) []byte {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Error().Str("module", "app.orchestrator").Str("type", typ).Err(err).Msg("encode payload")
		return nil
	}
	frame, err := json.Marshal(Message{Type: typ, Payload: b})
	if err != nil {
		log.Error().Str("module", "app.orchestrator").Str("type", typ).Err(err).Msg("encode frame")
		return nil
	}
	return frame
}
