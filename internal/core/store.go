// Package core owns all per-room state: presence, the shared playback
// record, and the room directory. Every mutation site goes through
// RoomStore; there is no raw map access outside this package.
package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watchroom/server/internal/domain"
)

// DebounceWindow bounds how fast near-simultaneous playback actions from
// multiple clients can loop back and forth. Actions arriving inside the
// window are dropped silently.
const DebounceWindow = 300 * time.Millisecond

type roomState struct {
	room     *domain.Room
	video    *domain.VideoState
	presence map[domain.ConnID]*domain.User
	order    []domain.ConnID
}

// RoomStore is the single owned value behind all room-keyed state.
// The room record, its VideoState and its presence set are created
// together and destroyed together, under one lock.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState
	conns map[domain.ConnID]domain.RoomID

	now func() time.Time
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[domain.RoomID]*roomState),
		conns: make(map[domain.ConnID]domain.RoomID),
		now:   time.Now,
	}
}

// getOrCreate must be called with s.mu held for writing.
func (s *RoomStore) getOrCreate(id domain.RoomID) *roomState {
	if rs, ok := s.rooms[id]; ok {
		return rs
	}
	rs := &roomState{
		room:     &domain.Room{ID: id, CreatedAt: s.now()},
		video:    &domain.VideoState{},
		presence: make(map[domain.ConnID]*domain.User),
	}
	s.rooms[id] = rs
	log.Info().Str("module", "core.store").Str("room", string(id)).Msg("room created")
	return rs
}

// Join registers the user under the room, creating the room's structures
// if absent. A duplicate join from the same connection overwrites the
// prior entry and keeps its snapshot position. If the connection was
// joined to another room it is moved, never present in two sets at once.
func (s *RoomStore) Join(roomID domain.RoomID, connID domain.ConnID, user domain.User) []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.conns[connID]; ok && prev != roomID {
		s.removeLocked(prev, connID)
	}

	rs := s.getOrCreate(roomID)
	user.ConnID = connID
	if _, ok := rs.presence[connID]; !ok {
		rs.order = append(rs.order, connID)
	}
	rs.presence[connID] = &user
	s.conns[connID] = roomID
	log.Info().Str("module", "core.store").Str("room", string(roomID)).
		Str("conn", string(connID)).Str("user", string(user.ID)).Msg("member joined")
	return rs.snapshotLocked()
}

// Remove drops the connection from the room's presence set. A connection
// that was not tracked for the room is a no-op, not an error. The moment
// the presence set empties, the room and its VideoState go with it.
func (s *RoomStore) Remove(roomID domain.RoomID, connID domain.ConnID) (removed *domain.User, snapshot []domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(roomID, connID)
}

func (s *RoomStore) removeLocked(roomID domain.RoomID, connID domain.ConnID) (*domain.User, []domain.User) {
	rs, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	user, ok := rs.presence[connID]
	if !ok {
		return nil, rs.snapshotLocked()
	}
	delete(rs.presence, connID)
	for i, id := range rs.order {
		if id == connID {
			rs.order = append(rs.order[:i], rs.order[i+1:]...)
			break
		}
	}
	delete(s.conns, connID)
	log.Info().Str("module", "core.store").Str("room", string(roomID)).
		Str("conn", string(connID)).Msg("member removed")

	if len(rs.presence) == 0 {
		delete(s.rooms, roomID)
		log.Info().Str("module", "core.store").Str("room", string(roomID)).Msg("room deleted")
		return user, nil
	}
	return user, rs.snapshotLocked()
}

// LookupConn returns the room and user recorded for the connection at
// join time, for the disconnect path.
func (s *RoomStore) LookupConn(connID domain.ConnID) (domain.RoomID, *domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roomID, ok := s.conns[connID]
	if !ok {
		return "", nil, false
	}
	rs, ok := s.rooms[roomID]
	if !ok {
		return "", nil, false
	}
	return roomID, rs.presence[connID], true
}

func (s *RoomStore) IsEmpty(roomID domain.RoomID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.rooms[roomID]
	return !ok || len(rs.presence) == 0
}

// Snapshot returns the room's current membership in join order. The list
// is recomputed fresh on every call; rooms are small enough that
// incremental diffing would buy nothing.
func (s *RoomStore) Snapshot(roomID domain.RoomID) ([]domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return nil, false
	}
	return rs.snapshotLocked(), true
}

func (rs *roomState) snapshotLocked() []domain.User {
	out := make([]domain.User, 0, len(rs.order))
	for _, id := range rs.order {
		if u, ok := rs.presence[id]; ok {
			out = append(out, *u)
		}
	}
	return out
}

// LoadVideo unconditionally replaces the room's VideoState. The reference
// id and URL are forwarded as-is, no format checks.
func (s *RoomStore) LoadVideo(roomID domain.RoomID, kind domain.SourceKind, videoID, videoURL string, by domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.getOrCreate(roomID)
	rs.video = &domain.VideoState{
		Kind:          kind,
		VideoID:       videoID,
		VideoURL:      videoURL,
		Position:      0,
		Playing:       false,
		LastUpdated:   s.now(),
		LastUpdatedBy: by,
	}
	log.Info().Str("module", "core.store").Str("room", string(roomID)).
		Str("kind", string(kind)).Str("user", string(by)).Msg("video loaded")
}

// ApplyAction applies one playback action under last-writer-wins. Actions
// inside the debounce window are dropped: accepted=false, no error. The
// window is room-global, not per-user; one user's rapid actions can
// rate-limit another's.
func (s *RoomStore) ApplyAction(roomID domain.RoomID, action domain.Action, at *float64, by domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return false, domain.ErrRoomNotFound
	}

	now := s.now()
	v := rs.video
	if !v.LastUpdated.IsZero() && now.Sub(v.LastUpdated) < DebounceWindow {
		log.Debug().Str("module", "core.store").Str("room", string(roomID)).
			Str("action", string(action)).Msg("action debounced")
		return false, nil
	}

	switch action {
	case domain.ActionPlay:
		v.Playing = true
		if at != nil {
			v.Position = *at
		}
	case domain.ActionPause:
		v.Playing = false
		if at != nil {
			v.Position = *at
		}
	case domain.ActionSeek:
		if at != nil {
			v.Position = *at
		} else {
			v.Position = 0
		}
	case domain.ActionRestart:
		// restart always means "from the beginning"; a supplied time is
		// ignored on purpose.
		v.Position = 0
		v.Playing = true
	}

	v.LastUpdated = now
	v.LastUpdatedBy = by
	log.Debug().Str("module", "core.store").Str("room", string(roomID)).
		Str("action", string(action)).Str("user", string(by)).Msg("action applied")
	return true, nil
}

// VideoState returns a copy of the room's playback record.
func (s *RoomStore) VideoState(roomID domain.RoomID) (domain.VideoState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return domain.VideoState{}, false
	}
	return *rs.video, true
}

// RoomInfo is a read-only view for the REST API.
type RoomInfo struct {
	ID        domain.RoomID `json:"id"`
	UserCount int           `json:"userCount"`
	CreatedAt time.Time     `json:"createdAt"`
}

func (s *RoomStore) Rooms() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoomInfo, 0, len(s.rooms))
	for id, rs := range s.rooms {
		out = append(out, RoomInfo{ID: id, UserCount: len(rs.presence), CreatedAt: rs.room.CreatedAt})
	}
	return out
}

func (s *RoomStore) RoomInfo(roomID domain.RoomID) (RoomInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		return RoomInfo{}, false
	}
	return RoomInfo{ID: roomID, UserCount: len(rs.presence), CreatedAt: rs.room.CreatedAt}, true
}
