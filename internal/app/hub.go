package app

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/watchroom/server/internal/domain"
)

// ErrBackpressure means the connection's send buffer is full and the
// frame was dropped. Delivery is fire-and-forget: no acknowledgment, no
// retry.
var ErrBackpressure = errors.New("send buffer full")

// Sender is the transport endpoint for one connection. Owned by the
// adapter; the adapter must Close() it.
type Sender interface {
	TrySend(frame []byte) error
}

// Hub maps connection ids to their transport endpoints. Who receives a
// frame is decided by the orchestrator from the presence snapshot; the
// hub only delivers.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]Sender
}

func NewHub() *Hub {
	return &Hub{conns: make(map[domain.ConnID]Sender)}
}

func (h *Hub) Register(id domain.ConnID, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = s
}

func (h *Hub) Unregister(id domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

// Send delivers one frame to one connection, best-effort.
func (h *Hub) Send(id domain.ConnID, frame []byte) {
	h.mu.RLock()
	s, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := s.TrySend(frame); err != nil {
		log.Warn().Str("module", "app.hub").Str("conn", string(id)).Err(err).Msg("frame dropped")
	}
}

// SendMany fans one frame out to a set of connections, skipping the
// excluded one. Pass "" to exclude nobody.
func (h *Hub) SendMany(ids []domain.ConnID, except domain.ConnID, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, id := range ids {
		if id == except {
			continue
		}
		s, ok := h.conns[id]
		if !ok {
			continue
		}
		if err := s.TrySend(frame); err != nil {
			log.Warn().Str("module", "app.hub").Str("conn", string(id)).Err(err).Msg("frame dropped")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.hub").Str("except", string(except)).Int("sent_to", sent).Msg("fan-out")
}
