// Package adapters is the transport boundary: websocket event plumbing,
// the upload endpoint and the gin router. No room state lives here.
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/watchroom/server/internal/app"
	"github.com/watchroom/server/internal/config"
	"github.com/watchroom/server/internal/domain"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type WSController struct {
	orch     *app.Orchestrator
	cfg      *config.Config
	validate *validator.Validate
}

func NewWSController(cfg *config.Config, orch *app.Orchestrator) *WSController {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report field names as they appear on the wire.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &WSController{orch: orch, cfg: cfg, validate: v}
}

// wsConn pairs the websocket with a buffered send channel drained by the
// write pump. TrySend never blocks; a full buffer drops the frame.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsConn) TrySend(frame []byte) error {
	select {
	case c.send <- frame:
		return nil
	default:
		return app.ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// HandleWS upgrades the request and runs the connection until it drops.
// Every connection gets a server-minted id; a reconnecting client shows
// up as a brand new one and re-joins for a fresh snapshot.
func (ctl *WSController) HandleWS(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("upgrade failed")
		return
	}

	connID := domain.ConnID(uuid.NewString())
	conn := &wsConn{conn: ws, send: make(chan []byte, 32)}
	ctl.orch.Connect(connID, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	ctl.readPump(ctx, connID, conn, cancel)
}

func (ctl *WSController) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug().Str("module", "adapters.ws").Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		}
	}
}

func (ctl *WSController) readPump(ctx context.Context, connID domain.ConnID, c *wsConn, cancel context.CancelFunc) {
	defer func() {
		cancel()
		ctl.orch.Disconnect(connID)
		c.Close()
		log.Info().Str("module", "adapters.ws").Str("conn", string(connID)).Msg("read pump closed")
	}()

	c.conn.SetReadLimit(ctl.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * ctl.cfg.PingPeriod))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * ctl.cfg.PingPeriod))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.handleFrame(connID, c, data)
		}
	}
}

// handleFrame dispatches one inbound event. A bad event answers the
// sender with an error frame and nothing else; a panicking handler is
// logged and contained so one event can never take the process down.
func (ctl *WSController) handleFrame(connID domain.ConnID, c *wsConn, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "adapters.ws").Str("conn", string(connID)).
				Interface("panic", r).Msg("event handler panicked")
		}
	}()

	var msg app.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		ctl.sendError(c, domain.ErrBadPayload)
		return
	}

	switch msg.Type {
	case app.EventJoinRoom:
		var p app.JoinParams
		if err := ctl.bind(msg.Payload, &p); err != nil {
			ctl.sendError(c, err)
			return
		}
		ctl.orch.Join(connID, p)
	case app.EventVideoLoad:
		var p app.VideoLoadParams
		if err := ctl.bind(msg.Payload, &p); err != nil {
			ctl.sendError(c, err)
			return
		}
		ctl.orch.VideoLoad(connID, p)
	case app.EventVideoAction:
		var p app.VideoActionParams
		if err := ctl.bind(msg.Payload, &p); err != nil {
			ctl.sendError(c, err)
			return
		}
		if err := ctl.orch.VideoAction(connID, p); err != nil {
			ctl.sendError(c, err)
		}
	case app.EventChatMessage:
		var p app.ChatParams
		if err := ctl.bind(msg.Payload, &p); err != nil {
			ctl.sendError(c, err)
			return
		}
		ctl.orch.Chat(connID, p)
	case app.EventOffer, app.EventAnswer, app.EventICECandidate:
		var p app.SignalParams
		if err := ctl.bind(msg.Payload, &p); err != nil {
			ctl.sendError(c, err)
			return
		}
		ctl.orch.Signal(msg.Type, connID, p)
	case app.EventLeaveRoom:
		var p app.LeaveParams
		if err := ctl.bind(msg.Payload, &p); err != nil {
			ctl.sendError(c, err)
			return
		}
		ctl.orch.Leave(connID, p)
	case app.EventPing:
		_ = c.TrySend(app.Encode(app.EventPong, struct{}{}))
	default:
		log.Debug().Str("module", "adapters.ws").Str("type", msg.Type).Msg("unknown event")
	}
}

// bind unmarshals a payload and checks its required fields.
func (ctl *WSController) bind(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return domain.ErrBadPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return domain.ErrBadPayload
	}
	if err := ctl.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required" {
				return fmt.Errorf("%w: %s", domain.ErrMissingField, fe.Field())
			}
			return fmt.Errorf("invalid field: %s", fe.Field())
		}
		return err
	}
	return nil
}

func (ctl *WSController) sendError(c *wsConn, err error) {
	_ = c.TrySend(app.Encode(app.EventError, app.ErrorMessage{Message: err.Error()}))
}
