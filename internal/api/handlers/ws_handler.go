package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/careerforge/backend/internal/events"
	"github.com/careerforge/backend/internal/models"
	"github.com/careerforge/backend/internal/services"
	"github.com/careerforge/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// WSHandler is the delivery edge of the notifier: it joins one interview's
// broadcast channel and forwards published events to the socket. Incoming
// client messages carry live nervousness samples.
type WSHandler struct {
	interviews services.InterviewService
	redis      *redis.Client
	upgrader   websocket.Upgrader
}

func NewWSHandler(interviews services.InterviewService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		interviews: interviews,
		redis:      rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type  string  `json:"type"`
	Level float64 `json:"level"` // nervousness
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) InterviewWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	interviewID := c.Param("id")
	if interviewID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.InterviewWS", "missing interview id", nil))
		return
	}

	// ownership check; NotFound covers "not yours" uniformly
	iv, err := h.interviews.Get(c.Request.Context(), userID, interviewID)
	if err != nil {
		writeError(c, err)
		return
	}
	if iv.Status == models.StatusCancelled {
		writeError(c, utils.E(utils.CodeNotFound, "WSHandler.InterviewWS", "interview not found", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, events.Channel(interviewID))
	defer pubsub.Close()

	// keepalive; pongs extend the read deadline
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// reader: client -> engine (nervousness samples only)
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"invalid json"}`))
				continue
			}

			switch msg.Type {
			case "nervousness":
				if err := h.interviews.RecordNervousness(ctx, userID, interviewID, msg.Level); err != nil {
					if utils.IsCode(err, utils.CodeInvalidArgument) {
						_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"level must be between 0 and 100"}`))
					}
					// other failures are broadcast-side noise; drop
					continue
				}

			default:
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"unknown message type"}`))
			}
		}
	}()

	// writer: channel -> socket, payload forwarded verbatim. ReceiveMessage
	// returns once ctx is cancelled by the reader or keepalive goroutine.
	for {
		m, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return
		}
		if werr := wc.writeText([]byte(m.Payload)); werr != nil {
			return
		}
	}
}
