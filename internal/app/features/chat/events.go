// internal/app/features/chat/events.go
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/playform/internal/app/features/errors"
	"github.com/dalemusser/playform/internal/app/policy/grouppolicy"
	"github.com/dalemusser/playform/internal/app/realtime/session"
	"github.com/dalemusser/playform/internal/app/system/apperr"
	"github.com/dalemusser/playform/internal/app/system/auth"
	"github.com/dalemusser/playform/internal/app/system/limits"
	"github.com/dalemusser/playform/internal/app/system/timeouts"
	"github.com/dalemusser/playform/internal/domain/models"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Origin checking is left to the default same-host rule.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Frame types.
const (
	frameHistory  = "history"
	frameMessage  = "message"
	frameOlder    = "older"
	frameError    = "error"
	frameLoadMore = "load_more"
	frameSend     = "send"
)

type inboundFrame struct {
	Type string `json:"type"`
	Body string `json:"body,omitempty"`
}

type pageFrame struct {
	Type     string               `json:"type"`
	Messages []models.MessageView `json:"messages"`
	HasMore  bool                 `json:"has_more"`
}

type messageFrame struct {
	Type    string             `json:"type"`
	Message models.MessageView `json:"message"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ServeEvents handles GET /api/groups/{id}/events.
//
// Membership is checked before the upgrade so non-members get a plain 403.
// After the upgrade the server sends one "history" frame, then a "message"
// frame per live message. The client may send {"type":"load_more"}, which
// is answered with an "older" frame, and {"type":"send","body":...}, whose
// result arrives as a "message" frame. Failures are reported as "error"
// frames and do not end the connection.
func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	gid, ok := groupID(w, r)
	if !ok {
		return
	}
	user, _ := auth.CurrentUser(r)

	cctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	err := grouppolicy.RequireActiveMember(cctx, h.Chat.Memberships, gid, user.ID)
	cancel()
	if err != nil {
		uierrors.Render(w, r, h.Log, err)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the response.
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newConn(user.ID, ws, h.SendBuffer)
	c.start()

	ctx, stop := context.WithCancel(r.Context())
	sess := session.New(user.ID, h.Chat, h.Broker, session.Options{
		PageSize:     h.Chat.PageSize,
		UpdateBuffer: h.SendBuffer,
	}, h.Log)
	defer func() {
		stop()
		sess.Close()
		c.close(websocket.CloseNormalClosure, "session closed")
	}()

	h.Log.Debug("chat stream opened",
		zap.String("conn_id", c.ID),
		zap.String("group_id", gid.Hex()),
		zap.String("user_id", user.ID))

	history, err := sess.Open(ctx, gid)
	if err != nil {
		h.replyError(c, err)
		return
	}
	if c.sendJSON(pageFrame{Type: frameHistory, Messages: history, HasMore: sess.HasMore()}) != nil {
		return
	}

	go h.forward(ctx, stop, c, sess)
	h.readLoop(ctx, c, ws, sess)
}

// forward copies live updates to the socket. When it stops, stop cancels
// ctx so a request blocked in the session returns.
func (h *Handler) forward(ctx context.Context, stop context.CancelFunc, c *conn, sess *session.Session) {
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case u := <-sess.Updates():
			if c.sendJSON(messageFrame{Type: frameMessage, Message: u.Message}) != nil {
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, c *conn, ws *websocket.Conn, sess *session.Session) {
	ws.SetReadLimit(limits.MaxWSFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				h.Log.Debug("chat stream read ended", zap.String("conn_id", c.ID), zap.Error(err))
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.replyError(c, apperr.Validation("Frames must be JSON objects."))
			continue
		}

		switch frame.Type {
		case frameLoadMore:
			older, err := sess.LoadMore(ctx)
			if err != nil {
				h.replyError(c, err)
				continue
			}
			_ = c.sendJSON(pageFrame{Type: frameOlder, Messages: older, HasMore: sess.HasMore()})
		case frameSend:
			if _, err := sess.Send(ctx, frame.Body); err != nil {
				h.replyError(c, err)
			}
		default:
			h.replyError(c, apperr.Validation("Unknown frame type."))
		}
	}
}

func (h *Handler) replyError(c *conn, err error) {
	code := apperr.Code(err)
	msg := apperr.Message(err)
	switch {
	case errors.Is(err, session.ErrBusy):
		code, msg = "busy", "Another request is in progress."
	case errors.Is(err, session.ErrClosed), errors.Is(err, session.ErrStale):
		code, msg = "closed", "The chat session is closed."
	}
	if code == "internal" || code == "persistence" {
		h.Log.Warn("chat stream request failed", zap.String("conn_id", c.ID), zap.Error(err))
	}
	_ = c.sendJSON(errorFrame{Type: frameError, Error: code, Message: msg})
}
