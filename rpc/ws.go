package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"nhooyr.io/websocket"

	"github.com/zibert/ACDM/core/types"
)

const wsWriteTimeout = 10 * time.Second

// handleEventsWS streams committed events. The optional backlog query
// parameter replays that many retained events before live ones.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	backlog := 0
	if raw := r.URL.Query().Get("backlog"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid backlog", http.StatusBadRequest)
			return
		}
		backlog = parsed
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx := conn.CloseRead(r.Context())
	if err := s.streamEvents(ctx, conn, backlog); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, backlog int) error {
	updates, cancel := s.node.SubscribeEvents(ctx)
	defer cancel()

	var cursor replayCursor
	if backlog > 0 {
		for _, evt := range s.node.Events(backlog) {
			cursor.advance(evt)
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return nil
			}
			if !cursor.advance(evt) {
				continue
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

// replayCursor tracks the last sequence sent. The subscription opens before
// the backlog is read, so live events can repeat replayed ones.
type replayCursor struct {
	last uint64
}

// advance reports whether evt is newer than everything sent so far.
func (c *replayCursor) advance(evt *types.Event) bool {
	if evt == nil || evt.Sequence <= c.last {
		return false
	}
	c.last = evt.Sequence
	return true
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt *types.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
