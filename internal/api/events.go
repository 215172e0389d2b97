package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"chromaflow/internal/logging"
)

const (
	eventWriteTimeout = 5 * time.Second
	eventPingInterval = 30 * time.Second
)

// handleEvents streams controller events until the client goes away or the
// controller stops.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{OriginPatterns: s.origins}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Debug("websocket accept failed", logging.Error(err))
		return
	}
	defer conn.CloseNow()

	events, cancel := s.ctrl.Subscribe()
	defer cancel()

	// Client frames are ignored; CloseRead ends ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())
	ping := time.NewTicker(eventPingInterval)
	defer ping.Stop()

	if view, err := s.ctrl.View(ctx); err == nil {
		hello := EventMessage{Kind: "hello", Revision: view.Revision, Dirty: view.Dirty, Saving: view.Saving, PendingRemote: view.PendingRemote, Count: len(view.Items)}
		if err := s.writeEvent(ctx, conn, hello); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server stopping")
				return
			}
			if err := s.writeEvent(ctx, conn, evt); err != nil {
				return
			}
		case <-ping.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, eventWriteTimeout)
			err := conn.Ping(pingCtx)
			cancelPing()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, evt EventMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	err := wsjson.Write(writeCtx, conn, evt)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("websocket write failed", logging.Error(err))
	}
	return err
}
