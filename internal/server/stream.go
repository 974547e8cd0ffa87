package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/battlewithbytes/migration-console/internal/debounce"
)

// handleNotificationStream pushes recent and then live notifications to the
// client as JSON text frames.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.allowedOriginPatterns(r),
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The client never sends; CloseRead cancels ctx when it disconnects.
	ctx := conn.CloseRead(r.Context())

	recent, ch, cancel := s.hub.SubscribeWithRecent()
	defer cancel()

	for _, n := range recent {
		if err := wsjson.Write(ctx, conn, n); err != nil {
			return
		}
	}
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, n); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// filterRequest is sent by the client on every keystroke in the VM filter.
type filterRequest struct {
	Filter string `json:"filter"`
}

// filterResult is sent back once per applied count.
type filterResult struct {
	Version uint64 `json:"version"`
	Filter  string `json:"filter"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// handleFilterCount debounces filter edits and answers with the number of
// matching VMs. Only the result for the newest committed input is sent.
func (s *Server) handleFilterCount(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.allowedOriginPatterns(r),
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	q := debounce.New(ctx, s.cfg.Filter.Debounce(), s.console.CountVMs, func(res debounce.Result[int]) {
		out := filterResult{Version: res.Version, Filter: res.Input, Count: res.Value}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		if err := wsjson.Write(ctx, conn, out); err != nil {
			s.logger.Debug("filter-count: write failed", zap.Error(err))
			cancel()
		}
	})
	defer q.Stop()

	for {
		var req filterRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			return
		}
		q.Set(req.Filter)
	}
}
