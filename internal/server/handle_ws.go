package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/playperu/tabletop/internal/hub"
	"github.com/playperu/tabletop/internal/protocol"
)

const (
	maxFrameBytes = 4 << 20
	writeTimeout  = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// handleWS upgrades to a websocket and attaches the connection to the hub.
// The read loop only decodes envelopes; every decision is made by the hub.
func handleWS(logger *slog.Logger, h *hub.Hub, opts Options) http.HandlerFunc {
	accept := acceptOptions(opts.CORSOrigin)

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, accept)
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(maxFrameBytes)

		peer := hub.NewPeer(uuid.NewString(), opts.PeerBuffer)
		log := logger.With("peer", peer.ID, "remote", r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		if err := h.Join(ctx, peer); err != nil {
			log.Warn("joining hub failed", "error", err)
			conn.Close(websocket.StatusTryAgainLater, "server shutting down")
			return
		}
		defer h.Leave(peer)
		log.Info("client connected")

		go func() {
			defer cancel()
			writePump(ctx, conn, peer, log)
		}()

		readLoop(ctx, conn, h, peer, log)
		log.Info("client disconnected")
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, h *hub.Hub, peer *hub.Peer, log *slog.Logger) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug("websocket read ended", "error", err)
			return
		}
		if typ != websocket.MessageText {
			if err := h.Reject(ctx, peer, "", protocol.CodeInvalidArgument, "frames must be JSON text messages"); err != nil {
				return
			}
			continue
		}

		f, err := protocol.Decode(data)
		if err != nil {
			if err := h.Reject(ctx, peer, "", protocol.CodeInvalidArgument, err.Error()); err != nil {
				return
			}
			continue
		}
		if err := h.Submit(ctx, peer, f); err != nil {
			return
		}
	}
}

// writePump drains the peer's queue. The hub closes the queue when it drops
// the peer, which ends the connection; the client then resyncs.
func writePump(ctx context.Context, conn *websocket.Conn, peer *hub.Peer, log *slog.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case data, ok := <-peer.Outbound():
			if !ok {
				log.Info("peer dropped by hub")
				conn.Close(websocket.StatusTryAgainLater, "resync required")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}
