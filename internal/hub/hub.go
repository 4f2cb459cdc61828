// Package hub serializes playground mutations from every connected peer,
// applies them to the store and fans the resulting updates back out.
package hub

import (
	"context"
	"errors"
	"log/slog"

	"github.com/playperu/tabletop/internal/playground"
	"github.com/playperu/tabletop/internal/protocol"
)

// ErrClosed is returned once the hub has stopped running.
var ErrClosed = errors.New("hub closed")

// Scheduler is told after every applied mutation that the document changed.
// Schedule must not block.
type Scheduler interface {
	Schedule()
}

// Peer is one connection as seen by the hub. The hub closes Outbound when
// it drops the peer.
type Peer struct {
	ID   string
	send chan []byte
}

// NewPeer returns a peer whose outbound queue holds buffer frames.
func NewPeer(id string, buffer int) *Peer {
	if buffer < 1 {
		buffer = 1
	}
	return &Peer{ID: id, send: make(chan []byte, buffer)}
}

// Outbound yields encoded frames in the order the hub produced them.
func (p *Peer) Outbound() <-chan []byte {
	return p.send
}

type messageKind int

const (
	kindFrame messageKind = iota
	kindReply
	kindJoin
	kindLeave
)

// message is anything the loop handles. Joins, leaves and frames share one
// queue so they are handled in the order they arrived.
type message struct {
	kind  messageKind
	peer  *Peer
	frame protocol.Frame
	// joined is closed once a join has been handled.
	joined chan struct{}
}

// Hub is the single point where mutations are applied and broadcast.
type Hub struct {
	store   *playground.Store
	persist Scheduler
	logger  *slog.Logger

	inbound chan message
	done    chan struct{}

	// peers is owned by the Run goroutine.
	peers map[*Peer]struct{}
}

// New returns a hub over store. persist may be nil.
func New(store *playground.Store, persist Scheduler, logger *slog.Logger) *Hub {
	return &Hub{
		store:   store,
		persist: persist,
		logger:  logger,
		inbound: make(chan message, 64),
		done:    make(chan struct{}),
		peers:   make(map[*Peer]struct{}),
	}
}

// Snapshot returns the current document without going through the loop.
func (h *Hub) Snapshot() playground.State {
	return h.store.Get()
}

// Run processes events one at a time until ctx is cancelled. Every peer is
// dropped on return.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for p := range h.peers {
				h.drop(p)
			}
			return nil

		case m := <-h.inbound:
			h.dispatch(m)
		}
	}
}

func (h *Hub) dispatch(m message) {
	switch m.kind {
	case kindJoin:
		h.peers[m.peer] = struct{}{}
		h.sendState(m.peer, "")
		close(m.joined)
		h.logger.Info("peer joined", "peer", m.peer.ID, "peers", len(h.peers))

	case kindLeave:
		if _, ok := h.peers[m.peer]; ok {
			h.drop(m.peer)
			h.logger.Info("peer left", "peer", m.peer.ID, "peers", len(h.peers))
		}

	case kindReply:
		if _, ok := h.peers[m.peer]; ok {
			h.send(m.peer, m.frame)
		}

	default:
		if _, ok := h.peers[m.peer]; ok {
			h.handle(m.peer, m.frame)
		}
	}
}

// Join registers p behind every frame already queued. The first frame p
// receives is the full playground state, which includes those frames'
// effects.
func (h *Hub) Join(ctx context.Context, p *Peer) error {
	m := message{kind: kindJoin, peer: p, joined: make(chan struct{})}
	if err := h.enqueue(ctx, m); err != nil {
		return err
	}
	select {
	case <-m.joined:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		// The join is already queued; queue the leave right behind it.
		h.Leave(p)
		return ctx.Err()
	}
}

// Leave unregisters p. It is safe to call after the hub dropped p.
func (h *Hub) Leave(p *Peer) {
	select {
	case h.inbound <- message{kind: kindLeave, peer: p}:
	case <-h.done:
	}
}

// Submit queues a frame from p for processing.
func (h *Hub) Submit(ctx context.Context, p *Peer, f protocol.Frame) error {
	return h.enqueue(ctx, message{kind: kindFrame, peer: p, frame: f})
}

// Reject sends p an error frame through the loop so it stays ordered with
// everything else p receives.
func (h *Hub) Reject(ctx context.Context, p *Peer, requestID, code, msg string) error {
	return h.enqueue(ctx, message{kind: kindReply, peer: p, frame: protocol.ErrorFrame(requestID, code, msg)})
}

func (h *Hub) enqueue(ctx context.Context, m message) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}
	select {
	case h.inbound <- m:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) handle(p *Peer, f protocol.Frame) {
	switch f.Type {
	case protocol.GetPlaygroundState:
		h.sendState(p, f.RequestID)

	case protocol.UpdateElement, protocol.AddElement:
		e, err := playground.DecodeElement(f.Payload)
		if err != nil {
			h.reject(p, f, err)
			return
		}
		h.store.UpsertElement(e)
		h.changed()
		h.broadcast(protocol.ElementState, map[string]playground.Element{e.ID: e})

	case protocol.DeleteElement:
		id, err := protocol.DecodeID(f.Payload)
		if err != nil {
			h.reject(p, f, err)
			return
		}
		h.store.RemoveElement(id)
		h.changed()
		h.broadcast(protocol.RemoveElementState, []string{id})

	case protocol.UpdateElements:
		elements, err := playground.DecodeElements(f.Payload)
		if err != nil {
			h.reject(p, f, err)
			return
		}
		if len(elements) == 0 {
			return
		}
		h.store.UpsertElements(elements)
		h.changed()
		h.broadcast(protocol.ElementState, elements)

	case protocol.UpdateTemplate, protocol.AddTemplate:
		t, err := playground.DecodeTemplate(f.Payload)
		if err != nil {
			h.reject(p, f, err)
			return
		}
		h.store.UpsertTemplate(t)
		h.changed()
		h.broadcast(protocol.TemplateState, h.store.Templates())

	case protocol.DeleteTemplate:
		id, err := protocol.DecodeID(f.Payload)
		if err != nil {
			h.reject(p, f, err)
			return
		}
		h.store.RemoveTemplate(id)
		h.changed()
		h.broadcast(protocol.TemplateState, h.store.Templates())

	default:
		h.logger.Debug("unsupported frame", "peer", p.ID, "type", f.Type)
		h.send(p, protocol.ErrorFrame(f.RequestID, protocol.CodeUnsupported, "unsupported frame type "+string(f.Type)))
	}
}

func (h *Hub) changed() {
	if h.persist != nil {
		h.persist.Schedule()
	}
}

func (h *Hub) reject(p *Peer, f protocol.Frame, err error) {
	h.logger.Debug("frame rejected", "peer", p.ID, "type", f.Type, "error", err)
	h.send(p, protocol.ErrorFrame(f.RequestID, protocol.CodeInvalidArgument, err.Error()))
}

func (h *Hub) sendState(p *Peer, requestID string) {
	f, err := protocol.NewFrame(protocol.PlaygroundState, h.store.Get())
	if err != nil {
		h.logger.Error("encoding playground state failed", "error", err)
		return
	}
	f.RequestID = requestID
	h.send(p, f)
}

func (h *Hub) send(p *Peer, f protocol.Frame) {
	data, err := protocol.Encode(f)
	if err != nil {
		h.logger.Error("encoding frame failed", "type", f.Type, "error", err)
		return
	}
	h.deliver(p, data)
}

// broadcast encodes once and queues the frame for every peer.
func (h *Hub) broadcast(typ protocol.Event, payload any) {
	f, err := protocol.NewFrame(typ, payload)
	if err != nil {
		h.logger.Error("encoding broadcast failed", "type", typ, "error", err)
		return
	}
	data, err := protocol.Encode(f)
	if err != nil {
		h.logger.Error("encoding broadcast failed", "type", typ, "error", err)
		return
	}
	for p := range h.peers {
		h.deliver(p, data)
	}
}

// deliver never blocks. A peer whose queue is full has fallen behind and
// would miss a delta, so it is dropped instead; its client resyncs from a
// full snapshot on reconnect.
func (h *Hub) deliver(p *Peer, data []byte) {
	if _, ok := h.peers[p]; !ok {
		return
	}
	select {
	case p.send <- data:
	default:
		h.logger.Warn("peer too slow, dropping", "peer", p.ID)
		h.drop(p)
	}
}

func (h *Hub) drop(p *Peer) {
	if _, ok := h.peers[p]; !ok {
		return
	}
	delete(h.peers, p)
	close(p.send)
}
